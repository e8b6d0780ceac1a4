// Package bot turns chat messages into reconciled attendance records.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

// LogDateLayout renders dates in the per-message log line.
const LogDateLayout = "02-Jan-2006"

// UserDirectory resolves a chat user id to a profile.
type UserDirectory interface {
	Profile(ctx context.Context, userID string) (attendance.Profile, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (attendance.Classification, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string) (attendance.Details, error)
}

// Result reports what happened to one message.
type Result struct {
	Skipped bool
	Record  attendance.Record
	Outcome attendance.Outcome
}

// Processor runs the classify, extract and reconcile pipeline.
type Processor struct {
	classifier Classifier
	extractor  Extractor
	directory  UserDirectory
	reconciler *attendance.Reconciler
	log        logger.Logger
	metrics    *metrics.Metrics
	loc        *time.Location
}

// NewProcessor wires a Processor. directory may be nil, in which case every
// author is stored as an unknown user.
func NewProcessor(c Classifier, e Extractor, directory UserDirectory, r *attendance.Reconciler, log logger.Logger, m *metrics.Metrics, loc *time.Location) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	return &Processor{
		classifier: c,
		extractor:  e,
		directory:  directory,
		reconciler: r,
		log:        log,
		metrics:    m,
		loc:        loc,
	}
}

// HandleMessage processes msg. Messages without text are skipped.
func (p *Processor) HandleMessage(ctx context.Context, msg attendance.Message) (Result, error) {
	log := logger.GetLoggerFromContext(ctx, p.log).WithFields(
		logger.UserIDField(msg.UserID),
		logger.ChannelField(msg.ChannelID),
		logger.MessageTSField(msg.TS),
	)

	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Text == "" {
		log.Debug("Skipping message without text")
		p.metrics.ObserveMessage("skipped")
		return Result{Skipped: true}, nil
	}

	profile := p.profile(ctx, log, msg.UserID)

	var (
		class   attendance.Classification
		details attendance.Details
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		class, err = p.classifier.Classify(gctx, msg.Text)
		return err
	})
	g.Go(func() error {
		var err error
		details, err = p.extractor.Extract(gctx, msg.Text)
		return err
	})
	if err := g.Wait(); err != nil {
		p.metrics.ObserveMessage("error")
		return Result{}, fmt.Errorf("analyse message: %w", err)
	}

	rec, err := attendance.NewRecord(msg, profile, class, details)
	if err != nil {
		p.metrics.ObserveMessage("error")
		return Result{}, fmt.Errorf("build record: %w", err)
	}

	out, err := p.reconciler.Reconcile(ctx, rec, msg)
	if err != nil {
		p.metrics.ObserveMessage("error")
		log.Error("Failed to store attendance record", logger.ErrorField(err))
		return Result{}, err
	}
	rec.ID = out.RecordID

	log.Info(p.LogLine(rec),
		logger.CategoryField(string(rec.Category)),
		logger.ConfidenceField(rec.Confidence),
		logger.RecordIDField(out.RecordID),
		logger.StringField("action", string(out.Action)),
		logger.StringField("classification_source", string(class.Source)),
		logger.StringField("extraction_source", string(details.Source)),
	)
	p.metrics.ObserveMessage(string(out.Action))
	return Result{Record: rec, Outcome: out}, nil
}

func (p *Processor) profile(ctx context.Context, log logger.Logger, userID string) attendance.Profile {
	unknown := attendance.Profile{UserID: userID, RealName: attendance.UnknownUser}
	if p.directory == nil {
		return unknown
	}
	prof, err := p.directory.Profile(ctx, userID)
	if err != nil {
		log.Warn("Failed to look up user profile", logger.ErrorField(err))
		return unknown
	}
	if prof.RealName == "" {
		prof.RealName = attendance.UnknownUser
	}
	prof.UserID = userID
	return prof
}

// LogLine renders `<dd-MMM-yyyy> - <user> - <category> - "<message>"` using
// the message time in the business timezone.
func (p *Processor) LogLine(r attendance.Record) string {
	return fmt.Sprintf("%s - %s - %s - %q",
		r.Timestamp.In(p.loc).Format(LogDateLayout),
		r.DisplayName(),
		r.Category,
		r.Message,
	)
}
