package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/llm"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("query is required")

// Service turns questions into store searches and formatted replies.
type Service struct {
	completer llm.Completer
	prompts   *prompts.Manager
	store     attendance.Store
	log       logger.Logger
	metrics   *metrics.Metrics
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates a Service. completer may be nil, in which case every
// question goes through the keyword parser.
func NewService(completer llm.Completer, p *prompts.Manager, store attendance.Store, log logger.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		completer: completer,
		prompts:   p,
		store:     store,
		log:       log,
		metrics:   m,
		loc:       time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse converts text into validated Params.
func (s *Service) Parse(ctx context.Context, text string) (Params, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Params{}, ErrEmptyQuery
	}
	log := logger.GetLoggerFromContext(ctx, s.log)

	if s.completer == nil {
		return s.fallback(text), nil
	}

	now := s.now().In(s.loc)
	prompt, err := s.prompts.Render(prompts.Query, prompts.QueryData{
		Query:    text,
		Today:    now.Format(attendance.DateLayout),
		Tomorrow: now.AddDate(0, 0, 1).Format(attendance.DateLayout),
		Weekday:  now.Weekday().String(),
		Month:    now.Format("January"),
		Timezone: s.loc.String(),
	})
	if err != nil {
		log.Error("Failed to render query prompt", logger.ErrorField(err))
		return s.fallback(text), nil
	}

	out, err := s.completer.Complete(ctx, prompt, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Params{}, fmt.Errorf("query parsing cancelled: %w", ctxErr)
		}
		log.Warn("Query model failed, using keyword parser", logger.ErrorField(err))
		return s.fallback(text), nil
	}

	var p Params
	if err := llm.ExtractJSON(out, &p); err != nil {
		log.Warn("Query reply had no usable JSON, using keyword parser", logger.ErrorField(err))
		return s.fallback(text), nil
	}
	return validate(p), nil
}

func (s *Service) fallback(text string) Params {
	s.metrics.ObserveFallback("query")
	return Fallback(text)
}

// Run parses text, searches the store and formats the result.
func (s *Service) Run(ctx context.Context, text string) (Params, string, error) {
	p, err := s.Parse(ctx, text)
	if err != nil {
		return Params{}, "", err
	}
	log := logger.GetLoggerFromContext(ctx, s.log).WithFields(logger.QueryTypeField(string(p.QueryType)))

	f, dropped := BuildFilter(p, s.now(), s.loc)
	if len(dropped) > 0 {
		log.Warn("Ignoring unsupported query filters", logger.Field("filters", dropped))
	}

	records, err := s.store.Search(ctx, f)
	if err != nil {
		return p, "", fmt.Errorf("search records: %w", err)
	}

	s.metrics.ObserveQuery(string(p.QueryType))
	log.Info("Answered attendance query", logger.IntField("records", len(records)))
	return p, Format(p, records), nil
}

// Answer is Run for chat replies: failures become a warning line.
func (s *Service) Answer(ctx context.Context, text string) string {
	_, reply, err := s.Run(ctx, text)
	if err != nil {
		logger.GetLoggerFromContext(ctx, s.log).Error("Query failed", logger.ErrorField(err))
		return ErrorReply(err)
	}
	return reply
}

// ErrorReply is the user-facing text for a failed query.
func ErrorReply(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return "⚠️ Error processing query: " + msg
}
