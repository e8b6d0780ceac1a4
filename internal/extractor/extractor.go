// Package extractor pulls dates, duration and intent flags out of an
// attendance message.
package extractor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/llm"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

// Extractor resolves message details relative to a clock in the business
// timezone.
type Extractor struct {
	completer llm.Completer
	prompts   *prompts.Manager
	log       logger.Logger
	metrics   *metrics.Metrics
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Extractor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLocation sets the business timezone. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New creates an Extractor. completer may be nil.
func New(completer llm.Completer, p *prompts.Manager, log logger.Logger, m *metrics.Metrics, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		prompts:   p,
		log:       log,
		metrics:   m,
		loc:       time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location is the business timezone.
func (e *Extractor) Location() *time.Location { return e.loc }

type reply struct {
	IsWorkingFromHome bool    `json:"isWorkingFromHome"`
	IsLeaveRequest    bool    `json:"isLeaveRequest"`
	IsRunningLate     bool    `json:"isRunningLate"`
	IsLeavingEarly    bool    `json:"isLeavingEarly"`
	Reason            *string `json:"reason"`
	StartDate         string  `json:"startDate"`
	EndDate           string  `json:"endDate"`
	DurationDays      any     `json:"durationDays"`
}

// Extract returns the details of text. Model failures degrade to the
// keyword fallback; only a cancelled context is returned as an error.
func (e *Extractor) Extract(ctx context.Context, text string) (attendance.Details, error) {
	now := e.now()
	today := attendance.DateOf(now, e.loc)
	text = strings.TrimSpace(text)
	log := logger.GetLoggerFromContext(ctx, e.log)

	if e.completer == nil {
		return e.fallback(text, today, now), nil
	}

	prompt, err := e.prompts.Render(prompts.Extract, e.ReferenceData(text, now))
	if err != nil {
		log.Error("Failed to render extraction prompt", logger.ErrorField(err))
		return e.fallback(text, today, now), nil
	}

	out, err := e.completer.Complete(ctx, prompt, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attendance.Details{}, fmt.Errorf("extraction cancelled: %w", ctxErr)
		}
		log.Warn("Extraction model failed, using keyword fallback", logger.ErrorField(err))
		return e.fallback(text, today, now), nil
	}

	var r reply
	if err := llm.ExtractJSON(out, &r); err != nil {
		log.Debug("Extraction reply had no JSON, parsing text")
		d := ParseText(out, today)
		d.OriginalMessage, d.ExtractedAt = text, now
		return Normalise(d), nil
	}

	d := attendance.Details{
		IsWorkingFromHome: r.IsWorkingFromHome,
		IsLeaveRequest:    r.IsLeaveRequest,
		IsRunningLate:     r.IsRunningLate,
		IsLeavingEarly:    r.IsLeavingEarly,
		Reason:            cleanReason(r.Reason),
		StartDate:         parseDateOr(r.StartDate, today),
		EndDate:           parseDateOr(r.EndDate, time.Time{}),
		DurationDays:      toFloat(r.DurationDays),
		OriginalMessage:   text,
		ExtractedAt:       now,
		Source:            attendance.SourceLLM,
	}
	if d.EndDate.IsZero() {
		d.EndDate = d.StartDate
	}
	return Normalise(d), nil
}

func (e *Extractor) fallback(text string, today, now time.Time) attendance.Details {
	e.metrics.ObserveFallback("extract")
	d := Fallback(text, today)
	d.ExtractedAt = now
	return d
}

// Normalise repairs inconsistent spans: a missing duration is one day, a
// partial day ends on its start date, an end before the start is clamped and
// a multi-day duration with a single-day span is stretched.
func Normalise(d attendance.Details) attendance.Details {
	if d.DurationDays <= 0 {
		d.DurationDays = 1
	}
	if d.EndDate.IsZero() || d.EndDate.Before(d.StartDate) {
		d.EndDate = d.StartDate
	}
	switch {
	case d.DurationDays < 1:
		d.EndDate = d.StartDate
	case d.DurationDays > 1 && d.EndDate.Equal(d.StartDate):
		d.EndDate = spanEnd(d.StartDate, d.DurationDays)
	}
	return d
}

// spanEnd is start + ceil(days) - 1.
func spanEnd(start time.Time, days float64) time.Time {
	n := int(days)
	if float64(n) < days {
		n++
	}
	return start.AddDate(0, 0, n-1)
}

func parseDateOr(s string, def time.Time) time.Time {
	s = strings.TrimSpace(s)
	if len(s) >= len(attendance.DateLayout) {
		if t, err := attendance.ParseDate(s[:len(attendance.DateLayout)]); err == nil {
			return t
		}
	}
	return def
}

func cleanReason(r *string) *string {
	if r == nil {
		return nil
	}
	s := strings.TrimSpace(*r)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
