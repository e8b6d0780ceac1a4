// Package classifier assigns an attendance category to a chat message.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/llm"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

const (
	defaultLabel      = attendance.LabelFullDayLeave
	defaultConfidence = 0.8
)

// Classifier asks the model first and falls back to keyword rules.
type Classifier struct {
	completer llm.Completer
	prompts   *prompts.Manager
	log       logger.Logger
	metrics   *metrics.Metrics
}

// New creates a Classifier. completer may be nil.
func New(completer llm.Completer, p *prompts.Manager, log logger.Logger, m *metrics.Metrics) *Classifier {
	return &Classifier{completer: completer, prompts: p, log: log, metrics: m}
}

type reply struct {
	Category   string `json:"category"`
	Confidence any    `json:"confidence"`
}

// Classify returns the category of text. Model failures degrade to the
// keyword fallback; only a cancelled context is returned as an error.
func (c *Classifier) Classify(ctx context.Context, text string) (attendance.Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return attendance.Classification{}, ErrEmptyMessage
	}
	log := logger.GetLoggerFromContext(ctx, c.log)

	if c.completer == nil {
		return c.fallback(text), nil
	}

	prompt, err := c.prompts.Render(prompts.Classify, prompts.ClassifyData{Message: text})
	if err != nil {
		log.Error("Failed to render classification prompt", logger.ErrorField(err))
		return c.fallback(text), nil
	}

	out, err := c.completer.Complete(ctx, prompt, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attendance.Classification{}, fmt.Errorf("classification cancelled: %w", ctxErr)
		}
		log.Warn("Classification model failed, using keyword fallback", logger.ErrorField(err))
		return c.fallback(text), nil
	}

	var r reply
	if err := llm.ExtractJSON(out, &r); err != nil {
		log.Debug("Classification reply had no JSON, parsing text")
		return ParseText(out, text), nil
	}

	label := strings.TrimSpace(r.Category)
	if label == "" {
		label = defaultLabel
	}
	category := attendance.MapLabel(label)
	if category == attendance.CategoryUnknown {
		log.Debug("Unrecognised classification label", logger.StringField("label", label))
		return ParseText(out, text), nil
	}

	return attendance.Classification{
		Label:      label,
		Category:   category,
		Confidence: normaliseConfidence(toFloat(r.Confidence)),
		Source:     attendance.SourceLLM,
	}, nil
}

func (c *Classifier) fallback(text string) attendance.Classification {
	c.metrics.ObserveFallback("classify")
	return Fallback(text)
}

func normaliseConfidence(v float64) float64 {
	if v <= 0 || v > 1 {
		return defaultConfidence
	}
	return v
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
