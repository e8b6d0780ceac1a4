// Package llm wraps the completion providers behind a single Completer
// interface. Callers render their own prompt and parse the reply; every
// consumer has a deterministic fallback, so a nil Completer is valid.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

var (
	// ErrNoJSON is returned by ExtractJSON when the text holds no decodable object.
	ErrNoJSON = errors.New("no JSON object in completion")
	// ErrNoProvider is returned by New for the "none" provider.
	ErrNoProvider = errors.New("no llm provider configured")
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Completer turns a rendered prompt into text.
type Completer interface {
	Name() string
	// Complete sends prompt to the model. input is the raw user text, which
	// some providers forward separately.
	Complete(ctx context.Context, prompt, input string) (string, error)
}

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	objectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ExtractJSON decodes the first JSON object found in text into dest. Code
// fences are stripped; otherwise the widest {...} span is tried.
func ExtractJSON(text string, dest any) error {
	s := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") && json.Unmarshal([]byte(s), dest) == nil {
		return nil
	}
	if span := objectRe.FindString(s); span != "" {
		if err := json.Unmarshal([]byte(span), dest); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

// instrumented adds a deadline, logging and metrics to a Completer.
type instrumented struct {
	next    Completer
	task    string
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Metrics
}

// Instrument wraps c for one task (classify, extract, query). A nil c stays nil.
func Instrument(c Completer, task string, timeout time.Duration, log logger.Logger, m *metrics.Metrics) Completer {
	if c == nil {
		return nil
	}
	return &instrumented{next: c, task: task, timeout: timeout, log: log, metrics: m}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Complete(ctx context.Context, prompt, input string) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := i.next.Complete(ctx, prompt, input)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyCompletion
	}
	i.metrics.ObserveLLM(i.next.Name(), i.task, err)

	log := logger.GetLoggerFromContext(ctx, i.log).WithFields(
		logger.ProviderField(i.next.Name()),
		logger.StringField("task", i.task),
		logger.DurationField("duration", time.Since(start)),
	)
	if err != nil {
		log.Warn("LLM completion failed", logger.ErrorField(err))
		return "", err
	}
	log.Debug("LLM completion received", logger.IntField("chars", len(out)))
	return out, nil
}
