package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	input  string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, prompt, input string) (string, error) {
	f.prompt, f.input = prompt, input
	return f.reply, f.err
}

func newClassifier(c *fakeCompleter) (*Classifier, *metrics.Metrics) {
	m := metrics.NewMetrics(false, false, logger.NewNopLogger())
	if c == nil {
		return New(nil, prompts.Default(), logger.NewNopLogger(), m), m
	}
	return New(c, prompts.Default(), logger.NewNopLogger(), m), m
}

func TestClassifyWithModel(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantLabel  string
		wantCat    attendance.Category
		wantConf   float64
		wantSource attendance.Source
	}{
		{"json", `{"category":"WFH","confidence":0.95}`, "WFH", attendance.CategoryWFH, 0.95, attendance.SourceLLM},
		{"fenced", "```json\n{\"category\":\"Half day leave\",\"confidence\":0.9}\n```", "Half day leave", attendance.CategoryHalfLeave, 0.9, attendance.SourceLLM},
		{"prompt label", `{"category":"Running late or late arrival","confidence":0.7}`, "Running late or late arrival", attendance.CategoryComeLate, 0.7, attendance.SourceLLM},
		{"defaults", `{"category":"","confidence":0}`, "FULL DAY LEAVE", attendance.CategoryFullLeave, 0.8, attendance.SourceLLM},
		{"out of range confidence", `{"category":"LEAVING EARLY","confidence":7}`, "LEAVING EARLY", attendance.CategoryLeaveEarly, 0.8, attendance.SourceLLM},
		{"string confidence", `{"category":"LATE TO OFFICE","confidence":"0.65"}`, "LATE TO OFFICE", attendance.CategoryComeLate, 0.65, attendance.SourceLLM},
		{"text reply", "I think this is a late arrival. Confidence: 0.72", "LATE TO OFFICE", attendance.CategoryComeLate, 0.72, attendance.SourceText},
		{"unknown label", `{"category":"SICK","confidence":0.9} leave`, "FULL DAY LEAVE", attendance.CategoryFullLeave, 0.8, attendance.SourceText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{reply: tt.reply}
			c, _ := newClassifier(fc)

			got, err := c.Classify(context.Background(), "  some message  ")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.Equal(t, tt.wantCat, got.Category)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Contains(t, fc.prompt, "Message: some message")
			assert.Equal(t, "some message", fc.input)
		})
	}
}

func TestClassifyFallsBack(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("rate limited")}
	c, m := newClassifier(fc)

	got, err := c.Classify(context.Background(), "WFH today, plumber visiting")
	require.NoError(t, err)
	assert.Equal(t, attendance.CategoryWFH, got.Category)
	assert.Equal(t, attendance.SourceFallback, got.Source)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("classify")))

	noModel, m2 := newClassifier(nil)
	got, err = noModel.Classify(context.Background(), "running late, stuck in traffic")
	require.NoError(t, err)
	assert.Equal(t, attendance.CategoryComeLate, got.Category)
	assert.Equal(t, 1.0, testutil.ToFloat64(m2.Fallbacks.WithLabelValues("classify")))
}

func TestClassifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc := &fakeCompleter{err: context.Canceled}
	c, _ := newClassifier(fc)

	_, err := c.Classify(ctx, "wfh")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyEmpty(t *testing.T) {
	c, _ := newClassifier(nil)
	_, err := c.Classify(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestFallback(t *testing.T) {
	tests := []struct {
		text string
		cat  attendance.Category
		conf float64
	}{
		{"wfh today", attendance.CategoryWFH, 0.8},
		{"Working from home tomorrow", attendance.CategoryWFH, 0.8},
		{"I'll be remote", attendance.CategoryWFH, 0.8},
		{"work at home, half day", attendance.CategoryWFH, 0.8},
		{"taking half day off in the afternoon", attendance.CategoryHalfLeave, 0.8},
		{"morning off for the dentist", attendance.CategoryHalfLeave, 0.8},
		{"on sick leave", attendance.CategoryFullLeave, 0.7},
		{"off today", attendance.CategoryFullLeave, 0.7},
		{"vacation next week", attendance.CategoryFullLeave, 0.7},
		{"train delayed", attendance.CategoryComeLate, 0.6},
		{"will be late by 30 min", attendance.CategoryComeLate, 0.6},
		{"leaving early for a school event", attendance.CategoryLeaveEarly, 0.6},
		{"hello team", attendance.CategoryFullLeave, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Fallback(tt.text)
			assert.Equal(t, tt.cat, got.Category)
			assert.InDelta(t, tt.conf, got.Confidence, 1e-9)
			assert.Equal(t, attendance.SourceFallback, got.Source)
		})
	}
}

func TestParseText(t *testing.T) {
	tests := []struct {
		reply   string
		message string
		cat     attendance.Category
		conf    float64
	}{
		{"This is work from home", "x", attendance.CategoryWFH, 0.8},
		{"category: half day", "wfh in the afternoon", attendance.CategoryWFH, 0.8},
		{"Half day leave, confidence 0.9", "x", attendance.CategoryHalfLeave, 0.9},
		{"partial absence", "x", attendance.CategoryHalfLeave, 0.8},
		{"leaving early", "x", attendance.CategoryLeaveEarly, 0.8},
		{"full day", "x", attendance.CategoryFullLeave, 0.8},
		{"no idea", "x", attendance.CategoryFullLeave, 0.6},
		{"no idea, confidence: 3", "x", attendance.CategoryFullLeave, 0.6},
		{`{"category": "unknown", "confidence": 0.9}`, "x", attendance.CategoryFullLeave, 0.9},
		{`{'category': 'unknown', 'confidence': 0.75}`, "x", attendance.CategoryFullLeave, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got := ParseText(tt.reply, tt.message)
			assert.Equal(t, tt.cat, got.Category)
			assert.InDelta(t, tt.conf, got.Confidence, 1e-9)
			assert.Equal(t, attendance.SourceText, got.Source)
		})
	}
}
