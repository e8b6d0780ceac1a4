package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// 03:30 on Thursday 27 March in IST, still Wednesday in UTC.
var fixedNow = time.Date(2025, 3, 26, 22, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	t, err := attendance.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, prompt, _ string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func newExtractor(c *fakeCompleter) (*Extractor, *metrics.Metrics) {
	m := metrics.NewMetrics(false, false, logger.NewNopLogger())
	opts := []Option{WithClock(func() time.Time { return fixedNow }), WithLocation(ist)}
	if c == nil {
		return New(nil, prompts.Default(), logger.NewNopLogger(), m, opts...), m
	}
	return New(c, prompts.Default(), logger.NewNopLogger(), m, opts...), m
}

func TestNextWeekday(t *testing.T) {
	wed := date("2025-03-26")
	assert.Equal(t, date("2025-03-31"), NextWeekday(wed, time.Monday))
	assert.Equal(t, date("2025-03-27"), NextWeekday(wed, time.Thursday))
	assert.Equal(t, date("2025-04-02"), NextWeekday(wed, time.Wednesday))
	assert.Equal(t, date("2025-03-30"), NextWeekday(wed, time.Sunday))
}

func TestReferenceData(t *testing.T) {
	e, _ := newExtractor(nil)
	data := e.ReferenceData("msg", fixedNow)

	assert.Equal(t, "msg", data.Message)
	assert.Equal(t, "2025-03-27 03:30", data.Now)
	assert.Equal(t, "IST", data.Timezone)
	assert.Equal(t, "2025-03-27 (Thursday)", data.Today)
	assert.Equal(t, "2025-03-28 (Friday)", data.Tomorrow)
	assert.Equal(t, "2025-03-26 (Wednesday)", data.Yesterday)
	assert.Equal(t, "2025-04-03", data.NextWeek)
	assert.Equal(t, "April 2025", data.NextMonth)
	require.Len(t, data.Weekdays, 7)
	assert.Equal(t, prompts.Weekday{Name: "Monday", Date: "2025-03-31"}, data.Weekdays[0])
	assert.Equal(t, prompts.Weekday{Name: "Thursday", Date: "2025-04-03"}, data.Weekdays[3])
}

func TestExtractWithModel(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantStart string
		wantEnd   string
		wantDur   float64
		wantLeave bool
		wantWFH   bool
		wantWhy   string
		source    attendance.Source
	}{
		{
			name:      "explicit span",
			reply:     `{"isLeaveRequest":true,"startDate":"2025-03-28","endDate":"2025-03-31","durationDays":2,"reason":"family"}`,
			wantStart: "2025-03-28", wantEnd: "2025-03-31", wantDur: 2, wantLeave: true, wantWhy: "family",
			source: attendance.SourceLLM,
		},
		{
			name:      "stretches single day span",
			reply:     `{"isLeaveRequest":true,"startDate":"2025-03-28","endDate":"2025-03-28","durationDays":3}`,
			wantStart: "2025-03-28", wantEnd: "2025-03-30", wantDur: 3, wantLeave: true,
			source: attendance.SourceLLM,
		},
		{
			name:      "half day ends on start",
			reply:     `{"isLeaveRequest":true,"startDate":"2025-03-28","endDate":"2025-03-29","durationDays":0.5}`,
			wantStart: "2025-03-28", wantEnd: "2025-03-28", wantDur: 0.5, wantLeave: true,
			source: attendance.SourceLLM,
		},
		{
			name:      "end before start is clamped",
			reply:     `{"isLeaveRequest":true,"startDate":"2025-03-28","endDate":"2025-03-20","durationDays":1}`,
			wantStart: "2025-03-28", wantEnd: "2025-03-28", wantDur: 1, wantLeave: true,
			source: attendance.SourceLLM,
		},
		{
			name:      "missing values default to today",
			reply:     "```json\n{\"isWorkingFromHome\":true,\"reason\":\"null\"}\n```",
			wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 1, wantWFH: true,
			source: attendance.SourceLLM,
		},
		{
			name:      "timestamp dates and string duration",
			reply:     `{"isLeaveRequest":true,"startDate":"2025-03-28T00:00:00Z","durationDays":"2"}`,
			wantStart: "2025-03-28", wantEnd: "2025-03-29", wantDur: 2, wantLeave: true,
			source: attendance.SourceLLM,
		},
		{
			name:      "text reply",
			reply:     "isLeaveRequest: true, startDate: 2025-04-01, endDate: 2025-04-02, durationDays: 2",
			wantStart: "2025-04-01", wantEnd: "2025-04-02", wantDur: 2, wantLeave: true,
			source: attendance.SourceText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{reply: tt.reply}
			e, _ := newExtractor(fc)

			d, err := e.Extract(context.Background(), " off for a bit ")
			require.NoError(t, err)
			assert.Equal(t, date(tt.wantStart), d.StartDate)
			assert.Equal(t, date(tt.wantEnd), d.EndDate)
			assert.InDelta(t, tt.wantDur, d.DurationDays, 1e-9)
			assert.Equal(t, tt.wantLeave, d.IsLeaveRequest)
			assert.Equal(t, tt.wantWFH, d.IsWorkingFromHome)
			if tt.wantWhy == "" {
				assert.Nil(t, d.Reason)
			} else {
				require.NotNil(t, d.Reason)
				assert.Equal(t, tt.wantWhy, *d.Reason)
			}
			assert.Equal(t, tt.source, d.Source)
			assert.Equal(t, "off for a bit", d.OriginalMessage)
			assert.Equal(t, fixedNow, d.ExtractedAt)
			assert.Contains(t, fc.prompt, "2025-03-27 (Thursday)")
		})
	}
}

func TestExtractFallsBack(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("upstream 500")}
	e, m := newExtractor(fc)

	d, err := e.Extract(context.Background(), "on leave tomorrow")
	require.NoError(t, err)
	assert.Equal(t, attendance.SourceFallback, d.Source)
	assert.True(t, d.IsLeaveRequest)
	assert.Equal(t, date("2025-03-28"), d.StartDate)
	assert.Equal(t, fixedNow, d.ExtractedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("extract")))
}

func TestExtractWithoutCompleter(t *testing.T) {
	e, _ := newExtractor(nil)
	d, err := e.Extract(context.Background(), "wfh")
	require.NoError(t, err)
	assert.True(t, d.IsWorkingFromHome)
	assert.Equal(t, date("2025-03-27"), d.StartDate)
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, _ := newExtractor(&fakeCompleter{err: context.Canceled})

	_, err := e.Extract(ctx, "wfh")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallback(t *testing.T) {
	today := date("2025-03-27")
	tests := []struct {
		text                    string
		wfh, leave, late, early bool
		wantStart, wantEnd      string
		wantDur                 float64
	}{
		{text: "WFH today", wfh: true, wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 1},
		{text: "I'll be on leave tomorrow", leave: true, wantStart: "2025-03-28", wantEnd: "2025-03-28", wantDur: 1},
		{text: "Taking 3 days off next week", leave: true, wantStart: "2025-04-03", wantEnd: "2025-04-05", wantDur: 3},
		{text: "On vacation next week", leave: true, wantStart: "2025-04-03", wantEnd: "2025-04-07", wantDur: 5},
		{text: "half day tomorrow afternoon", leave: true, wantStart: "2025-03-28", wantEnd: "2025-03-28", wantDur: 0.5},
		{text: "Working remote, afternoon off", wfh: true, leave: true, wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 0.5},
		{text: "Train delayed", late: true, wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 1},
		{text: "heading to the office late", late: true, wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 1},
		{text: "leaving early for a school event", early: true, wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 1},
		{text: "vacation for 2 days", leave: true, wantStart: "2025-03-27", wantEnd: "2025-03-28", wantDur: 2},
		{text: "hello team", wantStart: "2025-03-27", wantEnd: "2025-03-27", wantDur: 1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d := Fallback(tt.text, today)
			assert.Equal(t, tt.wfh, d.IsWorkingFromHome, "wfh")
			assert.Equal(t, tt.leave, d.IsLeaveRequest, "leave")
			assert.Equal(t, tt.late, d.IsRunningLate, "late")
			assert.Equal(t, tt.early, d.IsLeavingEarly, "early")
			assert.Equal(t, date(tt.wantStart), d.StartDate)
			assert.Equal(t, date(tt.wantEnd), d.EndDate)
			assert.InDelta(t, tt.wantDur, d.DurationDays, 1e-9)
			assert.Equal(t, tt.text, d.OriginalMessage)
			assert.Equal(t, attendance.SourceFallback, d.Source)
		})
	}
}

func TestParseText(t *testing.T) {
	today := date("2025-03-27")

	d := ParseText("isWorkingFromHome: false, isRunningLate: true", today)
	assert.False(t, d.IsWorkingFromHome)
	assert.True(t, d.IsRunningLate)
	assert.False(t, d.IsLeaveRequest)
	assert.Equal(t, today, d.StartDate)
	assert.Equal(t, 1.0, d.DurationDays)

	d = ParseText(`"startDate": "2025-04-10", "durationDays": 0.5 wfh`, today)
	assert.True(t, d.IsWorkingFromHome)
	assert.Equal(t, date("2025-04-10"), d.StartDate)
	assert.Equal(t, date("2025-04-10"), d.EndDate)
	assert.Equal(t, 0.5, d.DurationDays)
}

func TestNormalise(t *testing.T) {
	d := Normalise(attendance.Details{StartDate: date("2025-03-28")})
	assert.Equal(t, 1.0, d.DurationDays)
	assert.Equal(t, date("2025-03-28"), d.EndDate)

	d = Normalise(attendance.Details{StartDate: date("2025-03-28"), EndDate: date("2025-03-28"), DurationDays: 2.5})
	assert.Equal(t, date("2025-03-30"), d.EndDate)
}
