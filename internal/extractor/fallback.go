package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

var (
	offRe      = regexp.MustCompile(`\boff\b`)
	daysRe     = regexp.MustCompile(`(\d+)\s+days?`)
	startRe    = regexp.MustCompile(`startdate["']?[:\s]*["']?(\d{4}-\d{2}-\d{2})`)
	endRe      = regexp.MustCompile(`enddate["']?[:\s]*["']?(\d{4}-\d{2}-\d{2})`)
	durationRe = regexp.MustCompile(`durationdays["']?[:\s]*([0-9]+(?:\.[0-9]+)?)`)
)

var halfDayPhrases = []string{
	"half day", "half-day", "half leave", "partial day", "morning off",
	"afternoon off", "0.5 days", "4 hours", "morning only", "afternoon only",
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Fallback extracts details with keyword rules, relative to today.
func Fallback(text string, today time.Time) attendance.Details {
	t := strings.ToLower(text)
	d := attendance.Details{
		StartDate:       today,
		EndDate:         today,
		DurationDays:    1,
		OriginalMessage: text,
		Source:          attendance.SourceFallback,
	}

	switch {
	case containsAny(t, "wfh", "work from home", "remote"):
		d.IsWorkingFromHome = true
	case strings.Contains(t, "leave") || offRe.MatchString(t) || strings.Contains(t, "vacation"):
		d.IsLeaveRequest = true
	case containsAny(t, "late", "delayed"):
		d.IsRunningLate = true
	case containsAny(t, "leaving early", "early departure"):
		d.IsLeavingEarly = true
	}

	if containsAny(t, halfDayPhrases...) {
		d.DurationDays = 0.5
		d.IsLeaveRequest = true
	}

	switch {
	case strings.Contains(t, "tomorrow"):
		d.StartDate = today.AddDate(0, 0, 1)
		d.EndDate = d.StartDate
	case strings.Contains(t, "next week"):
		d.StartDate = today.AddDate(0, 0, 7)
		if d.DurationDays == 1 {
			d.DurationDays = 5
		}
		d.EndDate = spanEnd(d.StartDate, d.DurationDays)
	}

	if d.DurationDays != 0.5 {
		if m := daysRe.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				d.DurationDays = float64(n)
			}
		}
	}

	switch {
	case d.DurationDays == 0.5:
		d.EndDate = d.StartDate
	case d.DurationDays > 1:
		d.EndDate = spanEnd(d.StartDate, d.DurationDays)
	}
	return d
}

// flag reports whether any key appears in s without an explicit false after it.
func flag(s string, keys ...string) bool {
	for _, key := range keys {
		rest := s
		for {
			i := strings.Index(rest, key)
			if i < 0 {
				break
			}
			rest = rest[i+len(key):]
			window := rest
			if len(window) > 12 {
				window = window[:12]
			}
			if !strings.Contains(window, "false") {
				return true
			}
		}
	}
	return false
}

// ParseText reads details from a free-text model reply.
func ParseText(reply string, today time.Time) attendance.Details {
	r := strings.ToLower(reply)
	d := attendance.Details{
		IsWorkingFromHome: flag(r, "workingfromhome", "wfh"),
		IsLeaveRequest:    flag(r, "leaverequest", "leave"),
		IsRunningLate:     flag(r, "runninglate", "late"),
		IsLeavingEarly:    flag(r, "leavingearly", "early"),
		StartDate:         today,
		EndDate:           today,
		DurationDays:      1,
		Source:            attendance.SourceText,
	}

	if m := startRe.FindStringSubmatch(r); m != nil {
		d.StartDate = parseDateOr(m[1], today)
		d.EndDate = d.StartDate
	}
	if m := endRe.FindStringSubmatch(r); m != nil {
		d.EndDate = parseDateOr(m[1], d.StartDate)
	}
	if m := durationRe.FindStringSubmatch(r); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			d.DurationDays = v
		}
	}
	return d
}
