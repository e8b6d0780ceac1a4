package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

var confidenceRe = regexp.MustCompile(`confidence["']?[:\s]*([0-9.]+)`)

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func classification(label string, confidence float64, src attendance.Source) attendance.Classification {
	return attendance.Classification{
		Label:      label,
		Category:   attendance.MapLabel(label),
		Confidence: confidence,
		Source:     src,
	}
}

// Fallback classifies text with keyword rules. The first matching rule wins.
func Fallback(text string) attendance.Classification {
	t := strings.ToLower(text)

	switch {
	case containsAny(t, "wfh", "work from home", "working from home", "remote") ||
		(strings.Contains(t, "work") && containsAny(t, "home", "remote")):
		return classification(attendance.LabelWFH, 0.8, attendance.SourceFallback)

	case containsAny(t, "half day leave", "half-day leave", "taking half day", "half day off",
		"half day sick", "partial day leave", "morning off", "afternoon off"):
		return classification(attendance.LabelHalfDayLeave, 0.8, attendance.SourceFallback)

	case containsAny(t, "leave", "off today", "sick leave", "vacation", "taking off"):
		return classification(attendance.LabelFullDayLeave, 0.7, attendance.SourceFallback)

	case containsAny(t, "late", "delayed"):
		return classification(attendance.LabelLateToOffice, 0.6, attendance.SourceFallback)

	case containsAny(t, "leaving early", "early departure"):
		return classification(attendance.LabelLeavingEarly, 0.6, attendance.SourceFallback)

	default:
		return classification(attendance.LabelFullDayLeave, 0.5, attendance.SourceFallback)
	}
}

// ParseText reads a category from a free-text model reply. message is the
// user's original text, consulted for work-from-home phrasing.
func ParseText(reply, message string) attendance.Classification {
	r := strings.ToLower(reply)
	m := strings.ToLower(message)

	var c attendance.Classification
	switch {
	case containsAny(r, "work from home", "wfh") ||
		containsAny(m, "wfh", "work from home", "working from home") ||
		(strings.Contains(m, "work") && strings.Contains(m, "home")):
		c = classification(attendance.LabelWFH, 0.8, attendance.SourceText)
	case containsAny(r, "half day leave", "taking half day", "half day off", "half", "partial"):
		c = classification(attendance.LabelHalfDayLeave, 0.8, attendance.SourceText)
	case strings.Contains(r, "late"):
		c = classification(attendance.LabelLateToOffice, 0.8, attendance.SourceText)
	case strings.Contains(r, "early"):
		c = classification(attendance.LabelLeavingEarly, 0.8, attendance.SourceText)
	case containsAny(r, "leave", "full day"):
		c = classification(attendance.LabelFullDayLeave, 0.8, attendance.SourceText)
	default:
		c = classification(attendance.LabelFullDayLeave, 0.6, attendance.SourceText)
	}

	if m := confidenceRe.FindStringSubmatch(r); m != nil {
		if v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64); err == nil && v > 0 && v <= 1 {
			c.Confidence = v
		}
	}
	return c
}
