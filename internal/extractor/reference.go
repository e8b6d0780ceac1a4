package extractor

import (
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
)

var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// NextWeekday returns the first date after today falling on target. A target
// equal to today's weekday is a week away.
func NextWeekday(today time.Time, target time.Weekday) time.Time {
	diff := (int(target) - int(today.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return today.AddDate(0, 0, diff)
}

func withWeekday(t time.Time) string {
	return t.Format(attendance.DateLayout) + " (" + t.Weekday().String() + ")"
}

// ReferenceData computes the anchor dates embedded in the extraction prompt.
func (e *Extractor) ReferenceData(message string, now time.Time) prompts.ExtractData {
	today := attendance.DateOf(now, e.loc)

	days := make([]prompts.Weekday, 0, len(weekOrder))
	for _, wd := range weekOrder {
		days = append(days, prompts.Weekday{
			Name: wd.String(),
			Date: NextWeekday(today, wd).Format(attendance.DateLayout),
		})
	}

	return prompts.ExtractData{
		Message:   message,
		Now:       now.In(e.loc).Format("2006-01-02 15:04"),
		Timezone:  e.loc.String(),
		Today:     withWeekday(today),
		Tomorrow:  withWeekday(today.AddDate(0, 0, 1)),
		Yesterday: withWeekday(today.AddDate(0, 0, -1)),
		NextWeek:  today.AddDate(0, 0, 7).Format(attendance.DateLayout),
		NextMonth: today.AddDate(0, 0, 30).Format("January 2006"),
		Weekdays:  days,
	}
}
