package attendance

import "strings"

// Category is the normalised attendance category stored with every record.
type Category string

const (
	CategoryWFH        Category = "wfh"
	CategoryFullLeave  Category = "full_leave"
	CategoryHalfLeave  Category = "half_leave"
	CategoryComeLate   Category = "come_late"
	CategoryLeaveEarly Category = "leave_early"
	CategoryUnknown    Category = "unknown"
)

// Categories lists the categories a query may filter on.
var Categories = []Category{
	CategoryWFH,
	CategoryFullLeave,
	CategoryHalfLeave,
	CategoryComeLate,
	CategoryLeaveEarly,
}

// Labels produced by the classifier.
const (
	LabelWFH          = "WFH"
	LabelFullDayLeave = "FULL DAY LEAVE"
	LabelHalfDayLeave = "HALF DAY LEAVE"
	LabelLateToOffice = "LATE TO OFFICE"
	LabelLeavingEarly = "LEAVING EARLY"
)

var labelToCategory = map[string]Category{
	"WFH":                          CategoryWFH,
	"WORK FROM HOME":               CategoryWFH,
	"FULL DAY LEAVE":               CategoryFullLeave,
	"HALF DAY LEAVE":               CategoryHalfLeave,
	"LATE TO OFFICE":               CategoryComeLate,
	"LEAVING EARLY":                CategoryLeaveEarly,
	"RUNNING LATE OR LATE ARRIVAL": CategoryComeLate,
	"EARLY LEAVE":                  CategoryLeaveEarly,
}

// MapLabel turns a classifier label such as "Full day leave" into a Category.
// Already-normalised values pass through; anything else is CategoryUnknown.
func MapLabel(label string) Category {
	norm := strings.ToUpper(strings.Join(strings.Fields(label), " "))
	if c, ok := labelToCategory[norm]; ok {
		return c
	}
	if c := Category(strings.ToLower(norm)); c.Valid() {
		return c
	}
	return CategoryUnknown
}

// Valid reports whether c is one of the known, filterable categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Pretty is the human label used in Slack replies.
func (c Category) Pretty() string {
	switch c {
	case CategoryWFH:
		return "Work From Home"
	case CategoryFullLeave:
		return "Full Day Leave"
	case CategoryHalfLeave:
		return "Half Day Leave"
	case CategoryComeLate:
		return "Coming Late"
	case CategoryLeaveEarly:
		return "Leave Early"
	case "":
		return "Unknown"
	default:
		return string(c)
	}
}
