package domain

import "time"

const DateLayout = "2006-01-02"

type DateWindow struct {
	Today    string `json:"today"`
	Tomorrow string `json:"tomorrow"`
}

func (w DateWindow) Dates() []string {
	return []string{w.Today, w.Tomorrow}
}

func (w DateWindow) Contains(date string) bool {
	return date == w.Today || date == w.Tomorrow
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// RelevantDates returns the calendar days the published offers are limited to.
// now is interpreted in its own location.
func RelevantDates(now time.Time) DateWindow {
	return DateWindow{
		Today:    FormatDate(now),
		Tomorrow: FormatDate(now.AddDate(0, 0, 1)),
	}
}

func Yesterday(now time.Time) string {
	return FormatDate(now.AddDate(0, 0, -1))
}
