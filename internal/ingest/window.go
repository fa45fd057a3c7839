package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/jinzhu/now"
)

// DayLayout is the layout of the day partition column and of CLI dates.
const DayLayout = "2006-01-02"

// Window selects the rows of one venue between two days, both inclusive.
type Window struct {
	Vcid     string
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// NewWindow validates and normalizes a window. Start and End are truncated to
// the beginning of their day in loc.
func NewWindow(vcid string, start, end time.Time, loc *time.Location) (Window, error) {
	if vcid == "" {
		return Window{}, fmt.Errorf("vcid is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	w := Window{
		Vcid:     vcid,
		Start:    now.New(start.In(loc)).BeginningOfDay(),
		End:      now.New(end.In(loc)).BeginningOfDay(),
		Location: loc,
	}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("end date %s is before start date %s",
			w.End.Format(DayLayout), w.Start.Format(DayLayout))
	}
	return w, nil
}

// ParseWindow builds a window from YYYY-MM-DD strings.
func ParseWindow(vcid, start, end string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := time.ParseInLocation(DayLayout, start, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(DayLayout, end, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return NewWindow(vcid, s, e, loc)
}

// Today returns the beginning of the current day in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return now.New(time.Now().In(loc)).BeginningOfDay()
}

// ContainsDay reports whether day falls within the window.
func (w Window) ContainsDay(day time.Time) bool {
	d := now.New(day.In(w.Location)).BeginningOfDay()
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of days covered by the window.
func (w Window) Days() int {
	return int(math.Round(w.End.Sub(w.Start).Hours()/24)) + 1
}

// parseDay parses a day partition value in the window's zone.
func (w Window) parseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, w.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return d, nil
}
