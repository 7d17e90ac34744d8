// Package schedule lays calendar occurrences out over the days of a month
// and annotates each day with its holiday classification.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"hospcal/internal/holiday"
	"hospcal/internal/ics"
	"hospcal/internal/model"
)

// Tone is how a day is coloured in the month view.
type Tone string

const (
	ToneWeekday  Tone = "weekday"
	ToneSaturday Tone = "saturday"
	ToneRed      Tone = "red"
)

// Day is one cell of the month view.
type Day struct {
	Date        holiday.Date       `json:"date"`
	Weekday     time.Weekday       `json:"weekday"`
	Kind        holiday.Kind       `json:"kind"`
	HolidayName string             `json:"holiday_name,omitempty"`
	Tone        Tone               `json:"tone"`
	Events      []model.Occurrence `json:"events"`
}

// Month is the schedule of one calendar month.
type Month struct {
	Year       int        `json:"year"`
	Month      time.Month `json:"month"`
	Timezone   string     `json:"timezone"`
	RangeStart time.Time  `json:"range_start"`
	RangeEnd   time.Time  `json:"range_end"`
	Days       []Day      `json:"days"`

	// Truncated lists UIDs whose recurrence hit the expansion cap.
	Truncated []string `json:"truncated_uids,omitempty"`
}

// Window returns [first day of month, first day of next month) at midnight
// in loc.
func Window(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// ToneOf colours Sundays and red-letter days red and plain Saturdays as
// Saturday.
func ToneOf(d holiday.Date) Tone {
	switch {
	case d.Weekday() == time.Sunday || holiday.IsNationalHoliday(d):
		return ToneRed
	case d.Weekday() == time.Saturday:
		return ToneSaturday
	default:
		return ToneWeekday
	}
}

// Build places occs on the days of the month by their start date in loc.
// When calendars is non-empty only occurrences of those calendar IDs are kept.
func Build(year int, month time.Month, loc *time.Location, occs []model.Occurrence, calendars []string) Month {
	if loc == nil {
		loc = time.Local
	}
	start, end := Window(year, month, loc)
	out := Month{
		Year:       year,
		Month:      month,
		Timezone:   loc.String(),
		RangeStart: start,
		RangeEnd:   end,
	}

	keep := calendarFilter(calendars)
	byDate := make(map[holiday.Date][]model.Occurrence)
	for _, occ := range occs {
		if !keep(occ.CalendarID) {
			continue
		}
		d := holiday.DateOf(occ.Start.In(loc))
		byDate[d] = append(byDate[d], occ)
	}

	for d := holiday.NewDate(year, month, 1); d.Month == month; d = d.AddDays(1) {
		info := holiday.Classify(d)
		events := byDate[d]
		if events == nil {
			events = []model.Occurrence{}
		}
		sortEvents(events)
		out.Days = append(out.Days, Day{
			Date:        d,
			Weekday:     info.Weekday,
			Kind:        info.Kind,
			HolidayName: info.Name,
			Tone:        ToneOf(d),
			Events:      events,
		})
	}

	return out
}

// FromEvents expands parsed feed events over the month window and builds the
// month from the result.
func FromEvents(events []ics.ParsedEvent, year int, month time.Month, loc *time.Location, calendars []string) (Month, error) {
	if month < time.January || month > time.December {
		return Month{}, fmt.Errorf("schedule: month %d out of range", month)
	}
	if loc == nil {
		loc = time.Local
	}

	keep := calendarFilter(calendars)
	selected := make([]ics.ParsedEvent, 0, len(events))
	for _, ev := range events {
		if keep(ev.Source.ID) {
			selected = append(selected, ev)
		}
	}

	start, end := Window(year, month, loc)
	res, err := ics.ExpandOccurrences(selected, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return Month{}, fmt.Errorf("schedule: %w", err)
	}

	m := Build(year, month, loc, res.Occurrences, nil)
	m.Truncated = res.TruncatedEvents
	return m, nil
}

func calendarFilter(ids []string) func(string) bool {
	if len(ids) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

// sortEvents orders all-day events first, then by start, then by summary.
func sortEvents(events []model.Occurrence) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Summary < b.Summary
	})
}
