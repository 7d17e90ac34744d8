// Package holiday classifies calendar dates under Japan's Public Holiday Act.
//
// The engine is a set of pure functions over Date: no I/O, no shared mutable
// state, safe for concurrent use. Rules are year-sensitive and reproduce the
// statute's history from its effective date (1948-07-20) onwards, including
// the substitute-holiday rule (1973-04-12), the citizens' holiday gap days
// and the one-off imperial and Olympic dates.
package holiday

import (
	"fmt"
	"time"
)

// Kind is the classification of a single date.
type Kind int

const (
	// Ordinary is not a holiday of any kind.
	Ordinary Kind = iota
	// Citizens is 国民の休日: a day between two national holidays or a
	// designated rest day.
	Citizens
	// Substitute is 振替休日: observed because a national holiday fell on Sunday.
	Substitute
	// National is 国民の祝日: a holiday named by the statute.
	National
)

const substituteName = "振替休日"

var (
	// statuteEffective is the day the Public Holiday Act took effect.
	statuteEffective = Date{Year: 1948, Month: time.July, Day: 20}
	// substituteEffective is the first day a Monday could become 振替休日.
	substituteEffective = Date{Year: 1973, Month: time.April, Day: 12}
)

var kindNames = map[Kind]string{
	Ordinary:   "ordinary",
	Citizens:   "citizens",
	Substitute: "substitute",
	National:   "national",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown holiday kind %q", string(b))
}

// Info is the classification of one date. Name is empty exactly when Kind is
// Ordinary.
type Info struct {
	Kind    Kind         `json:"kind"`
	Weekday time.Weekday `json:"weekday"`
	Name    string       `json:"name,omitempty"`
}

// Classify returns the holiday classification of d.
func Classify(d Date) Info {
	d = d.normalize()
	wd := d.Weekday()

	info := classifyByRules(d, wd)
	if info.Kind != Ordinary || wd != time.Monday || d.Before(substituteEffective) {
		return info
	}

	// A Monday whose Sunday was a national holiday. Sundays are never
	// substitutes themselves, so one step back is all there is.
	prev := d.AddDays(-1)
	if classifyByRules(prev, time.Sunday).Kind == National {
		info.Kind = Substitute
		info.Name = substituteName
	}
	return info
}

// classifyByRules applies the month table only.
func classifyByRules(d Date, wd time.Weekday) Info {
	info := Info{Weekday: wd}
	if d.Before(statuteEffective) {
		return info
	}
	for _, r := range rulesByMonth[d.Month] {
		if r.applies(d, wd) {
			info.Kind = r.kind
			info.Name = r.name
			return info
		}
	}
	return info
}

// InYearEndBlackout reports whether d lies in the 12/28 - 1/3 closure window.
func InYearEndBlackout(d Date) bool {
	d = d.normalize()
	switch d.Month {
	case time.December:
		return d.Day >= 28
	case time.January:
		return d.Day <= 3
	}
	return false
}

func IsWeekend(d Date) bool {
	wd := d.normalize().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether d is a weekend day or has any holiday classification.
func IsHoliday(d Date) bool {
	return IsWeekend(d) || Classify(d).Kind != Ordinary
}

// IsHolidayExcludingSaturday is IsHoliday where a plain Saturday does not count.
func IsHolidayExcludingSaturday(d Date) bool {
	return d.normalize().Weekday() == time.Sunday || Classify(d).Kind != Ordinary
}

// IsNationalHoliday reports whether d is a red-letter day: a national,
// substitute or citizens' holiday, or any day of the year-end window.
func IsNationalHoliday(d Date) bool {
	switch Classify(d).Kind {
	case National, Substitute, Citizens:
		return true
	}
	return InYearEndBlackout(d)
}

// HolidayName returns the name of d's holiday, or "" on an ordinary day.
func HolidayName(d Date) string {
	return Classify(d).Name
}

// Holiday is a named day.
type Holiday struct {
	Date Date   `json:"date"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// InYear lists every named day of year in date order.
func InYear(year int) []Holiday {
	out := make([]Holiday, 0, 24)
	for m := time.January; m <= time.December; m++ {
		out = append(out, InMonth(year, m)...)
	}
	return out
}

// InMonth lists every named day of the month in date order.
func InMonth(year int, month time.Month) []Holiday {
	var out []Holiday
	for d := NewDate(year, month, 1); d.Month == month; d = d.AddDays(1) {
		if info := Classify(d); info.Kind != Ordinary {
			out = append(out, Holiday{Date: d, Kind: info.Kind, Name: info.Name})
		}
	}
	return out
}

// nextHorizon bounds Next; every year past 1948 has named days well within it.
const nextHorizon = 400

// Next returns the first named day strictly after d.
func Next(d Date) (Holiday, bool) {
	cur := d.normalize()
	for i := 0; i < nextHorizon; i++ {
		cur = cur.AddDays(1)
		if info := Classify(cur); info.Kind != Ordinary {
			return Holiday{Date: cur, Kind: info.Kind, Name: info.Name}, true
		}
	}
	return Holiday{}, false
}
