package holiday

import (
	"slices"
	"time"
)

// matcher decides whether a rule fires on a date inside its month and
// effective years.
type matcher func(d Date, wd time.Weekday) bool

// rule is one row of the holiday table. from/to bound the effective years
// inclusively; zero means unbounded on that side.
type rule struct {
	month  time.Month
	from   int
	to     int
	except []int
	kind   Kind
	name   string
	match  matcher
}

func (r rule) applies(d Date, wd time.Weekday) bool {
	if d.Month != r.month {
		return false
	}
	if r.from != 0 && d.Year < r.from {
		return false
	}
	if r.to != 0 && d.Year > r.to {
		return false
	}
	if slices.Contains(r.except, d.Year) {
		return false
	}
	return r.match(d, wd)
}

func onDay(day int) matcher {
	return func(d Date, _ time.Weekday) bool { return d.Day == day }
}

// nthMonday matches the n-th Monday of the month.
func nthMonday(n int) matcher {
	return func(d Date, wd time.Weekday) bool {
		return wd == time.Monday && (d.Day-1)/7 == n-1
	}
}

func onSpringEquinox(d Date, _ time.Weekday) bool {
	return d.Day == SpringEquinoxDay(d.Year)
}

func onAutumnEquinox(d Date, _ time.Weekday) bool {
	return d.Day == AutumnEquinoxDay(d.Year)
}

// olympicYears moved 海の日, スポーツの日 and 山の日 to fixed dates.
var olympicYears = []int{2020, 2021}

// rules is evaluated in order and the first match wins. No two rows match the
// same date; rules_test.go walks every date to keep it that way.
var rules = []rule{
	{month: time.January, kind: National, name: "元日", match: onDay(1)},
	{month: time.January, from: 2000, kind: National, name: "成人の日", match: nthMonday(2)},
	{month: time.January, to: 1999, kind: National, name: "成人の日", match: onDay(15)},

	{month: time.February, from: 1967, kind: National, name: "建国記念の日", match: onDay(11)},
	{month: time.February, from: 2020, kind: National, name: "天皇誕生日", match: onDay(23)},
	{month: time.February, from: 1989, to: 1989, kind: National, name: "昭和天皇の大喪の礼", match: onDay(24)},

	{month: time.March, kind: National, name: "春分の日", match: onSpringEquinox},

	{month: time.April, from: 2007, kind: National, name: "昭和の日", match: onDay(29)},
	{month: time.April, from: 1989, to: 2006, kind: National, name: "みどりの日", match: onDay(29)},
	{month: time.April, to: 1988, kind: National, name: "天皇誕生日", match: onDay(29)},
	{month: time.April, from: 2019, to: 2019, kind: Citizens, name: "国民の休日", match: onDay(30)},
	{month: time.April, from: 1959, to: 1959, kind: National, name: "皇太子明仁親王の結婚の儀", match: onDay(10)},

	{month: time.May, kind: National, name: "憲法記念日", match: onDay(3)},
	{month: time.May, from: 2007, kind: National, name: "みどりの日", match: onDay(4)},
	// Sunday May 4 stays a plain Sunday; Monday May 4 is picked up as the
	// substitute for Sunday May 3.
	{month: time.May, from: 1986, to: 2006, kind: Citizens, name: "国民の休日", match: func(d Date, wd time.Weekday) bool {
		return d.Day == 4 && wd > time.Monday
	}},
	{month: time.May, kind: National, name: "こどもの日", match: onDay(5)},
	// Only reached when May 3 or May 4 was a Sunday; a Monday May 6 is
	// handled by the ordinary substitute lookup.
	{month: time.May, from: 2007, kind: Substitute, name: substituteName, match: func(d Date, wd time.Weekday) bool {
		return d.Day == 6 && (wd == time.Tuesday || wd == time.Wednesday)
	}},
	{month: time.May, from: 2019, to: 2019, kind: National, name: "即位の日", match: onDay(1)},
	{month: time.May, from: 2019, to: 2019, kind: Citizens, name: "国民の休日", match: onDay(2)},

	{month: time.June, from: 1993, to: 1993, kind: National, name: "皇太子徳仁親王の結婚の儀", match: onDay(9)},

	{month: time.July, from: 2003, except: olympicYears, kind: National, name: "海の日", match: nthMonday(3)},
	{month: time.July, from: 1996, to: 2002, kind: National, name: "海の日", match: onDay(20)},
	{month: time.July, from: 2020, to: 2020, kind: National, name: "海の日", match: onDay(23)},
	{month: time.July, from: 2021, to: 2021, kind: National, name: "海の日", match: onDay(22)},
	{month: time.July, from: 2020, to: 2020, kind: National, name: "スポーツの日", match: onDay(24)},
	{month: time.July, from: 2021, to: 2021, kind: National, name: "スポーツの日", match: onDay(23)},

	{month: time.August, from: 2016, except: olympicYears, kind: National, name: "山の日", match: onDay(11)},
	{month: time.August, from: 2020, to: 2020, kind: National, name: "山の日", match: onDay(10)},
	{month: time.August, from: 2021, to: 2021, kind: National, name: "山の日", match: onDay(8)},

	{month: time.September, kind: National, name: "秋分の日", match: onAutumnEquinox},
	{month: time.September, from: 2003, kind: National, name: "敬老の日", match: nthMonday(3)},
	{month: time.September, from: 1966, to: 2002, kind: National, name: "敬老の日", match: onDay(15)},
	// Tuesday between 敬老の日 and 秋分の日.
	{month: time.September, from: 2003, kind: Citizens, name: "国民の休日", match: func(d Date, wd time.Weekday) bool {
		return wd == time.Tuesday && d.Day == AutumnEquinoxDay(d.Year)-1
	}},

	{month: time.October, from: 2000, to: 2019, kind: National, name: "体育の日", match: nthMonday(2)},
	{month: time.October, from: 2022, kind: National, name: "スポーツの日", match: nthMonday(2)},
	{month: time.October, from: 1966, to: 1999, kind: National, name: "体育の日", match: onDay(10)},
	{month: time.October, from: 2019, to: 2019, kind: National, name: "即位礼正殿の儀", match: onDay(22)},

	{month: time.November, kind: National, name: "文化の日", match: onDay(3)},
	{month: time.November, kind: National, name: "勤労感謝の日", match: onDay(23)},
	{month: time.November, from: 1990, to: 1990, kind: National, name: "即位礼正殿の儀", match: onDay(12)},

	{month: time.December, from: 1989, to: 2018, kind: National, name: "天皇誕生日", match: onDay(23)},
}

// rulesByMonth indexes rules so a lookup only scans its own month.
var rulesByMonth = indexRules(rules)

func indexRules(rs []rule) [13][]rule {
	var idx [13][]rule
	for _, r := range rs {
		idx[r.month] = append(idx[r.month], r)
	}
	return idx
}
