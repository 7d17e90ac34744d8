package holiday

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestClassify(t *testing.T) {
	tests := []struct {
		date string
		kind Kind
		name string
	}{
		// fixed and nth-Monday rules
		{"2024-01-01", National, "元日"},
		{"2024-01-08", National, "成人の日"},
		{"1999-01-15", National, "成人の日"},
		{"2000-01-15", Ordinary, ""},
		{"2000-01-10", National, "成人の日"},
		{"1967-02-11", National, "建国記念の日"},
		{"1966-02-11", Ordinary, ""},
		{"2024-03-20", National, "春分の日"},
		{"2025-09-23", National, "秋分の日"},
		{"1979-09-24", National, "秋分の日"},

		// April 29 across three eras
		{"1988-04-29", National, "天皇誕生日"},
		{"2006-04-29", National, "みどりの日"},
		{"2024-04-29", National, "昭和の日"},

		// Golden Week
		{"1991-05-04", Citizens, "国民の休日"},
		{"1997-05-04", Ordinary, ""},
		{"1998-05-04", Substitute, "振替休日"},
		{"2007-05-04", National, "みどりの日"},
		{"2008-05-06", Substitute, "振替休日"},
		{"2015-05-06", Substitute, "振替休日"},
		{"2024-05-06", Substitute, "振替休日"},

		// one-off imperial dates
		{"1959-04-10", National, "皇太子明仁親王の結婚の儀"},
		{"1989-02-24", National, "昭和天皇の大喪の礼"},
		{"1990-11-12", National, "即位礼正殿の儀"},
		{"1993-06-09", National, "皇太子徳仁親王の結婚の儀"},
		{"2019-04-30", Citizens, "国民の休日"},
		{"2019-05-01", National, "即位の日"},
		{"2019-05-02", Citizens, "国民の休日"},
		{"2019-10-22", National, "即位礼正殿の儀"},

		// Emperor's birthday moves
		{"2018-12-23", National, "天皇誕生日"},
		{"2019-12-23", Ordinary, ""},
		{"2020-02-23", National, "天皇誕生日"},

		// Marine, mountain and sports days including the Olympic years
		{"1995-07-20", Ordinary, ""},
		{"1996-07-20", National, "海の日"},
		{"2024-07-15", National, "海の日"},
		{"2020-07-23", National, "海の日"},
		{"2020-07-24", National, "スポーツの日"},
		{"2021-07-22", National, "海の日"},
		{"2021-07-23", National, "スポーツの日"},
		{"2015-08-11", Ordinary, ""},
		{"2016-08-11", National, "山の日"},
		{"2020-08-10", National, "山の日"},
		{"2020-08-11", Ordinary, ""},
		{"2021-08-08", National, "山の日"},
		{"2021-08-09", Substitute, "振替休日"},
		{"1999-10-10", National, "体育の日"},
		{"2019-10-14", National, "体育の日"},
		{"2020-10-12", Ordinary, ""},
		{"2021-10-11", Ordinary, ""},
		{"2022-10-10", National, "スポーツの日"},

		// Respect for the Aged Day and the September gap day
		{"1965-09-15", Ordinary, ""},
		{"1966-09-15", National, "敬老の日"},
		{"2002-09-15", National, "敬老の日"},
		{"2024-09-16", National, "敬老の日"},
		{"2009-09-22", Citizens, "国民の休日"},
		{"2026-09-22", Citizens, "国民の休日"},

		// substitute holidays
		{"2023-01-02", Substitute, "振替休日"},
		{"2024-09-23", Substitute, "振替休日"},
		{"2025-02-24", Substitute, "振替休日"},
		{"1973-04-30", Substitute, "振替休日"},
		{"1973-02-12", Ordinary, ""},
		{"1967-01-02", Ordinary, ""},

		// statute effective date
		{"1948-01-01", Ordinary, ""},
		{"1948-07-19", Ordinary, ""},
		{"1948-11-03", National, "文化の日"},

		// no equinox approximation after 2150
		{"2151-03-20", Ordinary, ""},
		{"2151-09-23", Ordinary, ""},

		{"2024-12-29", Ordinary, ""},
		{"2024-06-12", Ordinary, ""},
	}

	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			d := mustDate(t, tc.date)
			got := Classify(d)
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.name, got.Name)
			assert.Equal(t, d.Weekday(), got.Weekday)
		})
	}
}

func TestClassifyNameIffNotOrdinary(t *testing.T) {
	for d := NewDate(1940, time.January, 1); d.Year < 2200; d = d.AddDays(1) {
		info := Classify(d)
		if (info.Name != "") != (info.Kind != Ordinary) {
			t.Fatalf("%s: kind=%s name=%q", d, info.Kind, info.Name)
		}
	}
}

func TestClassifyBeforeStatuteIsOrdinary(t *testing.T) {
	for d := NewDate(1946, time.January, 1); d.Before(statuteEffective); d = d.AddDays(1) {
		require.Equal(t, Ordinary, Classify(d).Kind, d.String())
	}
}

func TestClassifyIsPure(t *testing.T) {
	d := NewDate(2019, time.May, 1)
	first := Classify(d)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, first, Classify(d))
		}()
	}
	wg.Wait()
}

func TestClassifyNormalizesOverflow(t *testing.T) {
	// 2023-12-32 is 2024-01-01.
	assert.Equal(t, "元日", Classify(Date{Year: 2023, Month: time.December, Day: 32}).Name)
}

func TestSubstituteFollowsEverySundayHoliday(t *testing.T) {
	for d := NewDate(1973, time.April, 15); d.Year < 2150; d = d.AddDays(1) {
		if d.Weekday() != time.Sunday || Classify(d).Kind != National {
			continue
		}
		next := Classify(d.AddDays(1))
		assert.NotEqual(t, Ordinary, next.Kind, "monday after %s", d)
	}
}

func TestPublicQueries(t *testing.T) {
	tests := []struct {
		date             string
		weekend          bool
		holiday          bool
		holidayExceptSat bool
		nationalHoliday  bool
		name             string
	}{
		{"2024-06-08", true, true, false, false, ""},   // Saturday
		{"2024-06-09", true, true, true, false, ""},    // Sunday
		{"2024-06-12", false, false, false, false, ""}, // Wednesday
		{"2024-01-01", false, true, true, true, "元日"},
		{"2024-01-13", true, true, false, false, ""},
		{"2024-02-12", false, true, true, true, "振替休日"},
		{"2019-04-30", false, true, true, true, "国民の休日"},
		{"2024-12-29", true, true, true, true, ""},   // Sunday inside the year-end window
		{"2024-12-30", false, false, false, true, ""}, // Monday inside the year-end window
		{"2025-01-02", false, false, false, true, ""},
		{"2025-01-04", true, true, false, false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			d := mustDate(t, tc.date)
			assert.Equal(t, tc.weekend, IsWeekend(d), "IsWeekend")
			assert.Equal(t, tc.holiday, IsHoliday(d), "IsHoliday")
			assert.Equal(t, tc.holidayExceptSat, IsHolidayExcludingSaturday(d), "IsHolidayExcludingSaturday")
			assert.Equal(t, tc.nationalHoliday, IsNationalHoliday(d), "IsNationalHoliday")
			assert.Equal(t, tc.name, HolidayName(d), "HolidayName")
		})
	}
}

func TestYearEndBlackout(t *testing.T) {
	assert.True(t, IsNationalHoliday(NewDate(2024, time.December, 29)))
	assert.Empty(t, HolidayName(NewDate(2024, time.December, 29)))

	for _, s := range []string{"2024-12-28", "2024-12-31", "2025-01-01", "2025-01-03"} {
		assert.True(t, InYearEndBlackout(mustDate(t, s)), s)
	}
	for _, s := range []string{"2024-12-27", "2025-01-04", "2025-06-01"} {
		assert.False(t, InYearEndBlackout(mustDate(t, s)), s)
	}
}

func TestInYear(t *testing.T) {
	days := InYear(2025)
	require.Len(t, days, 19)
	assert.Equal(t, Holiday{Date: NewDate(2025, time.January, 1), Kind: National, Name: "元日"}, days[0])
	assert.Equal(t, Holiday{Date: NewDate(2025, time.November, 24), Kind: Substitute, Name: "振替休日"}, days[len(days)-1])

	for i := 1; i < len(days); i++ {
		assert.True(t, days[i-1].Date.Before(days[i].Date))
	}
}

func TestInMonth(t *testing.T) {
	got := InMonth(2019, time.May)
	names := make([]string, 0, len(got))
	for _, h := range got {
		names = append(names, h.Date.String()+" "+h.Name)
	}
	assert.Equal(t, []string{
		"2019-05-01 即位の日",
		"2019-05-02 国民の休日",
		"2019-05-03 憲法記念日",
		"2019-05-04 みどりの日",
		"2019-05-05 こどもの日",
		"2019-05-06 振替休日",
	}, names)

	assert.Empty(t, InMonth(2024, time.June))
}

func TestNext(t *testing.T) {
	h, ok := Next(NewDate(2024, time.June, 1))
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, time.July, 15), h.Date)
	assert.Equal(t, "海の日", h.Name)

	// strictly after
	h, ok = Next(NewDate(2024, time.January, 1))
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, time.January, 8), h.Date)
}

func TestInfoJSON(t *testing.T) {
	b, err := json.Marshal(Classify(NewDate(2024, time.January, 1)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"national","weekday":1,"name":"元日"}`, string(b))

	b, err = json.Marshal(Classify(NewDate(2024, time.June, 12)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"ordinary","weekday":3}`, string(b))
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{Ordinary, Citizens, Substitute, National} {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var got Kind
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, k, got)
	}

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
	assert.Equal(t, "kind(9)", Kind(9).String())
}
