package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospcal/internal/holiday"
	"hospcal/internal/ics"
	"hospcal/internal/model"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestWindow(t *testing.T) {
	start, end := Window(2024, time.December, jst)
	assert.True(t, start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, jst)))
	assert.True(t, end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, jst)))
}

func TestToneOf(t *testing.T) {
	tests := []struct {
		date string
		want Tone
	}{
		{"2024-05-03", ToneRed},      // national, Friday
		{"2024-05-04", ToneRed},      // national on Saturday
		{"2024-05-06", ToneRed},      // substitute
		{"2024-05-11", ToneSaturday}, // plain Saturday
		{"2024-05-12", ToneRed},      // Sunday
		{"2024-05-13", ToneWeekday},
		{"2024-12-30", ToneRed}, // year-end window, Monday
	}

	for _, tt := range tests {
		d, err := holiday.ParseDate(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ToneOf(d), tt.date)
	}
}

func occ(cal, summary string, start time.Time, allDay bool) model.Occurrence {
	end := start.Add(time.Hour)
	if allDay {
		end = start.AddDate(0, 0, 1)
	}
	return model.Occurrence{CalendarID: cal, UID: cal + "/" + summary, Summary: summary, AllDay: allDay, Start: start, End: end}
}

func summaries(day Day) []string {
	out := make([]string, 0, len(day.Events))
	for _, e := range day.Events {
		out = append(out, e.Summary)
	}
	return out
}

func TestBuild(t *testing.T) {
	occs := []model.Occurrence{
		occ("ward", "回診", time.Date(2024, 5, 10, 10, 0, 0, 0, jst), false),
		occ("ward", "当直", time.Date(2024, 5, 10, 0, 0, 0, 0, jst), true),
		occ("ward", "朝礼", time.Date(2024, 5, 10, 9, 0, 0, 0, jst), false),
		occ("ops", "遠隔", time.Date(2024, 5, 9, 23, 30, 0, 0, time.UTC), false),
		occ("ops", "B-meeting", time.Date(2024, 5, 10, 10, 0, 0, 0, jst), false),
		occ("ops", "翌月", time.Date(2024, 6, 1, 9, 0, 0, 0, jst), false),
	}

	m := Build(2024, time.May, jst, occs, nil)
	require.Len(t, m.Days, 31)
	assert.Equal(t, "JST", m.Timezone)

	day := m.Days[9]
	assert.Equal(t, holiday.NewDate(2024, time.May, 10), day.Date)
	assert.Equal(t, time.Friday, day.Weekday)
	assert.Equal(t, ToneWeekday, day.Tone)
	assert.Equal(t, []string{"当直", "遠隔", "朝礼", "B-meeting", "回診"}, summaries(day))

	golden := m.Days[2]
	assert.Equal(t, holiday.National, golden.Kind)
	assert.Equal(t, "憲法記念日", golden.HolidayName)
	assert.Equal(t, ToneRed, golden.Tone)
	assert.NotNil(t, golden.Events)
	assert.Empty(t, golden.Events)

	sub := m.Days[5]
	assert.Equal(t, holiday.Substitute, sub.Kind)
	assert.Equal(t, "振替休日", sub.HolidayName)

	filtered := Build(2024, time.May, jst, occs, []string{"ward"})
	assert.Equal(t, []string{"当直", "朝礼", "回診"}, summaries(filtered.Days[9]))

	total := 0
	for _, d := range m.Days {
		total += len(d.Events)
	}
	assert.Equal(t, 5, total, "next month's event is dropped")
}

const roundsICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//hospcal//test//EN
BEGIN:VEVENT
UID:rounds
DTSTAMP:20240101T000000Z
DTSTART:20240506T000000Z
DTEND:20240506T010000Z
RRULE:FREQ=WEEKLY
SUMMARY:回診
END:VEVENT
END:VCALENDAR
`

const opsICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//hospcal//test//EN
BEGIN:VEVENT
UID:audit
DTSTAMP:20240101T000000Z
DTSTART:20240515T050000Z
DTEND:20240515T060000Z
SUMMARY:監査
END:VEVENT
END:VCALENDAR
`

func parse(t *testing.T, id, body string) []ics.ParsedEvent {
	t.Helper()
	events, err := ics.ParseICS(ics.Source{ID: id}, []byte(strings.ReplaceAll(body, "\n", "\r\n")))
	require.NoError(t, err)
	return events
}

func TestFromEvents(t *testing.T) {
	events := append(parse(t, "ward", roundsICS), parse(t, "ops", opsICS)...)

	m, err := FromEvents(events, 2024, time.May, jst, nil)
	require.NoError(t, err)

	var days []string
	for _, d := range m.Days {
		for _, e := range d.Events {
			days = append(days, d.Date.String()+" "+e.Summary)
		}
	}
	assert.Equal(t, []string{
		"2024-05-06 回診",
		"2024-05-13 回診",
		"2024-05-15 監査",
		"2024-05-20 回診",
		"2024-05-27 回診",
	}, days)

	wardOnly, err := FromEvents(events, 2024, time.May, jst, []string{"ward"})
	require.NoError(t, err)
	assert.Empty(t, wardOnly.Days[14].Events)
	assert.Len(t, wardOnly.Days[12].Events, 1)
}

func TestFromEventsRejectsBadMonth(t *testing.T) {
	_, err := FromEvents(nil, 2024, 13, jst, nil)
	assert.Error(t, err)
}
