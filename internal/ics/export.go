package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"hospcal/internal/holiday"
)

// holidayNamespace seeds deterministic UIDs so subscribers see the same
// event across refreshes.
var holidayNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:hospcal:jp-holidays"))

// FeedOptions tunes HolidayFeed output.
type FeedOptions struct {
	// Name is shown by clients as the calendar title.
	Name string
	// Domain is appended to event UIDs.
	Domain string
	// Stamp is the DTSTAMP of every event; zero means now.
	Stamp time.Time
}

// HolidayFeed renders every named day from fromYear through toYear as an
// all-day VCALENDAR.
func HolidayFeed(fromYear, toYear int, opts FeedOptions) (string, error) {
	if toYear < fromYear {
		return "", fmt.Errorf("holiday feed: year range %d..%d is empty", fromYear, toYear)
	}
	if opts.Name == "" {
		opts.Name = "日本の祝日"
	}
	if opts.Domain == "" {
		opts.Domain = "hospcal"
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId("-//hospcal//jp-holidays//JA")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(opts.Name)

	for year := fromYear; year <= toYear; year++ {
		for _, h := range holiday.InYear(year) {
			ev := cal.AddEvent(HolidayUID(h, opts.Domain))
			ev.SetDtStampTime(opts.Stamp.UTC())
			ev.SetSummary(h.Name)
			ev.SetAllDayStartAt(h.Date.Time(time.UTC))
			ev.SetAllDayEndAt(h.Date.AddDays(1).Time(time.UTC))
			ev.SetProperty(ical.ComponentPropertyCategories, h.Kind.String())
			ev.SetProperty(ical.ComponentProperty("TRANSP"), "TRANSPARENT")
		}
	}

	return cal.Serialize(), nil
}

// HolidayUID is the stable UID of h's feed event.
func HolidayUID(h holiday.Holiday, domain string) string {
	id := uuid.NewSHA1(holidayNamespace, []byte(h.Date.String()+"/"+h.Name))
	return id.String() + "@" + domain
}
