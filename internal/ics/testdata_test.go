package ics

import "strings"

// crlf converts a readable fixture into RFC 5545 line endings.
func crlf(s string) string {
	return strings.ReplaceAll(strings.TrimLeft(s, "\n"), "\n", "\r\n")
}

var wardICS = crlf(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//hospcal//test//EN
BEGIN:VEVENT
UID:round-1
DTSTAMP:20240101T000000Z
DTSTART:20240510T010000Z
DTEND:20240510T020000Z
SUMMARY:回診
DESCRIPTION:Ward 3
LOCATION:3F
END:VEVENT
BEGIN:VEVENT
UID:conf-weekly
DTSTAMP:20240101T000000Z
DTSTART:20240506T000000Z
DTEND:20240506T010000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20240513T000000Z
SUMMARY:カンファレンス
END:VEVENT
BEGIN:VEVENT
UID:conf-weekly
RECURRENCE-ID:20240520T000000Z
DTSTAMP:20240101T000000Z
DTSTART:20240520T030000Z
DTEND:20240520T040000Z
SUMMARY:カンファレンス（変更）
END:VEVENT
BEGIN:VEVENT
UID:closed
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240503
DTEND;VALUE=DATE:20240507
SUMMARY:休診
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20240101T000000Z
DTSTART:20240510T010000Z
SUMMARY:no uid
END:VEVENT
END:VCALENDAR
`)

var dailyICS = crlf(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//hospcal//test//EN
BEGIN:VEVENT
UID:daily
DTSTAMP:20240101T000000Z
DTSTART:20240601T090000Z
DTEND:20240601T093000Z
RRULE:FREQ=DAILY
SUMMARY:朝礼
END:VEVENT
END:VCALENDAR
`)
