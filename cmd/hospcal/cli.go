package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hospcal/internal/cao"
	"hospcal/internal/holiday"
	"hospcal/internal/ics"
	appLog "hospcal/internal/log"
)

// runCLI executes a one-shot mode if one was requested. handled is false
// when the server should start instead.
func runCLI(ctx context.Context, flags flagConfig, w io.Writer) (code int, handled bool) {
	var err error
	switch {
	case flags.check != "":
		err = runCheck(w, flags.check)
	case flags.list != 0:
		runList(w, flags.list)
	case flags.icsRange != "":
		err = runFeed(w, flags.icsRange)
	case flags.verifyCSV != "":
		var ok bool
		ok, err = runVerify(ctx, w, flags.verifyCSV, flags.verifyFrom, flags.verifyTo)
		if err == nil && !ok {
			return 1, true
		}
	default:
		return 0, false
	}

	if err != nil {
		appLog.Error("command failed", err)
		return 1, true
	}
	return 0, true
}

func runCheck(w io.Writer, raw string) error {
	d, err := holiday.ParseDate(raw)
	if err != nil {
		return err
	}
	info := holiday.Classify(d)
	name := info.Name
	if name == "" {
		name = "-"
	}
	_, err = fmt.Fprintf(w, "%s\t%s\t%s\t%s\tholiday=%t national=%t year_end=%t\n",
		d, info.Weekday.String()[:3], info.Kind, name,
		holiday.IsHoliday(d), holiday.IsNationalHoliday(d), holiday.InYearEndBlackout(d))
	return err
}

func runList(w io.Writer, year int) {
	for _, h := range holiday.InYear(year) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Date, h.Date.Weekday().String()[:3], h.Kind, h.Name)
	}
}

// parseYearRange parses "2025" or "2025:2027".
func parseYearRange(raw string) (int, int, error) {
	fromStr, toStr, hasTo := strings.Cut(raw, ":")
	from, err := strconv.Atoi(strings.TrimSpace(fromStr))
	if err != nil {
		return 0, 0, fmt.Errorf("year range %q: %w", raw, err)
	}
	to := from
	if hasTo {
		if to, err = strconv.Atoi(strings.TrimSpace(toStr)); err != nil {
			return 0, 0, fmt.Errorf("year range %q: %w", raw, err)
		}
	}
	if to < from {
		return 0, 0, fmt.Errorf("year range %q is empty", raw)
	}
	return from, to, nil
}

func runFeed(w io.Writer, raw string) error {
	from, to, err := parseYearRange(raw)
	if err != nil {
		return err
	}
	feed, err := ics.HolidayFeed(from, to, ics.FeedOptions{Stamp: time.Now()})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, feed)
	return err
}

// runVerify compares the engine against a Cabinet Office CSV and writes the
// report as JSON. ok is false when any difference was found.
func runVerify(ctx context.Context, w io.Writer, src string, from, to int) (bool, error) {
	entries, err := loadEntries(ctx, src)
	if err != nil {
		return false, err
	}

	if from == 0 || to == 0 {
		minYear, maxYear := entries[0].Date.Year, entries[0].Date.Year
		for _, e := range entries {
			minYear = min(minYear, e.Date.Year)
			maxYear = max(maxYear, e.Date.Year)
		}
		if from == 0 {
			from = minYear
		}
		if to == 0 {
			to = maxYear
		}
	}

	rep := cao.Compare(entries, from, to)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return false, err
	}
	return rep.OK(), nil
}

func loadEntries(ctx context.Context, src string) ([]cao.Entry, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return cao.Fetch(ctx, nil, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cao.ReadCSV(f)
}
