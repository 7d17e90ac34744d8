// Package cao reads the Cabinet Office holiday list (syukujitsu.csv) and
// checks the holiday engine against it.
package cao

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"hospcal/internal/holiday"
	appLog "hospcal/internal/log"
)

// DefaultURL is where the Cabinet Office publishes the list.
const DefaultURL = "https://www8.cao.go.jp/chosei/shukujitsu/syukujitsu.csv"

// ErrEmpty is returned when a CSV holds no usable rows.
var ErrEmpty = errors.New("cao: no holiday rows")

// The list labels substitute and citizens' days 休日, and one-off state
// ceremonies 休日（祝日扱い）.
const genericLabel = "休日"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Entry is one row of the official list.
type Entry struct {
	Date holiday.Date `json:"date"`
	Name string       `json:"name"`
}

// ReadCSV decodes a Shift_JIS syukujitsu.csv. Input starting with a UTF-8
// BOM is read as UTF-8 instead. The header and rows whose first column is
// not a Y/M/D date are skipped.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(decode(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cao: read csv: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		t, err := time.Parse("2006/1/2", strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}
		out = append(out, Entry{Date: holiday.DateOf(t), Name: strings.TrimSpace(rec[1])})
	}

	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func decode(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		return br
	}
	return transform.NewReader(br, japanese.ShiftJIS.NewDecoder())
}

// Fetch downloads and parses the list at url. A nil client gets a 15 second
// timeout client.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Entry, error) {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cao: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cao: fetch: unexpected status %s", resp.Status)
	}

	entries, err := ReadCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	appLog.Info("cao list fetched", "rows", len(entries))
	return entries, nil
}

// Rename is a date both sides name differently.
type Rename struct {
	Date     holiday.Date `json:"date"`
	Official string       `json:"official"`
	Engine   string       `json:"engine"`
}

// Report is the outcome of Compare.
type Report struct {
	FromYear int `json:"from_year"`
	ToYear   int `json:"to_year"`
	Checked  int `json:"checked"`

	// Missing are official days the engine does not name.
	Missing []Entry `json:"missing,omitempty"`
	// Extra are engine days absent from the official list.
	Extra   []holiday.Holiday `json:"extra,omitempty"`
	Renamed []Rename          `json:"renamed,omitempty"`
}

// OK reports whether the engine agreed with every official row.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Renamed) == 0
}

// Compare checks the engine against entries for fromYear..toYear inclusive.
// Rows outside the range are ignored. Names are compared only for national
// holidays the list names specifically.
func Compare(entries []Entry, fromYear, toYear int) Report {
	rep := Report{FromYear: fromYear, ToYear: toYear}

	official := make(map[holiday.Date]string)
	for _, e := range entries {
		if e.Date.Year < fromYear || e.Date.Year > toYear {
			continue
		}
		official[e.Date] = e.Name
	}

	named := make(map[holiday.Date]bool)
	for year := fromYear; year <= toYear; year++ {
		for _, h := range holiday.InYear(year) {
			named[h.Date] = true
			rep.Checked++

			name, ok := official[h.Date]
			if !ok {
				rep.Extra = append(rep.Extra, h)
				continue
			}
			if h.Kind == holiday.National && !strings.HasPrefix(name, genericLabel) && name != h.Name {
				rep.Renamed = append(rep.Renamed, Rename{Date: h.Date, Official: name, Engine: h.Name})
			}
		}
	}

	for d, name := range official {
		if !named[d] {
			rep.Missing = append(rep.Missing, Entry{Date: d, Name: name})
		}
	}
	sort.Slice(rep.Missing, func(i, j int) bool { return rep.Missing[i].Date.Before(rep.Missing[j].Date) })

	return rep
}
