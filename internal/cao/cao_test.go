package cao

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"hospcal/internal/holiday"
)

const list2024 = `国民の祝日・休日月日,国民の祝日・休日名称
2024/1/1,元日
2024/1/8,成人の日
2024/2/11,建国記念の日
2024/2/12,休日
2024/2/23,天皇誕生日
2024/3/20,春分の日
2024/4/29,昭和の日
2024/5/3,憲法記念日
2024/5/4,みどりの日
2024/5/5,こどもの日
2024/5/6,休日
2024/7/15,海の日
2024/8/11,山の日
2024/8/12,休日
2024/9/16,敬老の日
2024/9/22,秋分の日
2024/9/23,休日
2024/10/14,スポーツの日
2024/11/3,文化の日
2024/11/4,休日
2024/11/23,勤労感謝の日
`

func sjis(t *testing.T, s string) string {
	t.Helper()
	out, err := japanese.ShiftJIS.NewEncoder().String(strings.ReplaceAll(s, "\n", "\r\n"))
	require.NoError(t, err)
	return out
}

func TestReadCSV(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sjis(t, list2024+"\nnot a date,x\n2025/1/1,元日\n")))
	require.NoError(t, err)
	require.Len(t, entries, 22)

	assert.Equal(t, Entry{Date: holiday.NewDate(2024, time.January, 1), Name: "元日"}, entries[0])
	assert.Equal(t, Entry{Date: holiday.NewDate(2025, time.January, 1), Name: "元日"}, entries[21])
}

func TestReadCSVWithUTF8BOM(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader("\ufeff" + list2024))
	require.NoError(t, err)
	require.Len(t, entries, 21)
	assert.Equal(t, "勤労感謝の日", entries[20].Name)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(sjis(t, "国民の祝日・休日月日,国民の祝日・休日名称\n")))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestCompareAgrees(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sjis(t, list2024)))
	require.NoError(t, err)

	rep := Compare(entries, 2024, 2024)
	assert.True(t, rep.OK(), "%+v", rep)
	assert.Equal(t, 21, rep.Checked)
}

func TestCompareReportsDifferences(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sjis(t, list2024)))
	require.NoError(t, err)

	var edited []Entry
	for _, e := range entries {
		switch e.Date {
		case holiday.NewDate(2024, time.November, 23):
			continue
		case holiday.NewDate(2024, time.January, 1):
			e.Name = "元旦"
		}
		edited = append(edited, e)
	}
	edited = append(edited,
		Entry{Date: holiday.NewDate(2024, time.December, 31), Name: "大晦日"},
		Entry{Date: holiday.NewDate(2023, time.December, 31), Name: "大晦日"},
	)

	rep := Compare(edited, 2024, 2024)
	assert.False(t, rep.OK())

	require.Len(t, rep.Missing, 1)
	assert.Equal(t, holiday.NewDate(2024, time.December, 31), rep.Missing[0].Date)

	require.Len(t, rep.Extra, 1)
	assert.Equal(t, "勤労感謝の日", rep.Extra[0].Name)

	require.Len(t, rep.Renamed, 1)
	assert.Equal(t, Rename{Date: holiday.NewDate(2024, time.January, 1), Official: "元旦", Engine: "元日"}, rep.Renamed[0])
}

func TestCompareAcceptsGenericLabel(t *testing.T) {
	entries := []Entry{
		{Date: holiday.NewDate(2019, time.April, 30), Name: "休日"},
		{Date: holiday.NewDate(2019, time.May, 1), Name: "休日（祝日扱い）"},
	}
	rep := Compare(entries, 2019, 2019)
	assert.Empty(t, rep.Renamed)
	assert.Empty(t, rep.Missing)
}

func TestFetch(t *testing.T) {
	body := sjis(t, list2024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/syukujitsu.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	entries, err := Fetch(context.Background(), srv.Client(), srv.URL+"/syukujitsu.csv")
	require.NoError(t, err)
	assert.Len(t, entries, 21)

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing.csv")
	assert.Error(t, err)
}
