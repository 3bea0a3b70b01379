package sink

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/rangescrape"
	"github.com/pevans/rangescrape/periods"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: build a two-record table
func sampleTable() rangescrape.PeriodTable {
	return rangescrape.PeriodTable{
		Period: periods.Period{
			Start: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2019, 6, 2, 0, 0, 0, 0, time.UTC),
		},
		Keyword: "Airline Stocks",
		Records: []rangescrape.Record{
			{Title: "Delta, United rise", Headers: "Markets", Text: "Shares \"rose\" today", Date: "Jun 1, 2019", Link: "https://example.com/a"},
			{Title: "", Headers: "", Text: "", Date: "Jun 2, 2019", Link: "https://example.com/b"},
		},
	}
}

// TestWriteTable_CSV verifies the header row, record order and quoting
func TestWriteTable_CSV(t *testing.T) {
	w, err := New(t.TempDir(), CSV)
	require.NoError(t, err)

	path, err := w.WriteTable(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "06-01-2019_to_06-02-2019_Airline_Stocks.csv", filepath.Base(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rangescrape.Columns, rows[0])
	assert.Equal(t, []string{"Delta, United rise", "Markets", "Shares \"rose\" today", "Jun 1, 2019", "https://example.com/a"}, rows[1])
	assert.Equal(t, []string{"", "", "", "Jun 2, 2019", "https://example.com/b"}, rows[2])
}

// TestWriteTable_EmptyTable verifies a table with no records still produces
// a file with the header row
func TestWriteTable_EmptyTable(t *testing.T) {
	w, err := New(t.TempDir(), CSV)
	require.NoError(t, err)

	table := sampleTable()
	table.Records = nil

	path, err := w.WriteTable(table)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "title,headers,text,date,link\n", string(data))
}

// TestWriteTable_JSONL verifies one JSON object per record
func TestWriteTable_JSONL(t *testing.T) {
	w, err := New(t.TempDir(), JSONL)
	require.NoError(t, err)

	path, err := w.WriteTable(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, ".jsonl", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []rangescrape.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r rangescrape.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		got = append(got, r)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, sampleTable().Records, got)
}

// TestWriteTable_Overwrites verifies a rerun replaces the previous file
func TestWriteTable_Overwrites(t *testing.T) {
	w, err := New(t.TempDir(), CSV)
	require.NoError(t, err)

	_, err = w.WriteTable(sampleTable())
	require.NoError(t, err)

	table := sampleTable()
	table.Records = table.Records[:1]
	path, err := w.WriteTable(table)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// TestNew_CreatesDirectory verifies nested output directories are created
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")

	w, err := New(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestParseFormat verifies accepted format names
func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = ParseFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, JSONL, f)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = New(t.TempDir(), "xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
