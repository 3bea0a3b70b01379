package rangescrape

import (
	"strings"
	"testing"
	"time"

	"github.com/pevans/rangescrape/periods"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTruncate_CutsBeforeNthSpace verifies the prefix ends before the N-th
// space
func TestTruncate_CutsBeforeNthSpace(t *testing.T) {
	assert.Equal(t, "a b", Truncate("a b c d e", 2))
	assert.Equal(t, "a", Truncate("a b c d e", 1))
	assert.Equal(t, "a b c d", Truncate("a b c d e", 4))
}

// TestTruncate_InsufficientSpaces verifies short text is unchanged
func TestTruncate_InsufficientSpaces(t *testing.T) {
	assert.Equal(t, "a b", Truncate("a b", 5))
	assert.Equal(t, "a b c d e", Truncate("a b c d e", 5))
	assert.Equal(t, "", Truncate("", 3))
}

// TestTruncate_CountsEverySpace verifies consecutive spaces each count
func TestTruncate_CountsEverySpace(t *testing.T) {
	assert.Equal(t, "a ", Truncate("a  b c", 2))
}

// TestTruncate_Multibyte verifies truncation never splits a rune
func TestTruncate_Multibyte(t *testing.T) {
	assert.Equal(t, "héllo wörld", Truncate("héllo wörld ünd mehr", 2))
}

// TestTruncate_SpaceCountProperty checks the output has exactly N-1 spaces
// whenever the input has at least N
func TestTruncate_SpaceCountProperty(t *testing.T) {
	text := strings.Repeat("word ", 50) + "end"
	for n := 1; n <= 50; n++ {
		got := Truncate(text, n)
		assert.Equal(t, n-1, strings.Count(got, " "), "n=%d", n)
		assert.True(t, strings.HasPrefix(text, got))
	}
}

// TestWordCount verifies spaces+1 counting with the empty string special
// case
func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 1, WordCount("word"))
	assert.Equal(t, 3, WordCount("three word text"))
	assert.Equal(t, 2, WordCount(" "))
}

// TestNewRecord_TruncatesIndependently verifies headers and text use their
// own limits and the other fields are untouched
func TestNewRecord_TruncatesIndependently(t *testing.T) {
	long := "one two three four five six"
	limits := Limits{MaxHeaderWords: 2, MaxTextWords: 4}

	record := NewRecord(long, long, long, long, long, limits)

	assert.Equal(t, "one two", record.Headers)
	assert.Equal(t, "one two three four", record.Text)
	assert.Equal(t, long, record.Title, "title is never truncated")
	assert.Equal(t, long, record.Date, "date is never truncated")
	assert.Equal(t, long, record.Link, "link is never truncated")
}

// TestNewRecord_EmptyFields verifies empty extraction results stay empty
func TestNewRecord_EmptyFields(t *testing.T) {
	record := NewRecord("", "", "", "Jun 1, 2019", "https://example.com", DefaultLimits())

	assert.Empty(t, record.Title)
	assert.Empty(t, record.Headers)
	assert.Empty(t, record.Text)
	assert.Equal(t, 0, record.WordCount())
}

// TestRecord_RowOrder verifies values follow Columns order
func TestRecord_RowOrder(t *testing.T) {
	record := Record{Title: "t", Headers: "h", Text: "x", Date: "d", Link: "l"}

	assert.Equal(t, []string{"title", "headers", "text", "date", "link"}, Columns)
	assert.Equal(t, []string{"t", "h", "x", "d", "l"}, record.Row())
}

// TestPeriodTable_Name verifies slashes and spaces are replaced
func TestPeriodTable_Name(t *testing.T) {
	table := PeriodTable{
		Period: periods.Period{
			Start: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2019, 6, 2, 0, 0, 0, 0, time.UTC),
		},
		Keyword: "Airline Stocks",
	}

	name := table.Name("csv")

	require.NotContains(t, name, "/")
	require.NotContains(t, name, " ")
	assert.Equal(t, "06-01-2019_to_06-02-2019_Airline_Stocks.csv", name)
}
