// Package rangescrape holds the records produced by a date-range search
// scrape and the helpers that shape them.
package rangescrape

import (
	"fmt"
	"strings"

	"github.com/pevans/rangescrape/periods"
)

// Columns is the fixed column order of every period table.
var Columns = []string{"title", "headers", "text", "date", "link"}

// Default word limits applied to extracted headers and body text.
const (
	DefaultMaxHeaderWords = 20
	DefaultMaxTextWords   = 400
)

// Limits caps the number of words stored for the truncated record fields.
type Limits struct {
	MaxHeaderWords int
	MaxTextWords   int
}

// DefaultLimits returns the default word limits.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaderWords: DefaultMaxHeaderWords,
		MaxTextWords:   DefaultMaxTextWords,
	}
}

// Record is one scraped search result.
type Record struct {
	Title   string `json:"title"`
	Headers string `json:"headers"`
	Text    string `json:"text"`
	Date    string `json:"date"`
	Link    string `json:"link"`
}

// NewRecord builds a record, truncating headers and text to their own word
// limits. Title, date and link are stored as given.
func NewRecord(title, headers, text, date, link string, limits Limits) Record {
	return Record{
		Title:   title,
		Headers: Truncate(headers, limits.MaxHeaderWords),
		Text:    Truncate(text, limits.MaxTextWords),
		Date:    date,
		Link:    link,
	}
}

// Row returns the record's values in Columns order.
func (r Record) Row() []string {
	return []string{r.Title, r.Headers, r.Text, r.Date, r.Link}
}

// WordCount returns the word count of the record's body text.
func (r Record) WordCount() int {
	return WordCount(r.Text)
}

// Truncate cuts text immediately before its maxWords-th space. Text with
// fewer spaces is returned unchanged.
func Truncate(text string, maxWords int) string {
	spaces := 0
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			spaces++
		}
		if spaces == maxWords {
			return text[:i]
		}
	}
	return text
}

// WordCount counts words as spaces plus one. The empty string has no words.
func WordCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, " ") + 1
}

// PeriodTable is the set of records collected for one period.
type PeriodTable struct {
	Period  periods.Period
	Keyword string
	Records []Record
}

// Name returns the table's artifact name with the given extension, e.g.
// "06-01-2019_to_06-02-2019_Airline_Stocks.csv".
func (t PeriodTable) Name(ext string) string {
	name := fmt.Sprintf("%s_to_%s_%s.%s", t.Period.FormatStart(), t.Period.FormatEnd(), t.Keyword, ext)
	return sanitizeName(name)
}

func sanitizeName(name string) string {
	return strings.NewReplacer("/", "-", " ", "_").Replace(name)
}
