package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/pevans/rangescrape/index"
	"github.com/pevans/rangescrape/periods"
	"github.com/pevans/rangescrape/scraper"
)

// column is a table column with a fixed display width. A zero width leaves
// the last column unpadded.
type column struct {
	title string
	width int
}

// cell fits s to width display columns, truncating with "..." when needed.
func cell(s string, width int) string {
	if width == 0 {
		return s
	}
	return runewidth.FillRight(runewidth.Truncate(s, width, "..."), width)
}

// printTable prints a header, a rule and one line per row.
func printTable(w io.Writer, columns []column, rows [][]string) {
	header := make([]string, len(columns))
	ruleWidth := 0
	for i, c := range columns {
		header[i] = cell(c.title, c.width)
		ruleWidth += max(c.width, runewidth.StringWidth(c.title)) + 1
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, " "), " "))
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth-1))

	for _, row := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = cell(row[i], c.width)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(line, " "), " "))
	}
}

// printPeriodsTable prints generated periods
func printPeriodsTable(w io.Writer, ps []periods.Period) {
	rows := make([][]string, 0, len(ps))
	for i, p := range ps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			p.FormatStart(),
			p.FormatEnd(),
			fmt.Sprintf("%d", p.Days()),
		})
	}

	printTable(w, []column{
		{"#", 4},
		{"START", 10},
		{"END", 10},
		{"DAYS", 0},
	}, rows)
}

// printSummary prints the outcome of a scrape
func printSummary(w io.Writer, summary *scraper.Summary) {
	fmt.Fprintf(w, "Run:      %s\n", summary.RunID)
	fmt.Fprintf(w, "Keyword:  %s\n", summary.Keyword)
	fmt.Fprintf(w, "Articles: %d\n", summary.Articles)
	fmt.Fprintf(w, "Elapsed:  %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))
	fmt.Fprintln(w)

	if len(summary.Periods) == 0 {
		fmt.Fprintln(w, "No period tables written.")
		return
	}

	rows := make([][]string, 0, len(summary.Periods))
	for _, p := range summary.Periods {
		rows = append(rows, []string{
			p.Period.FormatStart(),
			p.Period.FormatEnd(),
			fmt.Sprintf("%d", p.Records),
			p.Path,
		})
	}

	printTable(w, []column{
		{"START", 10},
		{"END", 10},
		{"RECORDS", 7},
		{"PATH", 0},
	}, rows)
}

// printRunsTable prints runs from the index
func printRunsTable(w io.Writer, runs []index.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.RunID.String(),
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", run.Articles),
			run.Keyword,
		})
	}

	printTable(w, []column{
		{"ID", 36},
		{"STATUS", 7},
		{"STARTED", 16},
		{"ARTICLES", 8},
		{"KEYWORD", 0},
	}, rows)
}

// printRunDetail prints one run and the period tables it wrote
func printRunDetail(w io.Writer, run *index.Run, entries []index.PeriodEntry) {
	fmt.Fprintf(w, "Run:         %s\n", run.RunID)
	fmt.Fprintf(w, "Keyword:     %s\n", run.Keyword)
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	fmt.Fprintf(w, "Start date:  %s\n", run.StartDate)
	fmt.Fprintf(w, "Periods:     %d x %s\n", run.Periods, run.Periodicity)
	fmt.Fprintf(w, "Output dir:  %s\n", run.OutputDir)
	fmt.Fprintf(w, "Articles:    %d\n", run.Articles)
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:    %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if run.LastError != nil {
		fmt.Fprintf(w, "Last error:  %s\n", *run.LastError)
	}
	fmt.Fprintln(w)

	if len(entries) == 0 {
		fmt.Fprintln(w, "No period tables written.")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Start, e.End, fmt.Sprintf("%d", e.Records), e.Path})
	}

	printTable(w, []column{
		{"START", 10},
		{"END", 10},
		{"RECORDS", 7},
		{"PATH", 0},
	}, rows)
}
