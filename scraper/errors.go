package scraper

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kind classifies a failed operation.
type Kind string

const (
	BrowserStartFailure         Kind = "BrowserStartFailure"
	NavigationFailure           Kind = "NavigationFailure"
	ElementLookupFailure        Kind = "ElementLookupFailure"
	DateRangeGenerationFailure  Kind = "DateRangeGenerationFailure"
	DateFilterFailure           Kind = "DateFilterFailure"
	ResultLinkCollectionFailure Kind = "ResultLinkCollectionFailure"
	PageCollectionFailure       Kind = "PageCollectionFailure"
	ClickFailure                Kind = "ClickFailure"
	InfoCollectionFailure       Kind = "InfoCollectionFailure"
	TableWriteFailure           Kind = "TableWriteFailure"
	IndexWriteFailure           Kind = "IndexWriteFailure"
)

// Policy is what happens after an operation fails.
type Policy int

const (
	// Fatal failures abort the scrape.
	Fatal Policy = iota
	// Suppress failures are logged; the field or result degrades and the
	// scrape continues.
	Suppress
)

func (p Policy) String() string {
	if p == Fatal {
		return "fatal"
	}
	return "suppressed"
}

// Op names a scraper operation that can fail.
type Op string

const (
	OpStartBrowser    Op = "start_browser"
	OpOpenHome        Op = "open_home"
	OpSetLanguage     Op = "set_language"
	OpSubmitKeyword   Op = "submit_keyword"
	OpGeneratePeriods Op = "generate_periods"
	OpOpenTools       Op = "open_tools"
	OpApplyDateFilter Op = "apply_date_filter"
	OpCollectResults  Op = "collect_results"
	OpParseResult     Op = "parse_result"
	OpCollectArticle  Op = "collect_article"
	OpExtractTitle    Op = "extract_title"
	OpExtractHeaders  Op = "extract_headers"
	OpExtractBody     Op = "extract_body"
	OpNextPage        Op = "next_page"
	OpCollectMore     Op = "collect_more_results"
	OpCollectMoreItem Op = "collect_more_article"
	OpWriteTable      Op = "write_table"
	OpRecordRun       Op = "record_run"
	OpRecordPeriod    Op = "record_period"
)

type rule struct {
	Kind   Kind
	Policy Policy
}

// operations declares the kind and policy of every operation. Result pages
// after the first run under their own suppressed operations: a failure there
// ends the period's pagination instead of aborting.
var operations = map[Op]rule{
	OpStartBrowser:    {BrowserStartFailure, Fatal},
	OpOpenHome:        {NavigationFailure, Fatal},
	OpSetLanguage:     {BrowserStartFailure, Fatal},
	OpSubmitKeyword:   {ElementLookupFailure, Fatal},
	OpGeneratePeriods: {DateRangeGenerationFailure, Fatal},
	OpOpenTools:       {ElementLookupFailure, Fatal},
	OpApplyDateFilter: {DateFilterFailure, Fatal},
	OpCollectResults:  {ResultLinkCollectionFailure, Fatal},
	OpParseResult:     {ResultLinkCollectionFailure, Suppress},
	OpCollectArticle:  {PageCollectionFailure, Fatal},
	OpExtractTitle:    {InfoCollectionFailure, Suppress},
	OpExtractHeaders:  {InfoCollectionFailure, Suppress},
	OpExtractBody:     {InfoCollectionFailure, Suppress},
	OpNextPage:        {ClickFailure, Suppress},
	OpCollectMore:     {ResultLinkCollectionFailure, Suppress},
	OpCollectMoreItem: {PageCollectionFailure, Suppress},
	OpWriteTable:      {TableWriteFailure, Fatal},
	OpRecordRun:       {IndexWriteFailure, Suppress},
	OpRecordPeriod:    {IndexWriteFailure, Suppress},
}

// Rule returns the kind and policy declared for op.
func Rule(op Op) (Kind, Policy) {
	r, ok := operations[op]
	if !ok {
		return "", Fatal
	}
	return r.Kind, r.Policy
}

// Error is a failed scraper operation.
type Error struct {
	Op     Op
	Kind   Kind
	Policy Policy
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a fatal scraper failure.
func IsFatal(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Policy == Fatal
	}
	return err != nil
}

// KindOf returns the kind of a scraper failure, or "" for other errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// report wraps err with op's declared kind and policy and logs it. It
// returns nil when err is nil.
func report(log logrus.FieldLogger, op Op, err error) error {
	if err == nil {
		return nil
	}

	kind, policy := Rule(op)
	wrapped := &Error{Op: op, Kind: kind, Policy: policy, Err: err}

	entry := log.WithFields(logrus.Fields{
		"op":     op,
		"kind":   kind,
		"policy": policy,
	}).WithError(err)
	if policy == Fatal {
		entry.Error("operation failed")
	} else {
		entry.Warn("operation failed, continuing")
	}

	return wrapped
}
