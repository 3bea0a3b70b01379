// Package scraper runs keyword searches restricted to a sequence of date
// ranges and collects the text of every result into one table per range.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/rangescrape"
	"github.com/pevans/rangescrape/browser"
	"github.com/pevans/rangescrape/extract"
	"github.com/pevans/rangescrape/index"
	"github.com/pevans/rangescrape/periods"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrNoResults    = errors.New("no search results found")
	ErrNoResultLink = errors.New("result has no link")
	ErrNoDateLabel  = errors.New("result has no date label")
	ErrNoMainTab    = errors.New("no results tab open")
)

// State is the scraper's position in the scrape workflow.
type State int

const (
	StateIdle State = iota
	StateLanguageSet
	StateKeywordSubmitted
	StatePeriodLoop
	StatePageLoop
	StateResultsCollected
	StatePeriodFlushed
	StateDone
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateLanguageSet:      "language_set",
	StateKeywordSubmitted: "keyword_submitted",
	StatePeriodLoop:       "period_loop",
	StatePageLoop:         "page_loop",
	StateResultsCollected: "results_collected",
	StatePeriodFlushed:    "period_flushed",
	StateDone:             "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TableWriter persists a period's records.
type TableWriter interface {
	WriteTable(table rangescrape.PeriodTable) (string, error)
}

// RunRecorder keeps an index of runs and the tables they wrote.
type RunRecorder interface {
	CreateRun(params index.RunParams, startedAt time.Time) (*index.Run, error)
	AddPeriod(runID uuid.UUID, table rangescrape.PeriodTable, path string, writtenAt time.Time) error
	FinishRun(runID uuid.UUID, status index.Status, articles int, runErr error, finishedAt time.Time) error
}

// PeriodResult describes one flushed period table.
type PeriodResult struct {
	Period  periods.Period
	Records int
	Path    string
}

// Summary describes a finished or aborted scrape.
type Summary struct {
	RunID      uuid.UUID
	Keyword    string
	Periods    []PeriodResult
	Articles   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithRecorder records the run in an index.
func WithRecorder(r RunRecorder) Option {
	return func(s *Scraper) {
		s.recorder = r
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		s.now = now
	}
}

// Scraper drives one browser session through a date-range scrape. It is not
// safe for concurrent use.
type Scraper struct {
	cfg      Config
	driver   browser.Driver
	tables   TableWriter
	recorder RunRecorder
	log      logrus.FieldLogger
	limiter  *rate.Limiter
	now      func() time.Time

	periods   []periods.Period
	state     State
	articles  int
	toolsOpen bool
	mainTab   string
	runID     uuid.UUID
}

// New validates cfg and generates its periods. The driver must already be
// started; the scraper never closes it.
func New(cfg Config, driver browser.Driver, tables TableWriter, log logrus.FieldLogger, opts ...Option) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	limit := rate.Inf
	if cfg.Pace > 0 {
		limit = rate.Every(cfg.Pace)
	}

	s := &Scraper{
		cfg:     cfg,
		driver:  driver,
		tables:  tables,
		log:     log.WithField("keyword", cfg.Keyword),
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ps, err := periods.GenerateFrom(cfg.StartDate, cfg.Periods, cfg.Periodicity)
	if err := report(s.log, OpGeneratePeriods, err); err != nil {
		return nil, err
	}
	s.periods = ps

	return s, nil
}

// StartBrowser launches the configured browser backend.
func StartBrowser(ctx context.Context, cfg Config, log logrus.FieldLogger) (browser.Driver, error) {
	driver, err := browser.New(ctx, cfg.BrowserOptions(log))
	if err := report(log, OpStartBrowser, err); err != nil {
		return nil, err
	}
	return driver, nil
}

// Periods returns the date ranges the scraper will search.
func (s *Scraper) Periods() []periods.Period {
	return s.periods
}

// State returns the current workflow state.
func (s *Scraper) State() State {
	return s.state
}

// Articles returns the number of articles visited so far, whether or not
// their extraction succeeded.
func (s *Scraper) Articles() int {
	return s.articles
}

func (s *Scraper) setState(state State) {
	s.state = state
	s.log.WithField("state", state).Debug("state changed")
}

// Scrape runs the whole workflow. Every period reached is flushed as a
// table; a fatal failure stops the scrape and is returned together with the
// summary of what was flushed before it.
func (s *Scraper) Scrape(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Keyword:   s.cfg.Keyword,
		StartedAt: s.now(),
	}
	s.startRun(summary)

	err := s.scrape(ctx, summary)

	summary.Articles = s.articles
	summary.FinishedAt = s.now()
	s.finishRun(summary, err)

	if err != nil {
		return summary, err
	}

	s.log.WithFields(logrus.Fields{
		"periods":  len(summary.Periods),
		"articles": summary.Articles,
		"elapsed":  summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second),
	}).Info("scrape finished")
	return summary, nil
}

func (s *Scraper) scrape(ctx context.Context, summary *Summary) error {
	if err := report(s.log, OpOpenHome, s.driver.Open(ctx, s.cfg.HomeURL)); err != nil {
		return err
	}

	if err := report(s.log, OpSetLanguage, s.setLanguage(ctx)); err != nil {
		return err
	}
	s.setState(StateLanguageSet)

	if err := report(s.log, OpSubmitKeyword, s.submitKeyword(ctx)); err != nil {
		return err
	}
	s.setState(StateKeywordSubmitted)

	tabs, err := s.driver.Tabs(ctx)
	if err == nil && len(tabs) == 0 {
		err = ErrNoMainTab
	}
	if err := report(s.log, OpSubmitKeyword, err); err != nil {
		return err
	}
	s.mainTab = tabs[0]

	for i, period := range s.periods {
		s.setState(StatePeriodLoop)
		log := s.log.WithFields(logrus.Fields{
			"period":  period.String(),
			"current": i + 1,
			"total":   len(s.periods),
		})
		log.Info("scraping period")

		records, err := s.scrapePeriod(ctx, period, log)
		if err != nil {
			return err
		}

		flushed, err := s.flush(period, records)
		if err != nil {
			return err
		}
		summary.Periods = append(summary.Periods, flushed)
		s.setState(StatePeriodFlushed)
		log.WithFields(logrus.Fields{
			"records": flushed.Records,
			"path":    flushed.Path,
		}).Info("period flushed")
	}

	s.setState(StateDone)
	return nil
}

// startRun assigns the run id, registering the run with the recorder when
// there is one. A recorder that cannot create the run is dropped.
func (s *Scraper) startRun(summary *Summary) {
	s.runID = uuid.New()
	if s.recorder != nil {
		run, err := s.recorder.CreateRun(index.RunParams{
			Keyword:     s.cfg.Keyword,
			StartDate:   s.cfg.StartDate,
			Periodicity: s.cfg.Periodicity,
			Periods:     s.cfg.Periods,
			OutputDir:   s.cfg.OutputDir,
		}, summary.StartedAt)
		if report(s.log, OpRecordRun, err) != nil {
			s.recorder = nil
		} else {
			s.runID = run.RunID
		}
	}

	summary.RunID = s.runID
	s.log = s.log.WithField("run_id", s.runID)
	s.log.WithField("periods", len(s.periods)).Info("scrape started")
}

func (s *Scraper) finishRun(summary *Summary, runErr error) {
	if s.recorder == nil {
		return
	}

	status := index.StatusDone
	if runErr != nil {
		status = index.StatusFailed
	}
	err := s.recorder.FinishRun(s.runID, status, summary.Articles, runErr, summary.FinishedAt)
	_ = report(s.log, OpRecordRun, err)
}

// scrapePeriod applies the period's date filter and collects up to
// ResultPages pages of results. Only the first page's failures are fatal;
// later pages end the period's pagination.
func (s *Scraper) scrapePeriod(ctx context.Context, period periods.Period, log logrus.FieldLogger) ([]rangescrape.Record, error) {
	var records []rangescrape.Record

	for page := 1; page <= s.cfg.ResultPages; page++ {
		s.setState(StatePageLoop)
		log := log.WithField("page", page)
		log.Info("collecting results page")

		if page == 1 {
			if !s.toolsOpen {
				if err := report(s.log, OpOpenTools, s.click(ctx, ToolsButton)); err != nil {
					return nil, err
				}
				s.toolsOpen = true
			}

			if err := report(s.log, OpApplyDateFilter, s.applyDateFilter(ctx, period)); err != nil {
				return nil, err
			}

			got, err := s.collectPage(ctx, OpCollectResults, OpCollectArticle)
			if err != nil {
				return nil, err
			}
			records = append(records, got...)
			s.setState(StateResultsCollected)
			continue
		}

		if err := report(log, OpNextPage, s.nextPage(ctx, page)); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Info("no more result pages for period")
			break
		}

		got, err := s.collectPage(ctx, OpCollectMore, OpCollectMoreItem)
		records = append(records, got...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Info("ending period pagination after failed page")
			break
		}
		s.setState(StateResultsCollected)
	}

	return records, nil
}

func (s *Scraper) flush(period periods.Period, records []rangescrape.Record) (PeriodResult, error) {
	table := rangescrape.PeriodTable{
		Period:  period,
		Keyword: s.cfg.Keyword,
		Records: records,
	}

	path, err := s.tables.WriteTable(table)
	if err := report(s.log, OpWriteTable, err); err != nil {
		return PeriodResult{}, err
	}

	if s.recorder != nil {
		_ = report(s.log, OpRecordPeriod, s.recorder.AddPeriod(s.runID, table, path, s.now()))
	}

	return PeriodResult{Period: period, Records: len(records), Path: path}, nil
}

// pace blocks until the next search UI interaction is allowed.
func (s *Scraper) pace(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// find paces and then waits for the first element matching loc.
func (s *Scraper) find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	return s.driver.FindFirst(ctx, loc, s.cfg.Wait)
}

func (s *Scraper) click(ctx context.Context, loc browser.Locator) error {
	el, err := s.find(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("failed to click %s: %w", loc, err)
	}
	return nil
}

func (s *Scraper) typeInto(ctx context.Context, loc browser.Locator, text string) error {
	el, err := s.find(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Type(ctx, text); err != nil {
		return fmt.Errorf("failed to type into %s: %w", loc, err)
	}
	return nil
}

func (s *Scraper) setLanguage(ctx context.Context) error {
	if s.cfg.Language == "" {
		return nil
	}
	if _, err := s.find(ctx, LanguagePanel); err != nil {
		return err
	}
	return s.click(ctx, LanguageLink(s.cfg.Language))
}

func (s *Scraper) submitKeyword(ctx context.Context) error {
	if err := s.typeInto(ctx, SearchInput, s.cfg.Keyword); err != nil {
		return err
	}
	return s.click(ctx, SearchSubmit)
}

// applyDateFilter sets the custom date range in the search tools. The tools
// bar must already be open.
func (s *Scraper) applyDateFilter(ctx context.Context, period periods.Period) error {
	if _, err := s.find(ctx, ToolsMenu); err != nil {
		return err
	}
	if err := s.click(ctx, TimeMenu); err != nil {
		return err
	}
	if err := s.click(ctx, CustomRange); err != nil {
		return err
	}
	if err := s.typeInto(ctx, FromDateField, period.FormatStart()); err != nil {
		return err
	}
	if err := s.typeInto(ctx, ToDateField, period.FormatEnd()); err != nil {
		return err
	}
	return s.click(ctx, DateRangeGo)
}

func (s *Scraper) nextPage(ctx context.Context, page int) error {
	if err := s.driver.SwitchTab(ctx, s.mainTab); err != nil {
		return err
	}
	return s.click(ctx, PageLink(page))
}

// result is one search result's date label and link.
type result struct {
	Date string
	Link string
}

// collectPage visits every result on the current results page, reporting
// failures under resultsOp and articleOp.
func (s *Scraper) collectPage(ctx context.Context, resultsOp, articleOp Op) ([]rangescrape.Record, error) {
	results, err := s.collectResults(ctx)
	if err := report(s.log, resultsOp, err); err != nil {
		return nil, err
	}

	records := make([]rangescrape.Record, 0, len(results))
	for _, r := range results {
		record, err := s.collectArticle(ctx, r)
		if err := report(s.log, articleOp, err); err != nil {
			return records, err
		}
		records = append(records, record)
	}
	return records, nil
}

// collectResults returns the page's results using the first strategy that
// matches anything. Results whose link or date cannot be read are skipped.
func (s *Scraper) collectResults(ctx context.Context) ([]result, error) {
	var blocks []browser.Element
	for _, loc := range ResultStrategies {
		found, err := s.driver.FindAll(ctx, loc, s.cfg.Wait)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithField("locator", loc).WithError(err).Debug("result strategy failed")
			continue
		}
		if len(found) > 0 {
			blocks = found
			s.log.WithFields(logrus.Fields{
				"locator": loc,
				"results": len(found),
			}).Debug("found results")
			break
		}
	}
	if len(blocks) == 0 {
		return nil, ErrNoResults
	}

	var results []result
	for _, block := range blocks {
		r, err := parseResult(ctx, block)
		if report(s.log, OpParseResult, err) != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func parseResult(ctx context.Context, block browser.Element) (result, error) {
	links, err := block.Find(ctx, ResultLink)
	if err != nil {
		return result{}, err
	}
	if len(links) == 0 {
		return result{}, ErrNoResultLink
	}
	href, err := links[0].Attribute(ctx, "href")
	if err != nil {
		return result{}, err
	}

	labels, err := block.Find(ctx, ResultDateLabel)
	if err != nil {
		return result{}, err
	}
	if len(labels) == 0 {
		return result{}, ErrNoDateLabel
	}
	label, err := labels[0].Attribute(ctx, "textContent")
	if err != nil {
		return result{}, err
	}

	return result{Date: parseDateLabel(label), Link: href}, nil
}

// collectArticle opens a result in a new tab, extracts its text and returns
// to the results tab. The record is built even when extraction fails.
func (s *Scraper) collectArticle(ctx context.Context, r result) (rangescrape.Record, error) {
	log := s.log.WithFields(logrus.Fields{"date": r.Date, "link": r.Link})

	tab, err := s.driver.OpenTab(ctx, r.Link)
	if err != nil {
		if tab != "" {
			s.closeTab(ctx, tab)
		}
		return rangescrape.Record{}, err
	}
	if err := s.driver.SwitchTab(ctx, tab); err != nil {
		s.closeTab(ctx, tab)
		return rangescrape.Record{}, err
	}

	page := s.extract(ctx, log)
	record := rangescrape.NewRecord(page.Title, page.Headers, page.Text, r.Date, r.Link, s.cfg.Limits())

	s.articles++
	log.WithFields(logrus.Fields{
		"title_words":   rangescrape.WordCount(page.Title),
		"header_words":  rangescrape.WordCount(page.Headers),
		"text_words":    rangescrape.WordCount(page.Text),
		"articles_seen": s.articles,
	}).Info("article collected")

	if err := s.driver.CloseTab(ctx, tab); err != nil {
		return record, err
	}
	if err := s.driver.SwitchTab(ctx, s.mainTab); err != nil {
		return record, err
	}
	return record, nil
}

// ArticleContent matches the headings and paragraphs the extraction routines
// read.
var ArticleContent = browser.CSS(extract.HeaderSelector + ", " + extract.ParagraphSelect)

// extract waits up to the lookup timeout for article content, then runs the
// three extraction routines on the current tab. Each failure leaves its
// field empty.
func (s *Scraper) extract(ctx context.Context, log logrus.FieldLogger) extract.Page {
	var page extract.Page

	found, err := s.driver.FindAll(ctx, ArticleContent, s.cfg.Wait)
	if err != nil {
		log.WithError(err).Debug("article content did not appear")
	} else if len(found) == 0 {
		log.WithField("wait", s.cfg.Wait).Debug("no headings or paragraphs appeared")
	}

	html, err := s.driver.HTML(ctx)
	if err != nil {
		for _, op := range []Op{OpExtractTitle, OpExtractHeaders, OpExtractBody} {
			_ = report(log, op, err)
		}
		return page
	}

	doc, err := extract.Parse(html)
	if err != nil {
		for _, op := range []Op{OpExtractTitle, OpExtractHeaders, OpExtractBody} {
			_ = report(log, op, err)
		}
		return page
	}

	if page.Title, err = extract.Title(doc); err != nil {
		_ = report(log, OpExtractTitle, err)
	}
	if page.Headers, err = extract.Headers(doc); err != nil {
		_ = report(log, OpExtractHeaders, err)
	}
	if page.Text, err = extract.Body(doc); err != nil {
		_ = report(log, OpExtractBody, err)
	}
	return page
}

func (s *Scraper) closeTab(ctx context.Context, tab string) {
	if err := s.driver.CloseTab(ctx, tab); err != nil {
		s.log.WithError(err).Warn("failed to close tab")
	}
	if err := s.driver.SwitchTab(ctx, s.mainTab); err != nil {
		s.log.WithError(err).Warn("failed to return to results tab")
	}
}
