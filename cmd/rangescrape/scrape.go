package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/rangescrape/config"
	"github.com/pevans/rangescrape/index"
	"github.com/pevans/rangescrape/logging"
	"github.com/pevans/rangescrape/scraper"
	"github.com/pevans/rangescrape/sink"
)

// scrapeEnv maps scrape flags to their environment variables.
var scrapeEnv = map[string]string{
	"keyword":     "RANGESCRAPE_KEYWORD",
	"start":       "RANGESCRAPE_START_DATE",
	"periods":     "RANGESCRAPE_PERIODS",
	"periodicity": "RANGESCRAPE_PERIODICITY",
	"pages":       "RANGESCRAPE_RESULT_PAGES",
	"out":         "RANGESCRAPE_OUTPUT_DIR",
	"format":      "RANGESCRAPE_FORMAT",
	"language":    "RANGESCRAPE_LANGUAGE",
	"wait":        "RANGESCRAPE_WAIT",
	"pace":        "RANGESCRAPE_PACE",
	"backend":     "RANGESCRAPE_BACKEND",
	"headless":    "RANGESCRAPE_HEADLESS",
	"index":       "RANGESCRAPE_INDEX_DSN",
	"log-level":   "RANGESCRAPE_LOG_LEVEL",
	"log-dir":     "RANGESCRAPE_LOG_DIR",
}

func handleScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", getEnv("RANGESCRAPE_CONFIG", ""), "Path to config file")
	keyword := fs.String("keyword", getEnv(scrapeEnv["keyword"], ""), "Search keyword")
	start := fs.String("start", getEnv(scrapeEnv["start"], ""), "First period start date (MM/DD/YYYY)")
	periodCount := fs.Int("periods", getEnvInt(scrapeEnv["periods"], 1), "Number of periods")
	periodicity := fs.String("periodicity", getEnv(scrapeEnv["periodicity"], "M"), "Period length code (D, B, W, M, MS, ...)")
	pages := fs.Int("pages", getEnvInt(scrapeEnv["pages"], 5), "Result pages per period")
	headerWords := fs.Int("header-words", 0, "Maximum header words per record")
	textWords := fs.Int("text-words", 0, "Maximum body text words per record")
	outputDir := fs.String("out", getEnv(scrapeEnv["out"], "."), "Directory receiving period tables")
	format := fs.String("format", getEnv(scrapeEnv["format"], "csv"), "Table format (csv or jsonl)")
	language := fs.String("language", getEnv(scrapeEnv["language"], "English"), "Search UI language link text (empty skips)")
	wait := fs.Duration("wait", getEnvDuration(scrapeEnv["wait"], 0), "Element lookup timeout")
	pace := fs.Duration("pace", getEnvDuration(scrapeEnv["pace"], 0), "Minimum gap between UI interactions")
	backend := fs.String("backend", getEnv(scrapeEnv["backend"], "playwright"), "Browser backend (playwright or chromedp)")
	headless := fs.Bool("headless", getEnvBool(scrapeEnv["headless"], true), "Run the browser headless")
	install := fs.Bool("install", false, "Install playwright browsers before starting")
	indexDSN := fs.String("index", getEnv(scrapeEnv["index"], ""), "Path to run index database (empty disables)")
	logLevel := fs.String("log-level", getEnv(scrapeEnv["log-level"], "info"), "Log level")
	logDir := fs.String("log-dir", getEnv(scrapeEnv["log-dir"], "."), "Directory receiving log files (empty disables)")
	fs.Parse(args)

	fileCfg := loadConfig(*configPath)
	given := mustGivenFlags(fs, scrapeEnv)

	cfg := &fileCfg.Scrape
	if given["keyword"] {
		cfg.Keyword = *keyword
	}
	if given["start"] {
		cfg.StartDate = *start
	}
	if given["periods"] {
		cfg.Periods = *periodCount
	}
	if given["periodicity"] {
		cfg.Periodicity = *periodicity
	}
	if given["pages"] {
		cfg.ResultPages = *pages
	}
	if given["header-words"] {
		cfg.MaxHeaderWords = *headerWords
	}
	if given["text-words"] {
		cfg.MaxTextWords = *textWords
	}
	if given["out"] {
		cfg.OutputDir = *outputDir
	}
	if given["format"] {
		cfg.Format = *format
	}
	if given["language"] {
		cfg.Language = *language
	}
	if given["wait"] {
		cfg.Wait = *wait
	}
	if given["pace"] {
		cfg.Pace = *pace
	}
	if given["backend"] {
		cfg.Browser.Backend = *backend
	}
	if given["headless"] {
		cfg.Browser.Headless = *headless
	}
	if given["install"] {
		cfg.Browser.Install = *install
	}
	if given["index"] {
		fileCfg.Index.DSN = *indexDSN
	}
	if given["log-level"] {
		fileCfg.Logging.Level = *logLevel
	}
	if given["log-dir"] {
		fileCfg.Logging.Dir = *logDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	summary, err := runScrape(fileCfg)
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: scrape failed: %v\n", err)
		os.Exit(1)
	}
}

// runScrape wires the logger, table writer, run index and browser, then runs
// the scrape until it finishes or the process is interrupted.
func runScrape(fileCfg *config.FileConfig) (*scraper.Summary, error) {
	cfg := fileCfg.Scrape

	logger, err := logging.New(fileCfg.Logging)
	if err != nil {
		return nil, err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := sink.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	tables, err := sink.New(cfg.OutputDir, format)
	if err != nil {
		return nil, err
	}

	var opts []scraper.Option
	if fileCfg.Index.DSN != "" {
		store, err := index.NewStore(fileCfg.Index.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open run index: %w", err)
		}
		defer store.Close()
		opts = append(opts, scraper.WithRecorder(store))
	}

	driver, err := scraper.StartBrowser(ctx, cfg, logger.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.WithError(err).Warn("failed to close browser")
		}
	}()

	s, err := scraper.New(cfg, driver, tables, logger.Logger, opts...)
	if err != nil {
		return nil, err
	}

	return s.Scrape(ctx)
}
