package scraper

import (
	"errors"
	"fmt"
	"time"

	"github.com/pevans/rangescrape"
	"github.com/pevans/rangescrape/browser"
	"github.com/pevans/rangescrape/sink"
	"github.com/sirupsen/logrus"
)

// Configuration errors
var (
	ErrMissingKeyword       = errors.New("keyword is required")
	ErrMissingStartDate     = errors.New("start_date is required")
	ErrInvalidPeriods       = errors.New("periods must be at least 1")
	ErrInvalidResultPages   = errors.New("result_pages must be at least 1")
	ErrInvalidWordLimit     = errors.New("max_header_words and max_text_words must be at least 1")
	ErrMissingOutputDir     = errors.New("output_dir is required")
	ErrMissingHomeURL       = errors.New("home_url is required")
	ErrInvalidWait          = errors.New("wait must be positive")
	ErrInvalidPace          = errors.New("pace must be non-negative")
	ErrInvalidBackend       = errors.New("browser.backend must be 'playwright' or 'chromedp'")
	ErrInvalidActionTimeout = errors.New("browser.action_timeout must be positive")
)

// DefaultHomeURL is the search engine home page.
const DefaultHomeURL = "https://www.google.com/"

// Config describes one scrape: what to search for, which date ranges to
// search and how to drive the browser.
type Config struct {
	Keyword string `yaml:"keyword"`
	// StartDate is the first period's nominal start, MM/DD/YYYY.
	StartDate string `yaml:"start_date"`
	Periods   int    `yaml:"periods"`
	// Periodicity is a period length code such as "D", "2D", "W" or "M".
	Periodicity    string `yaml:"periodicity"`
	ResultPages    int    `yaml:"result_pages"`
	MaxHeaderWords int    `yaml:"max_header_words"`
	MaxTextWords   int    `yaml:"max_text_words"`
	OutputDir      string `yaml:"output_dir"`
	Format         string `yaml:"format"`
	// Language is the search UI language link to click. Empty skips the
	// step.
	Language string `yaml:"language"`
	HomeURL  string `yaml:"home_url"`
	// Wait bounds every element lookup.
	Wait time.Duration `yaml:"wait"`
	// Pace is the minimum gap between search UI interactions.
	Pace    time.Duration `yaml:"pace"`
	Browser BrowserConfig `yaml:"browser"`
}

// BrowserConfig selects and configures the browser backend.
type BrowserConfig struct {
	Backend       string        `yaml:"backend"`
	Headless      bool          `yaml:"headless"`
	Locale        string        `yaml:"locale"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
	Install       bool          `yaml:"install"`
}

// DefaultConfig returns the default configuration. Keyword and StartDate
// have no defaults.
func DefaultConfig() Config {
	return Config{
		Periods:        1,
		Periodicity:    "M",
		ResultPages:    5,
		MaxHeaderWords: rangescrape.DefaultMaxHeaderWords,
		MaxTextWords:   rangescrape.DefaultMaxTextWords,
		OutputDir:      ".",
		Format:         string(sink.CSV),
		Language:       "English",
		HomeURL:        DefaultHomeURL,
		Wait:           browser.DefaultWait,
		Pace:           500 * time.Millisecond,
		Browser: BrowserConfig{
			Backend:       string(browser.Playwright),
			Headless:      true,
			Locale:        "en-US",
			ActionTimeout: 30 * time.Second,
		},
	}
}

// Validate validates the configuration. The start date and periodicity are
// checked when periods are generated.
func (c *Config) Validate() error {
	if c.Keyword == "" {
		return ErrMissingKeyword
	}

	if c.StartDate == "" {
		return ErrMissingStartDate
	}

	if c.Periods < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidPeriods, c.Periods)
	}

	if c.ResultPages < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidResultPages, c.ResultPages)
	}

	if c.MaxHeaderWords < 1 || c.MaxTextWords < 1 {
		return ErrInvalidWordLimit
	}

	if c.OutputDir == "" {
		return ErrMissingOutputDir
	}

	if _, err := sink.ParseFormat(c.Format); err != nil {
		return err
	}

	if c.HomeURL == "" {
		return ErrMissingHomeURL
	}

	if c.Wait <= 0 {
		return ErrInvalidWait
	}

	if c.Pace < 0 {
		return ErrInvalidPace
	}

	switch browser.Backend(c.Browser.Backend) {
	case browser.Playwright, browser.ChromeDP:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidBackend, c.Browser.Backend)
	}

	if c.Browser.ActionTimeout <= 0 {
		return ErrInvalidActionTimeout
	}

	return nil
}

// Limits returns the record word limits.
func (c *Config) Limits() rangescrape.Limits {
	return rangescrape.Limits{
		MaxHeaderWords: c.MaxHeaderWords,
		MaxTextWords:   c.MaxTextWords,
	}
}

// BrowserOptions returns the driver options for this configuration.
func (c *Config) BrowserOptions(log logrus.FieldLogger) browser.Options {
	return browser.Options{
		Backend:         browser.Backend(c.Browser.Backend),
		Headless:        c.Browser.Headless,
		Locale:          c.Browser.Locale,
		ActionTimeout:   c.Browser.ActionTimeout,
		InstallBrowsers: c.Browser.Install,
		Logger:          log,
	}
}
