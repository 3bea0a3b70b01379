// Package browser drives a real web browser for the scraper. A Driver hides
// the automation backend (playwright or chromedp) behind the handful of
// operations the scrape needs: open a page, locate elements with a wait,
// read page HTML and juggle tabs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWait is how long a lookup waits for its element to appear.
const DefaultWait = 5 * time.Second

var (
	ErrNotFound       = errors.New("element not found")
	ErrUnknownTab     = errors.New("unknown tab")
	ErrUnknownBackend = errors.New("unknown browser backend")
	ErrUnknownBy      = errors.New("unknown locator strategy")
	ErrFirstTab       = errors.New("first tab closes only with the browser")
)

// Strategy is how a Locator value is interpreted.
type Strategy string

const (
	ByXPath Strategy = "xpath"
	ByClass Strategy = "class"
	ByCSS   Strategy = "css"
	ByTag   Strategy = "tag"
	ByID    Strategy = "id"
)

// Locator identifies elements on a page.
type Locator struct {
	By    Strategy
	Value string
}

func XPath(expr string) Locator   { return Locator{By: ByXPath, Value: expr} }
func Class(name string) Locator   { return Locator{By: ByClass, Value: name} }
func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }
func Tag(name string) Locator     { return Locator{By: ByTag, Value: name} }
func ID(id string) Locator        { return Locator{By: ByID, Value: id} }

func (l Locator) String() string {
	return string(l.By) + "=" + l.Value
}

// IsXPath reports whether the locator holds an XPath expression.
func (l Locator) IsXPath() bool {
	return l.By == ByXPath
}

// CSSSelector returns the CSS form of a non-XPath locator. A class locator
// holding several space-separated names matches elements carrying all of
// them.
func (l Locator) CSSSelector() (string, error) {
	switch l.By {
	case ByCSS, ByTag:
		return l.Value, nil
	case ByClass:
		return "." + strings.Join(strings.Fields(l.Value), "."), nil
	case ByID:
		return "#" + l.Value, nil
	case ByXPath:
		return "", fmt.Errorf("%w: xpath %q has no css form", ErrUnknownBy, l.Value)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBy, l.By)
	}
}

// Element is a located node on the current page.
type Element interface {
	// Text returns the element's rendered text.
	Text(ctx context.Context) (string, error)
	// Attribute returns the named DOM property, falling back to the HTML
	// attribute when the property is unset.
	Attribute(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
	// Type replaces the value of an input element.
	Type(ctx context.Context, text string) error
	// Find returns the descendants matching loc without waiting.
	Find(ctx context.Context, loc Locator) ([]Element, error)
}

// Driver is a browser session with one or more tabs. Lookups and page
// operations apply to the current tab.
type Driver interface {
	Open(ctx context.Context, url string) error
	// FindFirst waits up to wait for an element matching loc and returns
	// ErrNotFound when none appears.
	FindFirst(ctx context.Context, loc Locator, wait time.Duration) (Element, error)
	// FindAll waits up to wait for at least one element matching loc. An
	// empty result is not an error.
	FindAll(ctx context.Context, loc Locator, wait time.Duration) ([]Element, error)
	// HTML returns the current tab's serialized document.
	HTML(ctx context.Context) (string, error)
	// Tabs returns the handles of all open tabs in the order they opened.
	Tabs(ctx context.Context) ([]string, error)
	// OpenTab opens url in a new tab and returns its handle. The current
	// tab is unchanged.
	OpenTab(ctx context.Context, url string) (string, error)
	SwitchTab(ctx context.Context, handle string) error
	// CloseTab closes the tab. Closing the current tab leaves no current tab
	// until the next SwitchTab. Backends that tie the browser to its first
	// tab refuse to close it with ErrFirstTab.
	CloseTab(ctx context.Context, handle string) error
	Close() error
}

// Backend names an automation backend.
type Backend string

const (
	Playwright Backend = "playwright"
	ChromeDP   Backend = "chromedp"
)

// Options configures a new Driver.
type Options struct {
	Backend  Backend
	Headless bool
	// Locale sets the browser's UI language, e.g. "en-US". Empty keeps the
	// browser default.
	Locale string
	// ActionTimeout bounds clicks, typing and navigation.
	ActionTimeout time.Duration
	// InstallBrowsers downloads the playwright driver and chromium before
	// launch.
	InstallBrowsers bool
	Logger          logrus.FieldLogger
}

// DefaultOptions returns options for a headless playwright session.
func DefaultOptions() Options {
	return Options{
		Backend:       Playwright,
		Headless:      true,
		ActionTimeout: 30 * time.Second,
	}
}

// New launches a browser with the selected backend.
func New(ctx context.Context, opts Options) (Driver, error) {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultOptions().ActionTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	switch opts.Backend {
	case Playwright, "":
		return newPlaywrightDriver(ctx, opts)
	case ChromeDP:
		return newChromedpDriver(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
