package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// attributeJS reads a DOM property and falls back to the HTML attribute.
const attributeJS = `(el, name) => {
	const v = el[name];
	if (v === undefined || v === null) {
		return el.getAttribute(name);
	}
	return String(v);
}`

type playwrightDriver struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	pages   map[string]playwright.Page
	order   []string
	current string
	timeout time.Duration
	log     logrus.FieldLogger
}

func newPlaywrightDriver(ctx context.Context, opts Options) (*playwrightDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.InstallBrowsers {
		opts.Logger.Info("installing playwright browsers")
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		}); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(&playwright.RunOptions{
		Verbose: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.Locale != "" {
		contextOpts.Locale = playwright.String(opts.Locale)
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))

	page, err := bctx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	d := &playwrightDriver{
		pw:      pw,
		browser: browser,
		bctx:    bctx,
		pages:   make(map[string]playwright.Page),
		timeout: opts.ActionTimeout,
		log:     opts.Logger.WithField("backend", Playwright),
	}
	d.current = d.register(page)

	d.log.WithField("headless", opts.Headless).Info("browser started")
	return d, nil
}

// register stores a page under a fresh handle. Caller must hold mu or own d
// exclusively.
func (d *playwrightDriver) register(page playwright.Page) string {
	handle := uuid.NewString()
	d.pages[handle] = page
	d.order = append(d.order, handle)
	return handle
}

// page returns the current tab. Caller must hold mu.
func (d *playwrightDriver) page() (playwright.Page, error) {
	page, ok := d.pages[d.current]
	if !ok {
		return nil, fmt.Errorf("%w: no current tab", ErrUnknownTab)
	}
	return page, nil
}

func (d *playwrightDriver) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	page, err := d.page()
	if err != nil {
		return err
	}

	if _, err := page.Goto(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (d *playwrightDriver) FindFirst(ctx context.Context, loc Locator, wait time.Duration) (Element, error) {
	elements, err := d.FindAll(ctx, loc, wait)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return elements[0], nil
}

func (d *playwrightDriver) FindAll(ctx context.Context, loc Locator, wait time.Duration) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selector, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	page, err := d.page()
	if err != nil {
		return nil, err
	}

	locator := page.Locator(selector)
	err = locator.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(wait.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s: %w", loc, err)
	}

	return wrapLocators(locator)
}

func (d *playwrightDriver) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	page, err := d.page()
	if err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (d *playwrightDriver) Tabs(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tabs := make([]string, len(d.order))
	copy(tabs, d.order)
	return tabs, nil
}

func (d *playwrightDriver) OpenTab(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	page, err := d.bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to open tab: %w", err)
	}
	handle := d.register(page)

	if _, err := page.Goto(url); err != nil {
		return handle, fmt.Errorf("failed to open %s in new tab: %w", url, err)
	}
	return handle, nil
}

func (d *playwrightDriver) SwitchTab(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	page, ok := d.pages[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, handle)
	}
	d.current = handle
	return page.BringToFront()
}

func (d *playwrightDriver) CloseTab(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	page, ok := d.pages[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, handle)
	}

	delete(d.pages, handle)
	for i, h := range d.order {
		if h == handle {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.current == handle {
		d.current = ""
	}

	if err := page.Close(); err != nil {
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}

func (d *playwrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if err := d.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
	}
	d.pages = map[string]playwright.Page{}
	d.order = nil
	d.current = ""

	d.log.Info("browser closed")
	return errors.Join(errs...)
}

// playwrightSelector converts a Locator into a playwright selector with an
// explicit engine prefix.
func playwrightSelector(loc Locator) (string, error) {
	if loc.IsXPath() {
		return "xpath=" + loc.Value, nil
	}
	css, err := loc.CSSSelector()
	if err != nil {
		return "", err
	}
	return "css=" + css, nil
}

func wrapLocators(locator playwright.Locator) ([]Element, error) {
	all, err := locator.All()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	elements := make([]Element, len(all))
	for i, l := range all {
		elements[i] = &playwrightElement{loc: l}
	}
	return elements, nil
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.InnerText()
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, err := e.loc.Evaluate(attributeJS, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	s, _ := v.(string)
	return s, nil
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click()
}

func (e *playwrightElement) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(text)
}

func (e *playwrightElement) Find(ctx context.Context, loc Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selector, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}
	return wrapLocators(e.loc.Locator(selector))
}
