package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// cdpTab holds a chromedp tab context and its cancel function.
type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type chromedpDriver struct {
	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabs          map[string]*cdpTab
	first         string
	order         []string
	current       string
	timeout       time.Duration
	log           logrus.FieldLogger
}

func newChromedpDriver(ctx context.Context, opts Options) (*chromedpDriver, error) {
	// Copy default options to avoid mutating the package-level slice.
	allocOpts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(allocOpts, chromedp.DefaultExecAllocatorOptions[:])
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 720),
	)
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}

	d := &chromedpDriver{
		tabs:    make(map[string]*cdpTab),
		timeout: opts.ActionTimeout,
		log:     opts.Logger.WithField("backend", ChromeDP),
	}

	var allocCtx context.Context
	allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	d.browserCtx, d.browserCancel = chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and binds it to browserCtx, so it
	// must not be a derived timeout context. Tabs derived afterwards share
	// this browser, and browserCtx itself stays the first tab.
	startDone := make(chan error, 1)
	go func() { startDone <- chromedp.Run(d.browserCtx) }()

	select {
	case err := <-startDone:
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-time.After(opts.ActionTimeout):
		d.Close()
		return nil, fmt.Errorf("failed to start browser: timed out after %v", opts.ActionTimeout)
	case <-ctx.Done():
		d.Close()
		return nil, ctx.Err()
	}

	d.first = string(chromedp.FromContext(d.browserCtx).Target.TargetID)
	d.tabs[d.first] = &cdpTab{ctx: d.browserCtx, cancel: d.browserCancel}
	d.order = append(d.order, d.first)
	d.current = d.first

	d.log.WithField("headless", opts.Headless).Info("browser started")
	return d, nil
}

// tab returns the current tab. Caller must hold mu.
func (d *chromedpDriver) tab() (*cdpTab, error) {
	tab, ok := d.tabs[d.current]
	if !ok {
		return nil, fmt.Errorf("%w: no current tab", ErrUnknownTab)
	}
	return tab, nil
}

// run executes actions in tab, bounded by timeout and cancelled with ctx.
func run(ctx context.Context, tab *cdpTab, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(tab.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (d *chromedpDriver) Open(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tab, err := d.tab()
	if err != nil {
		return err
	}

	if err := run(ctx, tab, d.timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (d *chromedpDriver) FindFirst(ctx context.Context, loc Locator, wait time.Duration) (Element, error) {
	elements, err := d.FindAll(ctx, loc, wait)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return elements[0], nil
}

func (d *chromedpDriver) FindAll(ctx context.Context, loc Locator, wait time.Duration) ([]Element, error) {
	sel, by, err := chromedpQuery(loc)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tab, err := d.tab()
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	err = run(ctx, tab, wait, chromedp.Nodes(sel, &nodes, by))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", loc, err)
	}

	return d.wrapNodes(tab, nodes), nil
}

func (d *chromedpDriver) HTML(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tab, err := d.tab()
	if err != nil {
		return "", err
	}

	var html string
	if err := run(ctx, tab, d.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (d *chromedpDriver) Tabs(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	targets, err := chromedp.Targets(d.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}

	live := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Type == "page" {
			live[string(t.TargetID)] = true
		}
	}

	var tabs []string
	for _, id := range d.order {
		if live[id] {
			tabs = append(tabs, id)
		}
	}
	return tabs, nil
}

func (d *chromedpDriver) OpenTab(ctx context.Context, url string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// CreateTarget guarantees a new tab; NewContext alone may reuse an
	// existing blank target.
	var targetID target.ID
	if err := chromedp.Run(d.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			targetID, err = target.CreateTarget("about:blank").Do(ctx)
			return err
		}),
	); err != nil {
		return "", fmt.Errorf("failed to open tab: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(targetID))
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return "", fmt.Errorf("failed to attach tab: %w", err)
	}

	id := string(targetID)
	tab := &cdpTab{ctx: tabCtx, cancel: tabCancel}
	d.tabs[id] = tab
	d.order = append(d.order, id)

	if err := run(ctx, tab, d.timeout, chromedp.Navigate(url)); err != nil {
		return id, fmt.Errorf("failed to open %s in new tab: %w", url, err)
	}
	return id, nil
}

func (d *chromedpDriver) SwitchTab(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tabs[handle]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, handle)
	}
	d.current = handle

	return chromedp.Run(d.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return target.ActivateTarget(target.ID(handle)).Do(ctx)
		}),
	)
}

func (d *chromedpDriver) CloseTab(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tab, ok := d.tabs[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, handle)
	}
	if handle == d.first {
		return fmt.Errorf("%w: %s", ErrFirstTab, handle)
	}

	// Cancelling a tab's context closes the tab.
	tab.cancel()
	delete(d.tabs, handle)
	for i, id := range d.order {
		if id == handle {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.current == handle {
		d.current = ""
	}
	return nil
}

func (d *chromedpDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for handle, tab := range d.tabs {
		if handle != d.first {
			tab.cancel()
		}
	}
	d.tabs = map[string]*cdpTab{}
	d.order = nil
	d.current = ""

	if d.browserCancel != nil {
		d.browserCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}

	d.log.Info("browser closed")
	return nil
}

func (d *chromedpDriver) wrapNodes(tab *cdpTab, nodes []*cdp.Node) []Element {
	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = &chromedpElement{tab: tab, node: n, timeout: d.timeout}
	}
	return elements
}

// chromedpQuery maps a Locator onto a chromedp selector and query option.
func chromedpQuery(loc Locator) (string, chromedp.QueryOption, error) {
	if loc.IsXPath() {
		return loc.Value, chromedp.BySearch, nil
	}
	css, err := loc.CSSSelector()
	if err != nil {
		return "", nil, err
	}
	return css, chromedp.ByQueryAll, nil
}

type chromedpElement struct {
	tab     *cdpTab
	node    *cdp.Node
	timeout time.Duration
}

func (e *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := run(ctx, e.tab, e.timeout, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *chromedpElement) Attribute(ctx context.Context, name string) (string, error) {
	var prop any
	if err := run(ctx, e.tab, e.timeout, chromedp.JavascriptAttribute(e.ids(), name, &prop, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	if prop != nil {
		if s, ok := prop.(string); ok {
			return s, nil
		}
		return fmt.Sprint(prop), nil
	}

	var value string
	var ok bool
	if err := run(ctx, e.tab, e.timeout, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return run(ctx, e.tab, e.timeout, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *chromedpElement) Type(ctx context.Context, text string) error {
	return run(ctx, e.tab, e.timeout,
		chromedp.Clear(e.ids(), chromedp.ByNodeID),
		chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID),
	)
}

// Find runs a CSS query under the element. XPath lookups are not scoped by
// chromedp and are rejected.
func (e *chromedpElement) Find(ctx context.Context, loc Locator) ([]Element, error) {
	if loc.IsXPath() {
		return nil, fmt.Errorf("%w: xpath lookups under an element are not supported by %s", ErrUnknownBy, ChromeDP)
	}
	css, err := loc.CSSSelector()
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	if err := run(ctx, e.tab, e.timeout,
		chromedp.Nodes(css, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	); err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", loc, err)
	}

	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = &chromedpElement{tab: e.tab, node: n, timeout: e.timeout}
	}
	return elements, nil
}
