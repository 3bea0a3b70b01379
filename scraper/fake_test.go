package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pevans/rangescrape"
	"github.com/pevans/rangescrape/browser"
)

// fakeDriver is an in-memory browser. Elements are registered per locator
// and are visible from every tab.
type fakeDriver struct {
	elements map[string][]browser.Element
	pages    map[string]string
	urls     map[string]string
	tabs     []string
	current  string
	nextTab  int

	opened   []string
	clicks   []string
	typed    []string
	lookups  []lookup
	openErr  error
	tabErr   error
	findErrs map[string]error
}

// lookup is one FindAll call.
type lookup struct {
	key  string
	tab  string
	wait time.Duration
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{
		elements: map[string][]browser.Element{},
		pages:    map[string]string{},
		urls:     map[string]string{},
		tabs:     []string{"main"},
		current:  "main",
		findErrs: map[string]error{},
	}

	for _, loc := range []browser.Locator{
		LanguagePanel, LanguageLink("English"), SearchInput, SearchSubmit,
		ToolsButton, ToolsMenu, TimeMenu, CustomRange,
		FromDateField, ToDateField, DateRangeGo,
	} {
		d.add(loc)
	}
	return d
}

// add registers a plain element for loc.
func (d *fakeDriver) add(loc browser.Locator) {
	d.elements[loc.String()] = []browser.Element{&fakeElement{d: d, key: loc.String()}}
}

// onClick runs fn whenever the element registered for loc is clicked.
func (d *fakeDriver) onClick(loc browser.Locator, fn func()) {
	for _, el := range d.elements[loc.String()] {
		el.(*fakeElement).clicked = fn
	}
}

func (d *fakeDriver) remove(loc browser.Locator) {
	delete(d.elements, loc.String())
}

// addResults registers result blocks under strategy. Each result's link is
// served with html.
func (d *fakeDriver) addResults(strategy browser.Locator, html string, results ...result) {
	var blocks []browser.Element
	for _, r := range results {
		block := &fakeElement{d: d, key: strategy.String(), children: map[string][]browser.Element{}}
		if r.Link != "" {
			block.children[ResultLink.String()] = []browser.Element{
				&fakeElement{d: d, key: ResultLink.String(), attrs: map[string]string{"href": r.Link}},
			}
			d.pages[r.Link] = html
		}
		if r.Date != "" {
			block.children[ResultDateLabel.String()] = []browser.Element{
				&fakeElement{d: d, key: ResultDateLabel.String(), attrs: map[string]string{
					"textContent": r.Date + " — snippet text",
				}},
			}
		}
		blocks = append(blocks, block)
	}
	d.elements[strategy.String()] = blocks
}

func (d *fakeDriver) count(list []string, loc browser.Locator) int {
	n := 0
	for _, key := range list {
		if key == loc.String() {
			n++
		}
	}
	return n
}

func (d *fakeDriver) Open(ctx context.Context, url string) error {
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = append(d.opened, url)
	d.urls[d.current] = url
	return nil
}

func (d *fakeDriver) FindFirst(ctx context.Context, loc browser.Locator, wait time.Duration) (browser.Element, error) {
	found, err := d.FindAll(ctx, loc, wait)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc)
	}
	return found[0], nil
}

func (d *fakeDriver) FindAll(ctx context.Context, loc browser.Locator, wait time.Duration) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.lookups = append(d.lookups, lookup{key: loc.String(), tab: d.current, wait: wait})
	if err := d.findErrs[loc.String()]; err != nil {
		return nil, err
	}
	return d.elements[loc.String()], nil
}

func (d *fakeDriver) HTML(ctx context.Context) (string, error) {
	html, ok := d.pages[d.urls[d.current]]
	if !ok {
		return "", errors.New("page unavailable")
	}
	return html, nil
}

func (d *fakeDriver) Tabs(ctx context.Context) ([]string, error) {
	tabs := make([]string, len(d.tabs))
	copy(tabs, d.tabs)
	return tabs, nil
}

func (d *fakeDriver) OpenTab(ctx context.Context, url string) (string, error) {
	if d.tabErr != nil {
		return "", d.tabErr
	}
	d.nextTab++
	handle := fmt.Sprintf("tab-%d", d.nextTab)
	d.tabs = append(d.tabs, handle)
	d.urls[handle] = url
	d.opened = append(d.opened, url)
	return handle, nil
}

func (d *fakeDriver) SwitchTab(ctx context.Context, handle string) error {
	for _, h := range d.tabs {
		if h == handle {
			d.current = handle
			return nil
		}
	}
	return fmt.Errorf("%w: %s", browser.ErrUnknownTab, handle)
}

func (d *fakeDriver) CloseTab(ctx context.Context, handle string) error {
	for i, h := range d.tabs {
		if h == handle {
			d.tabs = append(d.tabs[:i], d.tabs[i+1:]...)
			if d.current == handle {
				d.current = ""
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", browser.ErrUnknownTab, handle)
}

func (d *fakeDriver) Close() error {
	return nil
}

type fakeElement struct {
	d        *fakeDriver
	key      string
	attrs    map[string]string
	children map[string][]browser.Element
	clicked  func()
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.attrs["textContent"], nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.d.clicks = append(e.d.clicks, e.key)
	if e.clicked != nil {
		e.clicked()
	}
	return nil
}

func (e *fakeElement) Type(ctx context.Context, text string) error {
	e.d.typed = append(e.d.typed, e.key+"="+text)
	return nil
}

func (e *fakeElement) Find(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	return e.children[loc.String()], nil
}

// memTables keeps written tables in memory.
type memTables struct {
	tables []rangescrape.PeriodTable
	err    error
}

func (m *memTables) WriteTable(table rangescrape.PeriodTable) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.tables = append(m.tables, table)
	return table.Name("csv"), nil
}
