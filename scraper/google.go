package scraper

import (
	"fmt"
	"strings"

	"github.com/pevans/rangescrape/browser"
)

// Search page controls.
var (
	LanguagePanel = browser.ID("SIvCob")
	SearchInput   = browser.XPath(`//input[@type="text"]`)
	SearchSubmit  = browser.XPath(`//input[@type='submit']`)
	ToolsButton   = browser.XPath(`//div[@id="hdtb-tls"]`)
	ToolsMenu     = browser.XPath(`//div[@class="hdtb-mn-cont"]`)
	TimeMenu      = browser.XPath(`//div[@class="mn-hd-txt"]`)
	CustomRange   = browser.XPath(`//span[@role="menuitem" and @jsaction="EEGHee" and @tabindex="-1"]`)
	FromDateField = browser.XPath(`//*[@id='OouJcb']`)
	ToDateField   = browser.XPath(`//*[@id='rzG2be']`)
	DateRangeGo   = browser.XPath(`//g-button[@class="Ru1Ao BwGU8e fE5Rge"]`)
)

// ResultStrategies locate result blocks on a results page. The first
// strategy with a non-empty match wins.
var ResultStrategies = []browser.Locator{
	browser.XPath(`//div[@id='rso']/div[@class='g']/div[@class='rc']`),
	browser.XPath(`//div[@class='hlcw0c']/div[@class='g']/div[@class='rc']`),
	browser.XPath(`//div[@class='g']/span/div[@class='rc']`),
}

// Locators under a result block.
var (
	ResultLink      = browser.Tag("a")
	ResultDateLabel = browser.Class("f")
)

// dateLabelSeparator splits a result's date label from its snippet.
const dateLabelSeparator = "—"

// LanguageLink returns the locator of the UI language link for lang.
func LanguageLink(lang string) browser.Locator {
	return browser.XPath(fmt.Sprintf(`//*[contains(text(), '%s')]`, lang))
}

// PageLink returns the locator of the results page control for page n.
func PageLink(n int) browser.Locator {
	return browser.XPath(fmt.Sprintf(`//a[@aria-label="Page %d"]`, n))
}

// parseDateLabel returns the date part of a result's date label, e.g.
// "Jun 1, 2019" from "Jun 1, 2019 — Shares of ...".
func parseDateLabel(label string) string {
	date, _, _ := strings.Cut(label, dateLabelSeparator)
	return strings.TrimSpace(date)
}
