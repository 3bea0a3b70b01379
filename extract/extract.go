// Package extract pulls the title, headings and paragraph text out of an
// article page.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoElements is returned when a page has no element for a routine.
var ErrNoElements = errors.New("no matching elements")

// Selectors used by the extraction routines.
const (
	TitleSelector   = "head title"
	HeaderSelector  = "h1, h2, h3, h4, h5, h6"
	ParagraphSelect = "p"
)

// Separators used to join element texts.
const (
	HeaderSeparator    = ". "
	ParagraphSeparator = " "
)

// Page holds the three extracted fields of an article page.
type Page struct {
	Title   string
	Headers string
	Text    string
}

// Parse builds a document from page HTML.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Title returns the page title trimmed of surrounding whitespace.
func Title(doc *goquery.Document) (string, error) {
	sel := doc.Find(TitleSelector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("title: %w", ErrNoElements)
	}
	return strings.TrimSpace(sel.Text()), nil
}

// Headers returns the text of every h1-h6 element in document order joined
// with ". ".
func Headers(doc *goquery.Document) (string, error) {
	texts := collect(doc, HeaderSelector)
	if texts == nil {
		return "", fmt.Errorf("headers: %w", ErrNoElements)
	}
	return strings.Join(texts, HeaderSeparator), nil
}

// Body returns the text of every paragraph in document order joined with a
// single space.
func Body(doc *goquery.Document) (string, error) {
	texts := collect(doc, ParagraphSelect)
	if texts == nil {
		return "", fmt.Errorf("body: %w", ErrNoElements)
	}
	return strings.Join(texts, ParagraphSeparator), nil
}

// collect returns the whitespace-normalized text of every match, or nil when
// nothing matches.
func collect(doc *goquery.Document, selector string) []string {
	var texts []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		texts = append(texts, strings.Join(strings.Fields(s.Text()), " "))
	})
	return texts
}
