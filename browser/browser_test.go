package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocator_CSSSelector verifies each non-XPath strategy maps to CSS
func TestLocator_CSSSelector(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
	}{
		{CSS("div.g > a"), "div.g > a"},
		{Tag("a"), "a"},
		{Class("f"), ".f"},
		{Class("Ru1Ao BwGU8e  fE5Rge"), ".Ru1Ao.BwGU8e.fE5Rge"},
		{ID("SIvCob"), "#SIvCob"},
	}

	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			got, err := tt.loc.CSSSelector()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestLocator_XPathHasNoCSS verifies XPath locators refuse CSS conversion
func TestLocator_XPathHasNoCSS(t *testing.T) {
	_, err := XPath("//div").CSSSelector()
	assert.ErrorIs(t, err, ErrUnknownBy)

	_, err = Locator{By: "name", Value: "q"}.CSSSelector()
	assert.ErrorIs(t, err, ErrUnknownBy)
}

// TestLocator_String verifies the strategy prefix
func TestLocator_String(t *testing.T) {
	assert.Equal(t, "xpath=//a", XPath("//a").String())
	assert.Equal(t, "id=rso", ID("rso").String())
	assert.True(t, XPath("//a").IsXPath())
	assert.False(t, Tag("a").IsXPath())
}

// TestPlaywrightSelector verifies engine prefixes
func TestPlaywrightSelector(t *testing.T) {
	sel, err := playwrightSelector(XPath(`//input[@type="text"]`))
	require.NoError(t, err)
	assert.Equal(t, `xpath=//input[@type="text"]`, sel)

	sel, err = playwrightSelector(Class("mn-hd-txt"))
	require.NoError(t, err)
	assert.Equal(t, "css=.mn-hd-txt", sel)
}

// TestChromedpQuery verifies XPath uses a search query and CSS a query-all
func TestChromedpQuery(t *testing.T) {
	sel, by, err := chromedpQuery(XPath("//div[@id='rso']"))
	require.NoError(t, err)
	assert.Equal(t, "//div[@id='rso']", sel)
	assert.NotNil(t, by)

	sel, _, err = chromedpQuery(ID("rzG2be"))
	require.NoError(t, err)
	assert.Equal(t, "#rzG2be", sel)
}

// TestNew_UnknownBackend verifies unknown backends are rejected before any
// browser starts
func TestNew_UnknownBackend(t *testing.T) {
	opts := DefaultOptions()
	opts.Backend = "selenium"

	d, err := New(context.Background(), opts)
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.Nil(t, d)
}
