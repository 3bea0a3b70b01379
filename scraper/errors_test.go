package scraper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRule_DeclaredPolicies verifies the policy of every declared operation
func TestRule_DeclaredPolicies(t *testing.T) {
	tests := []struct {
		op     Op
		kind   Kind
		policy Policy
	}{
		{OpStartBrowser, BrowserStartFailure, Fatal},
		{OpOpenHome, NavigationFailure, Fatal},
		{OpSetLanguage, BrowserStartFailure, Fatal},
		{OpSubmitKeyword, ElementLookupFailure, Fatal},
		{OpGeneratePeriods, DateRangeGenerationFailure, Fatal},
		{OpApplyDateFilter, DateFilterFailure, Fatal},
		{OpCollectResults, ResultLinkCollectionFailure, Fatal},
		{OpParseResult, ResultLinkCollectionFailure, Suppress},
		{OpCollectArticle, PageCollectionFailure, Fatal},
		{OpExtractTitle, InfoCollectionFailure, Suppress},
		{OpExtractHeaders, InfoCollectionFailure, Suppress},
		{OpExtractBody, InfoCollectionFailure, Suppress},
		{OpNextPage, ClickFailure, Suppress},
		{OpCollectMore, ResultLinkCollectionFailure, Suppress},
		{OpCollectMoreItem, PageCollectionFailure, Suppress},
		{OpWriteTable, TableWriteFailure, Fatal},
		{OpRecordRun, IndexWriteFailure, Suppress},
		{OpRecordPeriod, IndexWriteFailure, Suppress},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			kind, policy := Rule(tt.op)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.policy, policy)
		})
	}
}

// TestRule_UnknownOpIsFatal verifies undeclared operations fail closed
func TestRule_UnknownOpIsFatal(t *testing.T) {
	kind, policy := Rule(Op("unknown"))
	assert.Empty(t, kind)
	assert.Equal(t, Fatal, policy)
}

// TestReport_Nil verifies a nil error is neither wrapped nor logged
func TestReport_Nil(t *testing.T) {
	log, hook := test.NewNullLogger()

	assert.NoError(t, report(log, OpOpenHome, nil))
	assert.Empty(t, hook.AllEntries())
}

// TestReport_Fatal verifies fatal failures are logged at error level with
// their classification
func TestReport_Fatal(t *testing.T) {
	log, hook := test.NewNullLogger()
	cause := errors.New("timed out")

	err := report(log, OpApplyDateFilter, cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsFatal(err))
	assert.Equal(t, DateFilterFailure, KindOf(err))
	assert.Equal(t, "apply_date_filter (DateFilterFailure): timed out", err.Error())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, OpApplyDateFilter, entry.Data["op"])
	assert.Equal(t, DateFilterFailure, entry.Data["kind"])
	assert.Equal(t, Fatal, entry.Data["policy"])
}

// TestReport_Suppressed verifies suppressed failures are logged as warnings
func TestReport_Suppressed(t *testing.T) {
	log, hook := test.NewNullLogger()

	err := report(log, OpExtractBody, errors.New("no paragraphs"))
	require.Error(t, err)
	assert.False(t, IsFatal(err))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, InfoCollectionFailure, entry.Data["kind"])
}

// TestKindOf_Wrapped verifies classification survives further wrapping
func TestKindOf_Wrapped(t *testing.T) {
	log, _ := test.NewNullLogger()
	err := fmt.Errorf("scrape aborted: %w", report(log, OpWriteTable, errors.New("disk full")))

	assert.Equal(t, TableWriteFailure, KindOf(err))
	assert.True(t, IsFatal(err))
	assert.Empty(t, KindOf(errors.New("plain")))
	assert.True(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(nil))
}

// TestPolicy_String verifies policy names
func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "suppressed", Suppress.String())
}
