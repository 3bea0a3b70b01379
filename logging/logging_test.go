package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_WritesConsoleAndFile verifies entries reach both outputs
func TestNew_WritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()

	log, err := New(Config{Level: "debug", Dir: dir, Console: &console})
	require.NoError(t, err)

	log.WithField("period", "06/01/2019 to 06/01/2019").Info("flushed table")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "flushed table")
	assert.Contains(t, console.String(), `period="06/01/2019 to 06/01/2019"`)

	require.NotEmpty(t, log.Path)
	assert.Equal(t, dir, filepath.Dir(log.Path))
	assert.Regexp(t, `^scraper_log_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.log$`, filepath.Base(log.Path))

	data, err := os.ReadFile(log.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flushed table")
}

// TestNew_FullTimestamps verifies entries carry a full timestamp
func TestNew_FullTimestamps(t *testing.T) {
	var console bytes.Buffer

	log, err := New(Config{Level: "info", Console: &console})
	require.NoError(t, err)

	log.Info("hello")
	assert.Regexp(t, `time="\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}"`, console.String())
}

// TestNew_NoDirDisablesFile verifies an empty Dir logs to the console only
func TestNew_NoDirDisablesFile(t *testing.T) {
	var console bytes.Buffer

	log, err := New(Config{Level: "info", Console: &console})
	require.NoError(t, err)

	assert.Empty(t, log.Path)
	assert.NoError(t, log.Close())
}

// TestNew_Levels verifies level parsing and the info fallback
func TestNew_Levels(t *testing.T) {
	log, err := New(Config{Level: "warn", Console: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log, err = New(Config{Level: "chatty", Console: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

// TestFileName verifies the timestamped file name
func TestFileName(t *testing.T) {
	ts := time.Date(2019, 6, 1, 9, 30, 5, 0, time.UTC)
	assert.Equal(t, "scraper_log_2019-06-01_09-30-05.log", FileName(ts))
}
