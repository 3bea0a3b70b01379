// Package logging builds the process logger: logrus text output with full
// timestamps, written to the console and to a per-run log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// FileTimeLayout names log files, e.g. scraper_log_2019-06-01_09-30-00.log.
const FileTimeLayout = "2006-01-02_15-04-05"

// Config configures the logger.
type Config struct {
	// Level is a logrus level name. Unknown names fall back to info.
	Level string `yaml:"level"`
	// Dir receives the log file. Empty disables the file.
	Dir string `yaml:"dir"`
	// Console receives a copy of every entry. Defaults to os.Stderr.
	Console io.Writer `yaml:"-"`
}

// DefaultConfig logs at info level into the working directory.
func DefaultConfig() Config {
	return Config{Level: "info", Dir: "."}
}

// Logger is a logrus logger that owns its log file.
type Logger struct {
	*logrus.Logger
	// Path is the log file's path, empty when file output is disabled.
	Path string
	file *os.File
}

// New creates the logger, opening scraper_log_<timestamp>.log in cfg.Dir.
func New(cfg Config) (*Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{Logger: log}
	writers := []io.Writer{console}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		l.Path = filepath.Join(cfg.Dir, FileName(time.Now()))
		l.file, err = os.OpenFile(l.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, l.file)
	}
	log.SetOutput(io.MultiWriter(writers...))

	return l, nil
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return "scraper_log_" + t.Format(FileTimeLayout) + ".log"
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
