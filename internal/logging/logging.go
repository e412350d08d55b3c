// Package logging hands out per-component structured loggers. Interactive
// runs keep stderr clean so log lines never tear the TUI; everything still
// lands in the date-stamped file sink under ~/.ccreplay/logs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const (
	levelEnv = "CCREPLAY_LOG_LEVEL"
	debugEnv = "CCREPLAY_DEBUG"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger returns the logger for a component, creating it on first use.
// Loggers are singletons per component so every caller shares the same
// sinks and level.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(levelFromEnv())
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var writers []io.Writer
	if path := logFilePath(component); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writers = append(writers, file)
			}
		}
	}

	// Stderr only when debugging or when output is piped; an interactive
	// terminal belongs to the TUI.
	isDebug := os.Getenv(debugEnv) == "1" || level == logrus.DebugLevel
	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if isDebug || !isInteractive {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

func levelFromEnv() string {
	if lvl := os.Getenv(levelEnv); lvl != "" {
		return lvl
	}
	return "info"
}

// logFilePath is ~/.ccreplay/logs/<component>-<date>.log, or empty when no
// home directory can be resolved.
func logFilePath(component string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	date := time.Now().Format("2006-01-02")
	return filepath.Join(home, ".ccreplay", "logs", fmt.Sprintf("%s-%s.log", component, date))
}
