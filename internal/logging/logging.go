// Package logging provides the structured logger used throughout the
// plugin subsystem: a thin wrapper around logrus giving every caller the
// same debug|info|warn|error vocabulary and JSON-by-default output.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// GetLevel parses a level string, defaulting to Info on empty input.
func GetLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the logrus formatter for the given format name.
// "text" produces a human-oriented pretty formatter; anything else
// produces JSON.
func GetFormatter(format string) logrus.Formatter {
	switch format {
	case "text":
		return &prettyFormatter{}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true}
	default:
		return &logrus.JSONFormatter{}
	}
}

// New returns a logger configured from level/format strings, writing to
// stderr.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(GetFormatter(format))
	if lvl, err := GetLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// prettyFormatter is a simpler, more readable alternative to logrus's
// default text formatter.
type prettyFormatter struct{}

func (p *prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := &strings.Builder{}
	fmt.Fprintf(b, "[%s] %s", strings.ToUpper(e.Level.String()), e.Message)
	for k, v := range e.Data {
		fmt.Fprintf(b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
