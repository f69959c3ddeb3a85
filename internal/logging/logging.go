// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logger with level and format ("text" or "json")
// and returns it.
func Setup(level, format string) (*logrus.Logger, error) {
	return setup(logrus.StandardLogger(), os.Stderr, level, format)
}

// New returns a fresh logger writing to w, for tools and tests.
func New(w io.Writer, level, format string) (*logrus.Logger, error) {
	return setup(logrus.New(), w, level, format)
}

func setup(l *logrus.Logger, w io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	l.SetOutput(w)
	l.SetLevel(lvl)
	return l, nil
}

// Component returns an entry tagged with the component name.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
