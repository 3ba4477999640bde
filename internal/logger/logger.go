// Package logger configures the process-wide logrus logger and hands out
// component-scoped entries.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu   sync.Mutex
	root *logrus.Logger
)

// Config controls level and outputs.
type Config struct {
	Level string // debug, info, warn, error
	File  string // optional; rotated by lumberjack
	Text  bool   // text formatter instead of JSON (local development)
}

// Init (re)builds the root logger. It is safe to call more than once.
func Init(cfg Config) error {
	level := logrus.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if cfg.Text {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}

	mu.Lock()
	root = l
	mu.Unlock()
	return nil
}

// Root returns the root logger, initialising it with defaults on first use.
func Root() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		root = logrus.New()
		root.SetFormatter(&logrus.JSONFormatter{})
	}
	return root
}

// Get returns an entry tagged with the component name.
func Get(component string) *logrus.Entry {
	return Root().WithField("component", component)
}

// SetOutput redirects the root logger, mostly for tests.
func SetOutput(w io.Writer) {
	Root().SetOutput(w)
}
