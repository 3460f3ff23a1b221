package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Log wraps logrus.Logger with component helpers.
type Log struct {
	*logrus.Logger
}

// Options mirrors LOG_LEVEL, LOG_FORMAT and LOG_FILE.
type Options struct {
	Level      string
	Format     string
	File       string
	MaxAgeDays int
}

func OptionsFromEnv() Options {
	return Options{
		Level:      os.Getenv("LOG_LEVEL"),
		Format:     os.Getenv("LOG_FORMAT"),
		File:       os.Getenv("LOG_FILE"),
		MaxAgeDays: 14,
	}
}

// Standard returns logrus's package-level logger with JSON output and
// caller reporting. main configures it once; components log through
// Component.
func Standard() *Log {
	l := &Log{Logger: logrus.StandardLogger()}
	l.SetOutput(os.Stderr)
	l.SetReportCaller(true)
	l.SetFormatter(jsonFormatter())
	return l
}

// Component tags an entry on the package-level logger with name.
func Component(name string) *logrus.Entry {
	return (&Log{Logger: logrus.StandardLogger()}).WithComponent(name)
}

func (l *Log) Configure(opts Options) error {
	level := strings.ToLower(strings.TrimSpace(opts.Level))
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level '%s'", opts.Level)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		l.SetFormatter(jsonFormatter())
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		return fmt.Errorf("invalid log format '%s'", opts.Format)
	}

	if opts.File != "" {
		maxAge := opts.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 14
		}
		l.SetOutput(&lumberjack.Logger{
			Filename: opts.File,
			MaxAge:   maxAge,
			MaxSize:  100,
			Compress: true,
		})
	}
	return nil
}

func (l *Log) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

func callerPrettyfier(f *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}
