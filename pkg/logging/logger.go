package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	WithField(key string, value any) Logger
}

// Settings controls every logger created by NewLogger after Configure is called.
type Settings struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	settingsMu sync.RWMutex
	settings   = Settings{Level: "info", Format: "text"}
)

// Configure replaces the level, format and output used by the default logrus logger.
// Unknown levels fall back to info.
func Configure(s Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if strings.TrimSpace(s.Level) == "" {
		s.Level = "info"
	}
	if strings.TrimSpace(s.Format) == "" {
		s.Format = "text"
	}
	settings = s
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debug(args ...any) {
	l.entry.Debug(args...)
}

func (l *logrusLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(args ...any) {
	l.entry.Info(args...)
}

func (l *logrusLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Error(args ...any) {
	l.entry.Error(args...)
}

func (l *logrusLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Warn(args ...any) {
	l.entry.Warn(args...)
}

func (l *logrusLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Fatal(args ...any) {
	l.entry.Fatal(args...)
}

func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func NewLogger(ctx context.Context) Logger {
	factory := GetLoggerFactory()
	if factory != nil {
		return factory.CreateLogger(ctx)
	}

	return newLogrusLogger(ctx)
}

func newLogrusLogger(ctx context.Context) Logger {
	s := currentSettings()

	logger := logrus.New()
	logger.SetLevel(parseLevel(s.Level))
	if strings.EqualFold(s.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if s.Output != nil {
		logger.SetOutput(s.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	entry := logger.WithContext(ctx)
	if runID, ok := RunIDFromContext(ctx); ok {
		entry = entry.WithField("run_id", runID)
	}
	return &logrusLogger{entry: entry}
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

type runIDKey struct{}

// WithRunID tags every logger created from the returned context with run_id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}
