package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process logger. Components take a *logrus.Entry derived
// from it rather than calling it directly.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger with multiple fields
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithComponent returns a logger scoped to a component
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// WithTenant adds the tenant id to a log entry
func WithTenant(log *logrus.Entry, tenantID string) *logrus.Entry {
	return log.WithField("tenant", tenantID)
}

// WithLine adds the configuration line number to a log entry
func WithLine(log *logrus.Entry, line int) *logrus.Entry {
	return log.WithField("line", line)
}

// EntryOr returns log, or a component-scoped entry of Logger when log is nil.
func EntryOr(log *logrus.Entry, component string) *logrus.Entry {
	if log != nil {
		return log
	}
	return WithComponent(component)
}

// Warnf logs at warn level
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}
