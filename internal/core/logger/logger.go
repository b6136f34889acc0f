// internal/core/logger/logger.go
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus" // Using logrus for structured logging
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.SetOutput(os.Stderr) // stdout carries reports
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	log.SetLevel(logrus.InfoLevel)
}

// SetupLogger configures the logger based on the provided level string.
func SetupLogger(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel // Default to info if unknown level
	}
	log.SetLevel(lvl)
}

// SetOutput redirects log output. Tests use it to keep logs off stderr.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// GetLogger returns the configured logger instance.
func GetLogger() *logrus.Logger {
	return log
}

// RetryLogger adapts logrus to the leveled logger interface used by
// go-retryablehttp. Everything is demoted one level: retry chatter is noise
// unless --verbose is set.
type RetryLogger struct {
	Log *logrus.Logger
}

func (l RetryLogger) fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}

func (l RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Warn(msg)
}

func (l RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Info(msg)
}

func (l RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Trace(msg)
}
