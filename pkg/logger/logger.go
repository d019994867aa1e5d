package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	verboseMode bool
	base        = newBase(os.Stderr)
)

// newBase builds the shared logrus instance. Everything goes to stderr so
// JSON and CSV reports written to stdout stay machine-readable.
func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	verboseMode = verbose
	if verbose {
		base.SetLevel(logrus.DebugLevel)
		return
	}
	base.SetLevel(logrus.InfoLevel)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	return verboseMode
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// DisableColors turns off ANSI colors in log lines.
func DisableColors() {
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// WithField returns an entry carrying a structured field, e.g. the package
// being looked up.
func WithField(key string, value any) *logrus.Entry {
	return base.WithField(key, value)
}

// Debugf logs a formatted debug message if verbose mode is enabled.
func Debugf(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	base.Infof(format, v...)
}

// Warnf logs a formatted warning.
func Warnf(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	base.Errorf(format, v...)
}
