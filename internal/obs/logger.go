// Package obs builds the structured logger shared by both CLI entrypoints,
// grounded on cmd/radx/internal/cli/cli.go's setupLogger.
package obs

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures logger construction.
type Options struct {
	Level  string // trace, debug, info, warn, error, fatal
	Pretty bool
	Debug  bool
	Output io.Writer // defaults to os.Stderr
}

// NewLogger builds a *log.Logger per Options, matching the teacher CLI's
// level mapping and JSON/pretty switch.
func NewLogger(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportCaller:    opts.Debug,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	switch opts.Level {
	case "trace", "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	case "fatal":
		logger.SetLevel(log.FatalLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if !opts.Pretty {
		logger.SetFormatter(log.JSONFormatter)
	}

	return logger
}

// WithFields returns a child logger carrying the given key/value pairs on
// every subsequent call, used by job steps to tag log lines with job_id
// and step name.
func WithFields(logger *log.Logger, kv ...interface{}) *log.Logger {
	return logger.With(kv...)
}
