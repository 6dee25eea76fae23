// Package logging builds the logr logger used across orgsync and carries it
// through context values.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// DebugLevel is the V-level used for request tracing and per-record detail.
const DebugLevel = 1

// New returns a logger writing "level prefix: message key=value" lines to w.
// Debug output is enabled when verbose is set.
func New(writer io.Writer, verbose bool) logr.Logger {
	if writer == nil {
		return logr.Discard()
	}

	verbosity := 0
	if verbose {
		verbosity = DebugLevel
	}

	var mu sync.Mutex
	return funcr.New(func(prefix, args string) {
		line := strings.TrimSpace(args)
		if prefix != "" {
			line = prefix + ": " + line
		}

		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintln(writer, line)
	}, funcr.Options{
		LogTimestamp:    true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		Verbosity:       verbosity,
	})
}

func WithLogger(ctx context.Context, logger logr.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logr.NewContext(ctx, logger)
}

// FromContext returns the context logger or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	if ctx == nil {
		return logr.Discard()
	}
	return logr.FromContextOrDiscard(ctx)
}

// Debug logs at DebugLevel through the context logger.
func Debug(ctx context.Context, message string, keysAndValues ...any) {
	FromContext(ctx).V(DebugLevel).Info(message, keysAndValues...)
}
