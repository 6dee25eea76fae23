package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/crmarques/orgsync/logging"
)

// retryAfterError carries the server requested wait to the backoff loop.
type retryAfterError struct {
	cause error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.cause.Error() }

func (e *retryAfterError) Unwrap() error { return e.cause }

func (e *retryAfterError) As(target any) bool {
	typed, ok := target.(**backoff.RetryAfterError)
	if !ok {
		return false
	}
	*typed = &backoff.RetryAfterError{Duration: e.after}
	return true
}

func (c *Client) executeWithRetry(ctx context.Context, operation func() ([]byte, error)) ([]byte, error) {
	options := []backoff.RetryOption{
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logging.Debug(ctx, "retrying request", "host", c.Host(), "wait", wait.String(), "error", err.Error())
		}),
	}
	if c.retryTimeout > 0 {
		options = append(options, backoff.WithMaxElapsedTime(c.retryTimeout))
	} else {
		options = append(options, backoff.WithMaxTries(1))
	}

	body, err := backoff.Retry(ctx, operation, options...)
	if err != nil {
		var waitErr *retryAfterError
		if errors.As(err, &waitErr) {
			return nil, waitErr.cause
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = c.initialBackoff
	exponential.MaxInterval = c.maxBackoff
	return exponential
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

// retryAfter reads Retry-After (seconds) or the rate limit reset header.
func retryAfter(header http.Header) time.Duration {
	for _, name := range []string{"Retry-After", "X-RateLimit-Reset"} {
		raw := strings.TrimSpace(header.Get(name))
		if raw == "" {
			continue
		}
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			continue
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}
