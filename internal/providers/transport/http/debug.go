package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/crmarques/orgsync/logging"
)

func (c *Client) doRequest(ctx context.Context, request *http.Request) (*http.Response, error) {
	logging.Debug(ctx, "http request", "method", request.Method, "url", redactURLForDebug(request.URL))

	response, err := c.client.Do(request)
	if err != nil {
		logging.Debug(
			ctx,
			"http request failed",
			"method", request.Method,
			"url", redactURLForDebug(request.URL),
			"error", err.Error(),
		)
		return nil, err
	}

	logging.Debug(
		ctx,
		"http response",
		"method", request.Method,
		"url", redactURLForDebug(request.URL),
		"status", response.StatusCode,
	)
	return response, nil
}

// redactURLForDebug drops user info and query values, which may carry
// account identifiers.
func redactURLForDebug(value *url.URL) string {
	if value == nil {
		return ""
	}

	cloned := *value
	cloned.User = nil

	query := cloned.Query()
	if len(query) > 0 {
		for key, values := range query {
			redacted := make([]string, len(values))
			for idx := range values {
				redacted[idx] = "<redacted>"
			}
			query[key] = redacted
		}
		cloned.RawQuery = query.Encode()
	}

	return cloned.String()
}
