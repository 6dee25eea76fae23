package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/crmarques/orgsync/resource"
)

const maxResponseBytes = 32 << 20

// Do sends one request, retrying transient failures until the retry
// timeout is spent, and decodes the JSON response.
func (c *Client) Do(
	ctx context.Context,
	method string,
	endpointPath string,
	query map[string]string,
	body resource.Value,
) (resource.Value, error) {
	resolvedMethod := strings.ToUpper(strings.TrimSpace(method))
	if resolvedMethod == "" {
		return nil, validationError("request method is required", nil)
	}
	if strings.TrimSpace(endpointPath) == "" {
		return nil, validationError("request path is required", nil)
	}

	targetURL, err := c.resolveRequestURL(endpointPath, query)
	if err != nil {
		return nil, err
	}

	requestBody, err := encodeRequestBody(body)
	if err != nil {
		return nil, err
	}

	responseBody, err := c.executeWithRetry(ctx, func() ([]byte, error) {
		return c.execute(ctx, resolvedMethod, targetURL, requestBody)
	})
	if err != nil {
		return nil, err
	}

	return decodeJSONResponse(responseBody)
}

func (c *Client) execute(ctx context.Context, method string, targetURL string, requestBody []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(transportError("request cancelled while rate limited", err))
	}

	request, err := c.newRequest(ctx, method, targetURL, requestBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	response, err := c.doRequest(ctx, request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(transportError("remote request cancelled", err))
		}
		return nil, transportError("remote request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError("failed to read remote response body", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		statusErr := classifyStatusError(response.StatusCode, body)
		if !isRetryableStatus(response.StatusCode) {
			return nil, backoff.Permanent(statusErr)
		}
		if wait := retryAfter(response.Header); wait > 0 {
			return nil, &retryAfterError{cause: statusErr, after: wait}
		}
		return nil, statusErr
	}

	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method string, targetURL string, requestBody []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if len(requestBody) > 0 {
		bodyReader = bytes.NewReader(requestBody)
	}

	request, err := http.NewRequestWithContext(ctx, method, targetURL, bodyReader)
	if err != nil {
		return nil, internalError("failed to create remote request", err)
	}

	request.Header.Set("Accept", defaultMediaType)
	if len(requestBody) > 0 {
		request.Header.Set("Content-Type", defaultMediaType)
	}
	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set(apiKeyHeader, c.apiKey)
	request.Header.Set(appKeyHeader, c.appKey)
	return request, nil
}

func (c *Client) resolveRequestURL(requestPath string, query map[string]string) (string, error) {
	if parsed, err := url.Parse(requestPath); err == nil && parsed.Scheme != "" {
		return "", validationError("request path must be relative to the api url", nil)
	}

	target := *c.baseURL
	rawPath, rawQuery, _ := strings.Cut(requestPath, "?")
	target.Path = joinBaseAndRequestPath(c.baseURL.Path, rawPath)

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", validationError("request query is invalid", err)
	}
	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values.Set(key, query[key])
		}
	}
	target.RawQuery = values.Encode()

	return target.String(), nil
}

func joinBaseAndRequestPath(basePath string, requestPath string) string {
	joined := path.Join("/", basePath, requestPath)
	if strings.HasSuffix(requestPath, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
