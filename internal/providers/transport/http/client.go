package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/transport"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultMediaType      = "application/json"
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	apiKeyHeader          = "DD-API-KEY"
	appKeyHeader          = "DD-APPLICATION-KEY"
	validatePath          = "/api/v1/validate"
)

var _ transport.Client = (*Client)(nil)
var _ transport.Validator = (*Client)(nil)

// Options configures a Client bound to one org.
type Options struct {
	BaseURL        string
	APIKey         string
	AppKey         string
	RetryTimeout   time.Duration
	RateLimit      float64
	UserAgent      string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	HTTPClient     *http.Client
}

type Client struct {
	baseURL        *url.URL
	apiKey         string
	appKey         string
	userAgent      string
	retryTimeout   time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
	limiter        *rate.Limiter
	client         *http.Client
}

func NewClient(opts Options) (*Client, error) {
	baseURL, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, validationError("api key is required for "+baseURL.Host, nil)
	}
	if strings.TrimSpace(opts.AppKey) == "" {
		return nil, validationError("application key is required for "+baseURL.Host, nil)
	}
	if opts.RetryTimeout < 0 {
		return nil, validationError("retry timeout must not be negative", nil)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}

	client := &Client{
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(opts.APIKey),
		appKey:         strings.TrimSpace(opts.AppKey),
		userAgent:      strings.TrimSpace(opts.UserAgent),
		retryTimeout:   opts.RetryTimeout,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		limiter:        rate.NewLimiter(limit, burst),
		client:         httpClient,
	}
	if client.initialBackoff <= 0 {
		client.initialBackoff = defaultInitialBackoff
	}
	if client.maxBackoff <= 0 {
		client.maxBackoff = defaultMaxBackoff
	}
	if client.userAgent == "" {
		client.userAgent = "orgsync"
	}
	return client, nil
}

func (c *Client) Host() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.Host
}

func (c *Client) Get(ctx context.Context, path string, query map[string]string) (resource.Value, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, body resource.Value) (resource.Value, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Patch(ctx context.Context, path string, body resource.Value) (resource.Value, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, body resource.Value) (resource.Value, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) Delete(ctx context.Context, path string, body resource.Value) (resource.Value, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, body)
}

// Validate checks the org credentials.
func (c *Client) Validate(ctx context.Context) error {
	value, err := c.Get(ctx, validatePath, nil)
	if err != nil {
		return authError("credential validation failed for "+c.Host(), err)
	}
	if valid, _ := resource.Lookup(value, "/valid"); valid != true {
		return authError("credentials for "+c.Host()+" are not valid", nil)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, validationError("api url is required", nil)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return nil, validationError("api url is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, validationError("api url must use http or https", nil)
	}
	if parsed.Host == "" {
		return nil, validationError("api url host is required", nil)
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed, nil
}
