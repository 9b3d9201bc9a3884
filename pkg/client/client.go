package client

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultServer  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

// Client is the INVENT API client.
type Client struct {
	token      string
	server     string
	httpClient *http.Client
	limiter    *rate.Limiter
	requestID  string
}

// Option configures the client.
type Option func(*Client)

// New creates a new INVENT client. An empty token makes anonymous requests.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:  token,
		server: DefaultServer,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithServer sets a custom server URL.
func WithServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.server = strings.TrimRight(server, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequestID pins the X-Request-ID sent upstream. Without it every request
// gets a fresh id.
func WithRequestID(id string) Option {
	return func(c *Client) {
		c.requestID = id
	}
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.server
}

// Token returns the API token the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// WithToken returns a copy of the client authenticating with token. The HTTP
// client and limiter are shared.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// ForRequest returns a copy of the client sending id as X-Request-ID, so
// upstream logs can be correlated with the request being served.
func (c *Client) ForRequest(id string) *Client {
	cp := *c
	cp.requestID = id
	return &cp
}
