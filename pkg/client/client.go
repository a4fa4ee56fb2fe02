// Package client provides the VPP HTTP client: service discovery, client
// registration, signed request execution and the batched user and license
// fetches.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/cache"
	"github.com/Sternrassler/vpp-client/pkg/logging"
	"github.com/Sternrassler/vpp-client/pkg/pagination"
	"github.com/Sternrassler/vpp-client/pkg/vpp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for VPP client operations.
var (
	vppRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpp_requests_total",
		Help: "Total VPP requests by operation and HTTP status",
	}, []string{"operation", "status"})

	vppRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vpp_request_duration_seconds",
		Help:    "VPP request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	vppErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpp_errors_total",
		Help: "Total VPP request errors by kind",
	}, []string{"kind"})
)

// DefaultServiceURL is Apple's production VPP endpoint.
const DefaultServiceURL = "https://vpp.itunes.apple.com/WebObjects/MZFinance.woa/wa/"

// Client is the main VPP client. The operation→URL map is resolved once
// in New and never changes for the lifetime of the client.
type Client struct {
	httpClient *http.Client
	config     Config
	urls       map[vpp.Operation]string
	cache      *cache.Manager
	cacheKey   cache.ServiceConfigKey
	fetcher    *pagination.BatchFetcher
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// ServiceURL is the base URL VPPServiceConfigSrv is resolved against.
	ServiceURL string

	// SToken is the session token downloaded from Apple Business Manager.
	SToken string

	// ClientGUID and ClientHost identify this client instance. The first
	// client to use a token claims it with these values.
	ClientGUID string
	ClientHost string

	// User-Agent header
	UserAgent string

	// MaxConcurrency caps requests in flight; 0 means 5, values above 5 are rejected.
	MaxConcurrency int

	// RequestTimeout bounds every single request.
	RequestTimeout time.Duration

	// HTTPClient overrides the default HTTP client (optional).
	HTTPClient *http.Client

	// Redis caches the discovered service configuration across
	// processes (optional).
	Redis *redis.Client

	// ServiceConfigTTL is used when the discovery response has no Expires header.
	ServiceConfigTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(sToken, clientGUID, clientHost string) Config {
	return Config{
		ServiceURL:       DefaultServiceURL,
		SToken:           sToken,
		ClientGUID:       clientGUID,
		ClientHost:       clientHost,
		UserAgent:        "vpp-client/0.1.0",
		MaxConcurrency:   pagination.DefaultMaxConcurrency,
		RequestTimeout:   30 * time.Second,
		ServiceConfigTTL: cache.DefaultTTL,
	}
}

func (cfg *Config) validate() error {
	if cfg.SToken == "" {
		return fmt.Errorf("stoken is required")
	}
	if cfg.ClientGUID == "" {
		return fmt.Errorf("client guid is required")
	}
	if cfg.ClientHost == "" {
		return fmt.Errorf("client host is required")
	}
	if cfg.MaxConcurrency < 0 || cfg.MaxConcurrency > pagination.DefaultMaxConcurrency {
		return fmt.Errorf("max_concurrency must be between 0 and %d (got %d)", pagination.DefaultMaxConcurrency, cfg.MaxConcurrency)
	}

	if cfg.ServiceURL == "" {
		cfg.ServiceURL = DefaultServiceURL
	}
	u, err := url.Parse(cfg.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid service url %q", cfg.ServiceURL)
	}

	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = pagination.DefaultMaxConcurrency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "vpp-client/0.1.0"
	}
	return nil
}

// New creates a VPP client. It discovers the service URLs, then confirms
// (or claims) the client context of the token. A token registered to a
// different host or GUID yields a *vpp.ProtocolError.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	c := &Client{
		httpClient: httpClient,
		config:     cfg,
		cacheKey:   cache.ServiceConfigKey{ServiceURL: cfg.ServiceURL},
		logger:     logging.NewLogger("vpp-client"),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	urls, err := c.loadServiceConfig(ctx)
	if err != nil {
		return nil, err
	}
	c.urls = urls

	c.fetcher = pagination.NewBatchFetcher(c, pagination.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.RequestTimeout,
	})

	if err := c.register(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// Execute issues a request and waits for it, then validates the response.
// It returns the response only when its status is success.
func (c *Client) Execute(ctx context.Context, op vpp.Operation, params vpp.Params) (*vpp.RawResponse, error) {
	resp, err := c.Send(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if err := vpp.Validate(op, vpp.NoIndex, resp); err != nil {
		c.handleError(ctx, err)
		return nil, err
	}
	return resp, nil
}

// Send issues a signed request and returns the decoded response without
// validating it. A non-nil error means no usable response was obtained.
// The batch fetcher calls Send concurrently; it is safe for concurrent use.
func (c *Client) Send(ctx context.Context, op vpp.Operation, params vpp.Params) (*vpp.RawResponse, error) {
	target, ok := c.urls[op]
	if !ok {
		vppErrorsTotal.WithLabelValues(string(vpp.KindProtocol)).Inc()
		return nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "no service URL for operation"}
	}

	body := params.Clone()
	body[vpp.ParamSToken] = c.config.SToken

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, &vpp.TransportError{Operation: op, Index: vpp.NoIndex, Err: fmt.Errorf("create request: %w", err)}
	}

	raw, _, err := c.do(req, op)
	return raw, err
}

// do executes req and decodes the VPP response envelope.
func (c *Client) do(req *http.Request, op vpp.Operation) (*vpp.RawResponse, http.Header, error) {
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	defer func() {
		vppRequestDuration.WithLabelValues(string(op)).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		vppErrorsTotal.WithLabelValues(string(vpp.KindTransport)).Inc()
		vppRequestsTotal.WithLabelValues(string(op), "network_error").Inc()
		return nil, nil, &vpp.TransportError{Operation: op, Index: vpp.NoIndex, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		vppErrorsTotal.WithLabelValues(string(vpp.KindTransport)).Inc()
		vppRequestsTotal.WithLabelValues(string(op), "network_error").Inc()
		return nil, nil, &vpp.TransportError{Operation: op, Index: vpp.NoIndex, Err: fmt.Errorf("read response body: %w", err)}
	}
	vppRequestsTotal.WithLabelValues(string(op), strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := vpp.DecodeRawResponse(resp.StatusCode, data)
	if err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Error pages (HTML from a proxy, etc.) still classify by HTTP status.
			raw = &vpp.RawResponse{HTTPStatus: resp.StatusCode, Fields: map[string]json.RawMessage{}}
		} else {
			vppErrorsTotal.WithLabelValues(string(vpp.KindProtocol)).Inc()
			return nil, nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "undecodable response", Err: err}
		}
	}

	if !vpp.IsSuccess(raw) && op != vpp.OpServiceConfig {
		vppErrorsTotal.WithLabelValues(string(vpp.KindAPI)).Inc()
		c.logger.Debug().
			Str("operation", string(op)).
			Int("status_code", resp.StatusCode).
			Int("error_number", raw.ErrorNumber).
			Msg("VPP returned an error response")
	}

	return raw, resp.Header, nil
}

// handleError reacts to errors that affect shared state: a moved service
// URL drops the cached service configuration so the next client rediscovers it.
func (c *Client) handleError(ctx context.Context, err error) {
	var apiErr *vpp.APIError
	if !errors.As(err, &apiErr) || !apiErr.URLMoved() {
		return
	}

	c.logger.Warn().
		Str("operation", string(apiErr.Operation)).
		Int("error_number", apiErr.ErrorNumber).
		Msg("VPP service URL moved, invalidating service configuration")

	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, c.cacheKey); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to invalidate service configuration cache")
	}
}

// ServiceURLs returns a copy of the resolved operation URLs.
func (c *Client) ServiceURLs() map[string]string {
	out := make(map[string]string, len(c.urls))
	for op, u := range c.urls {
		out[string(op)] = u
	}
	return out
}

// MaxConcurrency returns the in-flight ceiling used for batched fetches.
func (c *Client) MaxConcurrency() int {
	return c.fetcher.Config().MaxConcurrency
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
