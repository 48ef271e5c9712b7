// Package upstream fetches single pages of draw history from the game provider.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
	"github.com/dev-ayush21/Pvtwingo/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for provider requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingo_upstream_requests_total",
		Help: "Total provider page requests by game and status",
	}, []string{"game", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wingo_upstream_request_duration_seconds",
		Help:    "Provider page request duration in seconds by game",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"game"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingo_upstream_errors_total",
		Help: "Total provider page fetch failures by class",
	}, []string{"class"})
)

// DefaultTimeout bounds every page request.
const DefaultTimeout = 5 * time.Second

// maxBodyBytes caps how much of a page body is read.
const maxBodyBytes = 4 << 20

// Config holds the client configuration.
type Config struct {
	// BaseURL is the provider root, e.g. "https://draw.example.com/WinGo".
	BaseURL string

	// Timeout applies to each page request on its own.
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string

	// Limiter optionally throttles outbound requests. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

// DefaultConfig returns the standard configuration for a provider base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   DefaultTimeout,
		UserAgent: "wingo-predictor/1.0",
	}
}

// Client issues page requests against the provider. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// historyEnvelope is the provider body; records live at result.list.
type historyEnvelope struct {
	Result *struct {
		List []game.Record `json:"list"`
	} `json:"result"`
}

// New creates a provider client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  log.With().Str("component", "upstream-client").Logger(),
	}, nil
}

// PageURL builds the provider URL for one page of a game's history.
func (c *Client) PageURL(g game.Type, page int) string {
	return c.baseURL + "/" + url.PathEscape(string(g)) +
		"/GetHistoryIssuePage.json?page=" + strconv.Itoa(page)
}

// FetchPage fetches one page of history. A missing or empty result list is an
// empty page, not an error. Failures are returned as *FetchError and never retried.
func (c *Client) FetchPage(ctx context.Context, g game.Type, page int) (game.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPage, page)
	}

	start := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(string(g)).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.config.Limiter.Wait(ctx); err != nil {
		return nil, c.fail(g, page, ErrorClassTimeout, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(g, page), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("game", string(g)).
		Int("page", page).
		Msg("Fetching history page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(g, page, classifyTransportError(err), 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, c.fail(g, page, ErrorClassStatus, resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	var envelope historyEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&envelope); err != nil {
		// A deadline hit while streaming the body is still a timeout.
		class := ErrorClassDecode
		if ctx.Err() != nil {
			class = classifyTransportError(ctx.Err())
		}
		return nil, c.fail(g, page, class, resp.StatusCode, err)
	}

	upstreamRequestsTotal.WithLabelValues(string(g), strconv.Itoa(resp.StatusCode)).Inc()

	if envelope.Result == nil || len(envelope.Result.List) == 0 {
		c.logger.Debug().
			Str("game", string(g)).
			Int("page", page).
			Msg("Provider returned an empty page")
		return game.Page{}, nil
	}

	return game.Page(envelope.Result.List), nil
}

// fail records metrics and builds the FetchError for a failed page.
func (c *Client) fail(g game.Type, page int, class ErrorClass, status int, err error) error {
	upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
	label := string(class)
	if status != 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequestsTotal.WithLabelValues(string(g), label).Inc()

	c.logger.Warn().
		Err(err).
		Str("game", string(g)).
		Int("page", page).
		Int("status", status).
		Str("error_class", string(class)).
		Msg("History page fetch failed")

	return &FetchError{
		Page:       page,
		Class:      class,
		StatusCode: status,
		Err:        err,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
