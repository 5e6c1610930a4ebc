// Package client talks to the attrition scoring service over HTTP/JSON.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/technova/attrition-console/internal/cache"
	"github.com/technova/attrition-console/internal/codec"
	"github.com/technova/attrition-console/internal/errnorm"
	"github.com/technova/attrition-console/internal/metrics"
	"github.com/technova/attrition-console/internal/utils"
)

// DefaultTimeout bounds every scoring call when Options.Timeout is unset.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 4 << 20

// Operation names used for logs and metrics.
const (
	OpHealth          = "health"
	OpModelInfo       = "model_info"
	OpFeatures        = "features"
	OpEmployees       = "employees"
	OpPredict         = "predict"
	OpPredictEmployee = "predict_employee"
	OpPredictBatch    = "predict_batch"
	OpPredictions     = "predictions"
)

// Paths holds the scoring service routes.
type Paths struct {
	Health       string `yaml:"health"`
	ModelInfo    string `yaml:"modelInfo"`
	Features     string `yaml:"features"`
	Employees    string `yaml:"employees"`
	Predict      string `yaml:"predict"`
	PredictBatch string `yaml:"predictBatch"`
	Predictions  string `yaml:"predictions"`
}

// DefaultPaths matches the routes exposed by the scoring service.
func DefaultPaths() Paths {
	return Paths{
		Health:       "/health",
		ModelInfo:    "/model/info",
		Features:     "/model/features",
		Employees:    "/employees",
		Predict:      "/predict",
		PredictBatch: "/predict/batch",
		Predictions:  "/predictions",
	}
}

func (p Paths) withDefaults() Paths {
	d := DefaultPaths()
	if p.Health == "" {
		p.Health = d.Health
	}
	if p.ModelInfo == "" {
		p.ModelInfo = d.ModelInfo
	}
	if p.Features == "" {
		p.Features = d.Features
	}
	if p.Employees == "" {
		p.Employees = d.Employees
	}
	if p.Predict == "" {
		p.Predict = d.Predict
	}
	if p.PredictBatch == "" {
		p.PredictBatch = d.PredictBatch
	}
	if p.Predictions == "" {
		p.Predictions = d.Predictions
	}
	return p
}

// Options configures a Client. BaseURL is required.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Normalizer *errnorm.Normalizer
	Logger     *slog.Logger
	Paths      Paths

	// Cache holds roster pages for CacheTTL. Health, model metadata and
	// scoring calls always go to the service. Nil disables caching.
	Cache    cache.Provider
	CacheTTL time.Duration
}

// Client issues scoring requests. It holds no per-request state and is safe
// for concurrent use.
type Client struct {
	baseURL    string
	paths      Paths
	timeout    time.Duration
	httpClient *http.Client
	normalizer *errnorm.Normalizer
	logger     *slog.Logger
	latencies  *utils.LatencyTracker
	cache      cache.Provider
	cacheTTL   time.Duration
}

// New constructs a client targeting opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("scoring base URL not configured")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid scoring base URL %q: %w", base, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = errnorm.New(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cacheProvider := opts.Cache
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}

	return &Client{
		baseURL:    base,
		paths:      opts.Paths.withDefaults(),
		timeout:    timeout,
		httpClient: httpClient,
		normalizer: normalizer,
		logger:     logger,
		latencies:  utils.NewLatencyTracker(512),
		cache:      cacheProvider,
		cacheTTL:   opts.CacheTTL,
	}, nil
}

// BaseURL returns the scoring service root this client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Translator returns the field and message tables used for rejections.
func (c *Client) Translator() *errnorm.Translator { return c.normalizer.Translator() }

// LatencyP95 returns the p95 latency of recent scoring calls.
func (c *Client) LatencyP95() time.Duration { return c.latencies.Percentile(95) }

func (c *Client) resolvePath(p string, query url.Values) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool { return r.status >= 200 && r.status < 300 }

// do performs one exchange. Only transport failures are returned as errors.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload any) (response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return response{}, &NetworkError{Operation: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, &NetworkError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &NetworkError{Operation: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("scoring call",
		slog.String("operation", op),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
	)
	return response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) reject(op string, resp response) error {
	return &RejectionError{
		Operation:  op,
		StatusCode: resp.status,
		Errors:     c.normalizer.Normalize(resp.body),
	}
}

// observe records metrics and periodically logs latency percentiles.
func (c *Client) observe(op string, start time.Time, err error) {
	duration := time.Since(start)
	outcome := outcomeOf(err)
	metrics.ObserveScoringCall(op, duration, outcome)
	if outcome == metrics.OutcomeEncoding {
		return
	}
	c.latencies.Observe(duration)
	if count := c.latencies.Total(); count >= 20 && count%20 == 0 {
		c.logger.Info("scoring latency", slog.Duration("p95", c.latencies.Percentile(95)), slog.Int("samples", count))
	}
	if err != nil {
		c.logger.Warn("scoring call failed", slog.String("operation", op), slog.String("outcome", outcome), slog.Any("error", err))
	}
}

func outcomeOf(err error) string {
	var rejection *RejectionError
	var network *NetworkError
	var decoding *codec.DecodingError
	var encoding *codec.EncodingError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &rejection):
		return metrics.OutcomeRejected
	case errors.As(err, &decoding):
		return metrics.OutcomeDecoding
	case errors.As(err, &encoding):
		return metrics.OutcomeEncoding
	case errors.As(err, &network):
		return metrics.OutcomeNetwork
	default:
		return metrics.OutcomeNetwork
	}
}

// getJSON fetches a read-only resource and decodes it into out.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) (err error) {
	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	resp, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return c.reject(op, resp)
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &codec.DecodingError{Reason: err.Error()}
	}
	return nil
}

// getCachedJSON serves out from the cache when possible and populates the
// cache after a successful fetch. Cache failures only cost a refetch.
func (c *Client) getCachedJSON(ctx context.Context, op, endpoint string, out any) error {
	key := op + ":" + endpoint
	if data, err := c.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
		_ = c.cache.Del(ctx, key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Debug("cache read failed", slog.String("operation", op), slog.Any("error", err))
	}

	if err := c.getJSON(ctx, op, endpoint, out); err != nil {
		return err
	}
	if payload, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.cacheTTL); err != nil {
			c.logger.Debug("cache write failed", slog.String("operation", op), slog.Any("error", err))
		}
	}
	return nil
}
