package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"recraftgen/internal/infra"
	"recraftgen/internal/metrics"
)

const (
	DefaultBaseURL        = "https://queue.fal.run"
	DefaultModel          = "fal-ai/recraft-v3"
	DefaultMaxAttempts    = 60
	DefaultPollInterval   = 5000 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
)

var errStillPending = errors.New("fal: job still pending")

// Options configures the queue client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// MaxAttempts and PollInterval default to 60 checks, 5s apart.
	MaxAttempts  int
	PollInterval time.Duration
}

// Client talks to the fal.ai queue API: submit a job, poll its status and
// fetch the result once it completes.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	logger       *infra.Logger
	maxAttempts  int
	pollInterval time.Duration
}

// NewClient constructs a client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = DefaultModel
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		httpClient:   httpClient,
		logger:       logger,
		maxAttempts:  maxAttempts,
		pollInterval: pollInterval,
	}
}

// WithAPIKey returns a copy of the client that authenticates with key.
func (c *Client) WithAPIKey(key string) *Client {
	clone := *c
	clone.apiKey = strings.TrimSpace(key)
	return &clone
}

// WithLogger returns a copy of the client that logs to logger.
func (c *Client) WithLogger(logger *infra.Logger) *Client {
	clone := *c
	if logger != nil {
		clone.logger = logger
	}
	return &clone
}

// Model returns the configured model path.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Run submits payload and polls the resulting job until it finishes.
func (c *Client) Run(ctx context.Context, payload any) (*Result, error) {
	handle, err := c.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}
	return c.Poll(ctx, handle)
}

// Submit enqueues payload and returns the handle of the new job.
func (c *Client) Submit(ctx context.Context, payload any) (Handle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return Handle{}, &SubmissionError{Err: fmt.Errorf("fal: encode request: %w", err)}
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.submitURL(), bytes.NewReader(body))
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return Handle{}, &SubmissionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	code, raw, err := c.do(req)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return Handle{}, &SubmissionError{Err: err}
	}
	if !success(code) {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return Handle{}, &SubmissionError{StatusCode: code, Body: string(raw)}
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return Handle{}, &SubmissionError{Err: fmt.Errorf("fal: decode submit response: %w", err)}
	}
	requestID := strings.TrimSpace(decoded.RequestID)
	if requestID == "" {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return Handle{}, &SubmissionError{Err: ErrMissingRequestID}
	}
	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	c.logger.Info().
		Str("model", c.model).
		Str("request_id", requestID).
		Msg("fal: job submitted")
	return Handle{RequestID: requestID}, nil
}

// Poll checks the job status at a fixed interval until it completes, fails or
// the attempt budget is spent. On completion the result payload is fetched and
// returned.
func (c *Client) Poll(ctx context.Context, handle Handle) (*Result, error) {
	if strings.TrimSpace(handle.RequestID) == "" {
		return nil, &PollError{Err: ErrMissingRequestID}
	}
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewConstant(c.pollInterval))

	var (
		attempt int
		result  *Result
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		st, err := c.checkStatus(ctx, handle, attempt)
		if err != nil {
			return err
		}
		status := ParseStatus(st.Status)
		if !status.Terminal() {
			evt := c.logger.Debug().
				Str("request_id", handle.RequestID).
				Str("status", st.Status).
				Int("attempt", attempt)
			if st.QueuePosition != nil {
				evt = evt.Int("queue_position", *st.QueuePosition)
			}
			evt.Msg("fal: job pending")
			return retry.RetryableError(errStillPending)
		}
		if status == StatusFailed {
			c.logger.Warn().
				Str("request_id", handle.RequestID).
				Str("error", st.Error).
				Msg("fal: job failed")
			return &JobFailedError{Message: st.Error}
		}
		res, err := c.fetchResult(ctx, handle)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errStillPending):
		c.logger.Warn().
			Str("request_id", handle.RequestID).
			Int("attempts", attempt).
			Msg("fal: poll budget exhausted")
		return nil, &TimeoutError{Attempts: attempt}
	case ctx.Err() != nil && errors.Is(ctx.Err(), err):
		// Cancelled between checks rather than inside one.
		return nil, &PollError{Attempt: attempt, Err: err}
	default:
		return nil, err
	}
}

func (c *Client) checkStatus(ctx context.Context, handle Handle, attempt int) (*statusResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.statusURL(handle), nil)
	if err != nil {
		metrics.StatusChecksTotal.WithLabelValues("error").Inc()
		return nil, &PollError{Attempt: attempt, Err: err}
	}
	code, raw, err := c.do(req)
	if err != nil {
		metrics.StatusChecksTotal.WithLabelValues("error").Inc()
		return nil, &PollError{Attempt: attempt, Err: err}
	}
	if !success(code) {
		metrics.StatusChecksTotal.WithLabelValues("error").Inc()
		return nil, &PollError{Attempt: attempt, StatusCode: code, Body: string(raw)}
	}
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		metrics.StatusChecksTotal.WithLabelValues("error").Inc()
		return nil, &PollError{Attempt: attempt, Err: fmt.Errorf("fal: decode status response: %w", err)}
	}
	metrics.StatusChecksTotal.WithLabelValues(string(ParseStatus(decoded.Status))).Inc()
	return &decoded, nil
}

func (c *Client) fetchResult(ctx context.Context, handle Handle) (*Result, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.resultURL(handle), nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	code, raw, err := c.do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if !success(code) {
		return nil, &FetchError{StatusCode: code, Body: string(raw)}
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("fal: decode result: %w", err)}
	}
	result.Raw = append(json.RawMessage(nil), raw...)
	c.logger.Info().
		Str("request_id", handle.RequestID).
		Int("images", len(result.Images)).
		Msg("fal: job completed")
	return &result, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	return req, nil
}

// do executes req and returns the status code with the full response body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("fal: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) submitURL() string {
	return c.baseURL + "/" + c.model
}

func (c *Client) statusURL(handle Handle) string {
	return c.resultURL(handle) + "/status"
}

func (c *Client) resultURL(handle Handle) string {
	return c.baseURL + "/" + c.model + "/requests/" + url.PathEscape(handle.RequestID)
}

func success(code int) bool {
	return code >= 200 && code < 300
}
