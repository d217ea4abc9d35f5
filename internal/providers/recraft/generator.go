// Package recraft turns a prompt plus user settings into a Recraft V3 job on
// the fal.ai queue and renders the outcome as markdown.
package recraft

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recraftgen/internal/infra"
	"recraftgen/internal/metrics"
	"recraftgen/internal/providers/fal"
	"recraftgen/internal/settings"
)

// ErrorPrefix marks an output string as a failure report.
const ErrorPrefix = "**Error:** "

// RequestBody is the job payload submitted to the Recraft V3 model.
type RequestBody struct {
	Prompt    string  `json:"prompt"`
	ImageSize string  `json:"image_size"`
	Style     string  `json:"style"`
	Colors    []Color `json:"colors"`
}

// Generator runs one Recraft job per call and never returns an error value:
// failures come back as an ErrorPrefix string.
type Generator struct {
	client *fal.Client
	logger *infra.Logger
}

func NewGenerator(client *fal.Client, logger *infra.Logger) *Generator {
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	if client == nil {
		client = fal.NewClient(fal.Options{Logger: logger})
	}
	return &Generator{client: client, logger: logger}
}

// NewRequestBody builds the payload for prompt with s normalized: enum values
// are trimmed and lower-cased and blank ones fall back to the defaults.
func (g *Generator) NewRequestBody(prompt string, s settings.Settings) RequestBody {
	return newRequestBody(prompt, s, g.logger)
}

func newRequestBody(prompt string, s settings.Settings, logger *infra.Logger) RequestBody {
	return RequestBody{
		Prompt:    prompt,
		ImageSize: normalizeEnum(s.ImageSize, settings.DefaultImageSize),
		Style:     normalizeEnum(s.Style, settings.DefaultStyle),
		Colors:    ParseColors(s.Colors, logger),
	}
}

// Generate submits prompt, waits for the job to finish and returns either the
// rendered markdown or an ErrorPrefix message.
func (g *Generator) Generate(ctx context.Context, prompt string, s settings.Settings) string {
	logger := g.loggerFor(ctx)
	body := newRequestBody(prompt, s, logger)
	client := g.client.WithAPIKey(s.APIKey).WithLogger(logger)
	if !client.HasCredentials() {
		logger.Warn().Msg("recraft: no fal.ai api key configured, submitting anyway")
	}

	metrics.InFlightJobs.Inc()
	start := time.Now()
	result, err := client.Run(ctx, body)
	metrics.JobDuration.Observe(time.Since(start).Seconds())
	metrics.InFlightJobs.Dec()

	outcome := classify(err)
	metrics.JobsTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		logger.Error().
			Err(err).
			Str("outcome", outcome).
			Str("image_size", body.ImageSize).
			Str("style", body.Style).
			Msg("recraft: generation failed")
		return ErrorPrefix + err.Error()
	}
	logger.Info().
		Int("images", len(result.Images)).
		Dur("elapsed", time.Since(start)).
		Msg("recraft: generation completed")
	return FormatMarkdown(result, prompt)
}

// loggerFor prefers the request-scoped logger carried by ctx so job logs share
// its request_id.
func (g *Generator) loggerFor(ctx context.Context) *infra.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return g.logger
}

// normalizeEnum builds a fresh Caser per call; a Caser must not be shared
// across goroutines.
func normalizeEnum(value, fallback string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback
	}
	return cases.Lower(language.Und).String(v)
}

func classify(err error) string {
	var (
		submitErr  *fal.SubmissionError
		pollErr    *fal.PollError
		fetchErr   *fal.FetchError
		failedErr  *fal.JobFailedError
		timeoutErr *fal.TimeoutError
	)
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.As(err, &failedErr):
		return metrics.OutcomeFailed
	case errors.As(err, &timeoutErr):
		return metrics.OutcomeTimeout
	case errors.As(err, &submitErr):
		return metrics.OutcomeSubmitError
	case errors.As(err, &pollErr):
		return metrics.OutcomePollError
	case errors.As(err, &fetchErr):
		return metrics.OutcomeFetchError
	default:
		return metrics.OutcomeError
	}
}
