package fetch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/logging"
	"github.com/agbru/concfetch/internal/metrics"
)

const tracerName = "github.com/agbru/concfetch/internal/fetch"

// Client performs labelled fetch operations against a single target URL.
type Client struct {
	fetcher Fetcher
	url     string
	logger  logging.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTracerProvider creates request spans from tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// NewClient returns a Client fetching url through f.
func NewClient(f Fetcher, url string, logger logging.Logger, reg *metrics.Registry, opts ...ClientOption) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	c := &Client{
		fetcher: f,
		url:     url,
		logger:  logger,
		metrics: reg,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the target URL.
func (c *Client) URL() string {
	return c.url
}

// Request issues one request, discards the body and logs the response
// under label. Failures are returned as apperrors.FetchError. There is no
// retry.
func (c *Client) Request(ctx context.Context, label int) error {
	if _, err := c.Get(ctx, label); err != nil {
		return err
	}
	c.logger.Printf("got response %d", label)
	return nil
}

// Get issues one request and returns the body. Failures are returned as
// apperrors.FetchError.
func (c *Client) Get(ctx context.Context, label int) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "fetch.request", trace.WithAttributes(
		attribute.Int("concfetch.label", label),
		attribute.String("url.full", c.url),
	))
	defer span.End()

	body, err := c.fetcher.Fetch(WithLabel(ctx, label), c.url)
	c.metrics.FetchRequests.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		err = apperrors.FetchError{Label: label, Cause: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.body.size", len(body)))
	return body, nil
}
