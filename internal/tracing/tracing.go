// Package tracing builds the OpenTelemetry tracer provider installed when
// span export is enabled.
package tracing

import (
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	apperrors "github.com/agbru/concfetch/internal/errors"
)

// ServiceName identifies the process in exported spans.
const ServiceName = "concfetch"

// NewProvider returns an SDK tracer provider writing each finished span to
// w as a JSON document. Export is synchronous; call Shutdown on the
// provider before closing w.
func NewProvider(w io.Writer, version string) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, apperrors.WrapError(err, "create span exporter")
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	), nil
}
