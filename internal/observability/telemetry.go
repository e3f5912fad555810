package observability

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mesos-tools/exttest"

// Span and attribute names for external test invocations.
const (
	InvocationSpanName = "external.run"

	AttrSuite     = attribute.Key("external.suite")
	AttrTest      = attribute.Key("external.test")
	AttrWorkspace = attribute.Key("external.workspace")
	AttrOutcome   = attribute.Key("external.outcome")
	AttrPID       = attribute.Key("process.pid")
)

// TelemetryConfig holds the configuration for OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Namespace   string
	Version     string
	Commit      string
	Environment string
}

// TelemetryShutdown flushes pending spans and restores the otel globals.
type TelemetryShutdown func(ctx context.Context) error

// SetupTelemetry installs a global TracerProvider exporting over OTLP/HTTP.
// When disabled or cfg is nil, it returns a noop shutdown and leaves the
// globals untouched.
func SetupTelemetry(ctx context.Context, cfg *TelemetryConfig) (TelemetryShutdown, error) {
	if cfg == nil || !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := cfg.resource()
	if err != nil {
		return noopShutdown, fmt.Errorf("merge otel resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithCompression(otlptracehttp.GzipCompression)}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noopShutdown, fmt.Errorf("create otel exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))

	restore := swapGlobals(provider)

	return func(shutdownCtx context.Context) error {
		defer restore()

		if err := provider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown otel provider: %w", err)
		}

		return nil
	}, nil
}

func (cfg *TelemetryConfig) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cmp.Or(cfg.ServiceName, os.Getenv("OTEL_SERVICE_NAME"), "exttest")),
		attribute.String("service.version", cfg.Version),
		attribute.String("service.namespace", cmp.Or(cfg.Namespace, "mesos")),
		attribute.String("deployment.environment", cmp.Or(cfg.Environment, os.Getenv("OTEL_ENVIRONMENT"), "development")),
	}

	if cfg.Commit != "" {
		attrs = append(attrs, attribute.String("service.commit", cfg.Commit))
	}

	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// swapGlobals installs provider with W3C propagation and a silent error
// handler, and returns a func that puts the previous globals back.
func swapGlobals(provider trace.TracerProvider) func() {
	origTP := otel.GetTracerProvider()
	origPropagator := otel.GetTextMapPropagator()
	origErrorHandler := otel.GetErrorHandler()

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	// Export failures must never reach stderr.
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(error) {}))

	return func() {
		otel.SetTracerProvider(origTP)
		otel.SetTextMapPropagator(origPropagator)
		otel.SetErrorHandler(origErrorHandler)
	}
}

// StartInvocation opens the span covering one external test run. The
// caller must end it.
func StartInvocation(ctx context.Context, suite, test string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(tracerName).Start(ctx, InvocationSpanName,
		trace.WithAttributes(AttrSuite.String(suite), AttrTest.String(test)),
	)
}

// InvocationLaunched records where and as which process the script runs.
func InvocationLaunched(span trace.Span, workspace string, pid int) {
	span.SetAttributes(AttrWorkspace.String(workspace), AttrPID.Int(pid))
}

// InvocationFinished records the outcome kind. A non-nil failure marks the
// span as failed.
func InvocationFinished(span trace.Span, outcome string, failure error) {
	span.SetAttributes(AttrOutcome.String(outcome))
	RecordError(span, failure)
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// IsTelemetryEnabled checks the OTEL_ENABLED env var.
func IsTelemetryEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_ENABLED"))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func noopShutdown(context.Context) error { return nil }
