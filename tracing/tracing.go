package tracing

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "ledger"

type Settings struct {
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPAuthKey    string `mapstructure:"otlp_auth_key"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	Stdout         bool   `mapstructure:"stdout"`
	Environment    string `mapstructure:"environment"`
}

// Enabled reports whether any exporter is configured.
func (s Settings) Enabled() bool {
	return s.OTLPEndpoint != "" || s.JaegerEndpoint != "" || s.Stdout
}

func exporter(ctx context.Context, s Settings) (sdktrace.SpanExporter, error) {
	switch {
	case s.OTLPEndpoint != "":
		log.Info().Str("endpoint", s.OTLPEndpoint).Msg("New GRPC TraceProvider")
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpoint(s.OTLPEndpoint),
			otlptracegrpc.WithHeaders(map[string]string{
				"Authorization": s.OTLPAuthKey,
			}),
		)
	case s.JaegerEndpoint != "":
		log.Info().Str("endpoint", s.JaegerEndpoint).Msg("New Jaeger TraceProvider")
		return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(s.JaegerEndpoint)))
	case s.Stdout:
		log.Info().Msg("New stdout TraceProvider")
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	}
	return nil, nil
}

// Init installs a global tracer provider for the configured exporter. With
// no exporter configured the global no-op provider is kept.
func Init(ctx context.Context, s Settings) (shutdown func(context.Context) error, err error) {
	shutdown = func(context.Context) error { return nil }

	exp, err := exporter(ctx, s)
	if err != nil {
		return shutdown, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	if exp == nil {
		return shutdown, nil
	}

	env := s.Environment
	if env == "" {
		env = "production"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.DeploymentEnvironmentKey.String(env),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

func NewSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(ServiceName).Start(ctx, name)
}
