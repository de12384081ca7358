package otel

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupMetrics installs a Prometheus-backed OpenTelemetry MeterProvider as
// the global meter provider. The returned exporter implements
// promhttp.Collector-compatible registration via its own Collect method, so
// callers serve it with promhttp.Handler() on whatever mux they run.
func SetupMetrics(service string) (*prometheus.Exporter, error) {
	exp, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exp),
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetMeterProvider(mp)
	return exp, nil
}
