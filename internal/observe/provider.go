package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the OpenTelemetry meter provider.
type ProviderConfig struct {
	// ServiceName is reported in telemetry. Default: "speechstack".
	ServiceName string

	// ServiceVersion is reported in telemetry.
	ServiceVersion string
}

// Provider is an installed meter provider together with its scrape handler.
type Provider struct {
	// Handler serves the Prometheus text format for /metrics.
	Handler http.Handler

	mp *sdkmetric.MeterProvider
}

// InitProvider installs a [sdkmetric.MeterProvider] backed by a Prometheus
// exporter as the global OTel meter provider. Each call uses a fresh
// Prometheus registry so repeated initialisation never collides.
func InitProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "speechstack"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(mp)

	return &Provider{
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		mp:      mp,
	}, nil
}

// MeterProvider returns the installed provider for [NewMetrics].
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider { return p.mp }

// Shutdown flushes and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}
