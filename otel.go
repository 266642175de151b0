package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/disgoorg/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.40.0"

	"github.com/topi314/modbot-comparator/modbot"
)

// telemetry owns the meter of one run and whatever serves it.
type telemetry struct {
	Meter    metric.Meter
	provider *sdkmetric.MeterProvider
	server   *http.Server
}

// newTelemetry exposes the run's counters for scraping while it is in progress.
// With otel disabled every instrument is a noop.
func newTelemetry(cfg modbot.OtelConfig) (*telemetry, error) {
	if !cfg.Enabled {
		return &telemetry{Meter: noop.NewMeterProvider().Meter(Name)}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(Name),
			semconv.ServiceNamespace(Namespace),
			semconv.ServiceInstanceID(cfg.InstanceID),
			semconv.ServiceVersion(Version),
		)),
	)
	otel.SetMeterProvider(provider)

	return &telemetry{
		Meter:    provider.Meter(Name),
		provider: provider,
		server:   serveMetrics(cfg.Metrics),
	}, nil
}

func serveMetrics(cfg modbot.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, promhttp.Handler())
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Infof("Serving metrics on %s%s", cfg.ListenAddr, cfg.Endpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped: ", err)
		}
	}()
	return server
}

func (t *telemetry) Close(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return errors.Join(t.server.Shutdown(ctx), t.provider.Shutdown(ctx))
}
