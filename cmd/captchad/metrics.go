package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	promexport "github.com/MrEthical07/goCaptcha/metrics/export/prometheus"
	otelexport "github.com/MrEthical07/goCaptcha/metrics/export/otel"
)

const meterName = "github.com/MrEthical07/goCaptcha"

// metricsEndpoint serves engine metrics in Prometheus text format, either through the
// native collector or through an OpenTelemetry meter read by the otel Prometheus
// exporter. Only one path is wired per process so metric names never collide.
type metricsEndpoint struct {
	handler  http.Handler
	shutdown func(context.Context) error
}

func newMetricsEndpoint(exporter string, engine *goCaptcha.Engine) (*metricsEndpoint, error) {
	reg := prometheus.NewRegistry()

	switch exporter {
	case "prometheus":
		if err := reg.Register(promexport.NewCollector(engine)); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
		return &metricsEndpoint{
			handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			shutdown: func(context.Context) error { return nil },
		}, nil

	case "otel":
		reader, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("otel prometheus exporter: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		exp, err := otelexport.NewExporter(provider.Meter(meterName), engine)
		if err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, err
		}
		return &metricsEndpoint{
			handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			shutdown: func(ctx context.Context) error {
				if err := exp.Close(); err != nil {
					return err
				}
				return provider.Shutdown(ctx)
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown metrics exporter %q", exporter)
}
