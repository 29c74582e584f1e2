package monitoring

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpdriver/mpdriver/engine/infra/monitoring/metrics"
	"github.com/mpdriver/mpdriver/pkg/logger"
	buildversion "github.com/mpdriver/mpdriver/pkg/version"
)

// registerSystemMetrics records build info and observes process uptime.
func registerSystemMetrics(ctx context.Context, meter metric.Meter) (metric.Registration, error) {
	buildInfo, err := meter.Float64Gauge(
		metrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge(
		metrics.MetricName("uptime_seconds"),
		metric.WithDescription("Service uptime in seconds"),
	)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(uptime, time.Since(started).Seconds())
		return nil
	}, uptime)
	if err != nil {
		return nil, err
	}
	version, commit, goVersion := getBuildInfo()
	buildInfo.Record(ctx, 1, metric.WithAttributes(
		attribute.String("version", version),
		attribute.String("commit_hash", commit),
		attribute.String("go_version", goVersion),
	))
	logger.FromContext(ctx).Info("System metrics initialized", "version", version, "commit", commit)
	return reg, nil
}

func getBuildInfo() (version, commit, goVersion string) {
	info := buildversion.Get()
	return info.Version, info.CommitHash, runtime.Version()
}
