package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/mpdriver/mpdriver/engine/infra/monitoring/metrics"
)

const postgresMeterName = "mpdriver.postgres"

// poolMetrics observes pool statistics through asynchronous gauges.
type poolMetrics struct {
	registration metric.Registration
}

func registerPoolMetrics(label string, pool *pgxpool.Pool) (*poolMetrics, error) {
	meter := otel.GetMeterProvider().Meter(postgresMeterName)
	open, err := meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_open"),
		metric.WithDescription("Number of open Postgres connections"),
	)
	if err != nil {
		return nil, err
	}
	inUse, err := meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_in_use"),
		metric.WithDescription("Number of Postgres connections currently in use"),
	)
	if err != nil {
		return nil, err
	}
	idle, err := meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_idle"),
		metric.WithDescription("Number of idle Postgres connections"),
	)
	if err != nil {
		return nil, err
	}
	attrs := metric.WithAttributes(attribute.String("pool", label))
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := pool.Stat()
		o.ObserveInt64(open, int64(stats.TotalConns()), attrs)
		o.ObserveInt64(inUse, int64(stats.AcquiredConns()), attrs)
		o.ObserveInt64(idle, int64(stats.IdleConns()), attrs)
		return nil
	}, open, inUse, idle)
	if err != nil {
		return nil, err
	}
	return &poolMetrics{registration: reg}, nil
}

func (p *poolMetrics) unregister() {
	if p == nil || p.registration == nil {
		return
	}
	_ = p.registration.Unregister()
}

// poolLabel joins host, port and database name into a metric label.
func poolLabel(cfg *Config) string {
	parts := make([]string, 0, 3)
	for _, c := range []string{cfg.Host, cfg.Port, cfg.DBName} {
		if s := strings.ToLower(strings.TrimSpace(c)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "-")
}
