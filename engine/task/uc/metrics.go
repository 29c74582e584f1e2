package uc

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	monitoringmetrics "github.com/mpdriver/mpdriver/engine/infra/monitoring/metrics"
	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/chain"
)

const outcomeAccepted = "accepted"

// Metrics counts batch validation outcomes and recorded status events.
type Metrics struct {
	validations metric.Int64Counter
	persisted   metric.Int64Counter
}

// NewMetrics creates the task instruments on meter. A nil meter yields
// no-op instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("mpdriver.tasks")
	}
	validations, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("tasks", "status_batches_total"),
		metric.WithDescription("Status batches by validation outcome"),
	)
	if err != nil {
		return nil, err
	}
	persisted, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("tasks", "status_events_total"),
		metric.WithDescription("Status events recorded by entity kind"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{validations: validations, persisted: persisted}, nil
}

func (m *Metrics) recordOutcome(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := outcomeAccepted
	if cause, ok := chain.CauseOf(err); ok {
		outcome = string(cause)
	}
	m.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) recordPersisted(ctx context.Context, kind task.Kind) {
	if m == nil {
		return
	}
	m.persisted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}
