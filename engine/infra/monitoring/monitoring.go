package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/mpdriver/mpdriver/engine/infra/monitoring/middleware"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

const meterName = "mpdriver"

// Service owns the meter provider and its Prometheus registry. A disabled
// Service hands out a no-op meter and serves 503 on the exporter.
type Service struct {
	cfg      *Config
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	exporter http.Handler
	system   metric.Registration
}

// NewMonitoringService validates cfg and, when enabled, builds an otel
// MeterProvider exporting to a private Prometheus registry.
func NewMonitoringService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	if !cfg.Enabled {
		log.Debug("Monitoring disabled")
		return disabled(cfg), nil
	}
	registry := prom.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	s := &Service{
		cfg:      cfg,
		meter:    provider.Meter(meterName),
		provider: provider,
		exporter: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if s.system, err = registerSystemMetrics(ctx, s.meter); err != nil {
		log.Warn("System metrics not registered", "error", err)
	}
	log.Info("Monitoring enabled", "path", cfg.Path)
	return s, nil
}

// NewMonitoringServiceWithFallback never fails: a bad config or exporter
// error is logged and a disabled Service is returned.
func NewMonitoringServiceWithFallback(ctx context.Context, cfg *Config) *Service {
	s, err := NewMonitoringService(ctx, cfg)
	if err == nil {
		return s
	}
	logger.FromContext(ctx).Error("Monitoring unavailable, metrics disabled", "error", err)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return disabled(cfg)
}

func disabled(cfg *Config) *Service {
	return &Service{cfg: cfg, meter: noop.NewMeterProvider().Meter(meterName)}
}

func (s *Service) Meter() metric.Meter { return s.meter }

func (s *Service) Path() string { return s.cfg.Path }

func (s *Service) IsInitialized() bool { return s.provider != nil }

// GinMiddleware records HTTP request metrics; a pass-through when disabled.
func (s *Service) GinMiddleware(ctx context.Context) gin.HandlerFunc {
	if !s.IsInitialized() {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.HTTPMetrics(ctx, s.meter)
}

// ExporterHandler serves the Prometheus exposition format.
func (s *Service) ExporterHandler() http.Handler {
	if s.exporter != nil {
		return s.exporter
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
	})
}

// SetAsGlobal installs the provider as the otel global so packages that
// use otel.Meter directly are exported too.
func (s *Service) SetAsGlobal() {
	if s.provider != nil {
		otel.SetMeterProvider(s.provider)
	}
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.system != nil {
		if err := s.system.Unregister(); err != nil {
			logger.FromContext(ctx).Debug("System metrics unregister failed", "error", err)
		}
	}
	if s.provider == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}
