package server

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/mpdriver/mpdriver/engine/infra/cache"
	"github.com/mpdriver/mpdriver/engine/infra/monitoring"
	"github.com/mpdriver/mpdriver/engine/infra/postgres"
	ntrouter "github.com/mpdriver/mpdriver/engine/note/router"
	noteuc "github.com/mpdriver/mpdriver/engine/note/uc"
	"github.com/mpdriver/mpdriver/engine/reference"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	tkrouter "github.com/mpdriver/mpdriver/engine/task/router"
	"github.com/mpdriver/mpdriver/engine/task/uc"
	"github.com/mpdriver/mpdriver/pkg/config"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type apiHandlers struct {
	tasks *tkrouter.Handler
	notes *ntrouter.Handler
}

type dependencies struct {
	api    *apiHandlers
	checks map[string]HealthChecker
}

func postgresConfig(cfg *config.Config) *postgres.Config {
	db := &cfg.Database
	return &postgres.Config{
		ConnString:        db.ConnString,
		Host:              db.Host,
		Port:              db.Port,
		User:              db.User,
		Password:          db.Password.Value(),
		DBName:            db.DBName,
		SSLMode:           db.SSLMode,
		MaxOpenConns:      db.MaxOpenConns,
		MaxIdleConns:      db.MaxIdleConns,
		ConnMaxLifetime:   db.ConnMaxLifetime,
		ConnMaxIdleTime:   db.ConnMaxIdleTime,
		PingTimeout:       db.PingTimeout,
		ConnectRetries:    db.ConnectRetries,
		ConnectRetryDelay: db.ConnectRetryDelay,
	}
}

func (s *Server) setupMonitoring() {
	s.monitoring = monitoring.NewMonitoringServiceWithFallback(s.ctx, &monitoring.Config{
		Enabled: s.cfg.Monitoring.Enabled,
		Path:    s.cfg.Monitoring.Path,
	})
	s.monitoring.SetAsGlobal()
	s.addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
		defer cancel()
		if err := s.monitoring.Shutdown(ctx); err != nil {
			logger.FromContext(s.ctx).Warn("Failed to shutdown monitoring", "error", err)
		}
	})
}

func (s *Server) setupDependencies() (*dependencies, error) {
	log := logger.FromContext(s.ctx)
	store, err := postgres.NewStore(s.ctx, postgresConfig(s.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to setup store: %w", err)
	}
	s.addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), dbShutdownTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Warn("Failed to close store", "error", err)
		}
	})
	checks := map[string]HealthChecker{"database": store}

	var shared cache.KV
	if addr := s.cfg.Redis.Addr; addr != "" {
		redis, err := cache.NewRedis(s.ctx, &cache.Config{
			Addr:     addr,
			Password: s.cfg.Redis.Password.Value(),
			DB:       s.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to setup redis: %w", err)
		}
		s.addCleanup(func() {
			if err := redis.Close(); err != nil {
				log.Warn("Failed to close redis", "error", err)
			}
		})
		shared = redis
		checks["redis"] = redis
	}

	api, err := buildHandlers(store.Pool(), shared, s.cfg, s.monitoring.Meter())
	if err != nil {
		return nil, err
	}
	return &dependencies{api: api, checks: checks}, nil
}

// buildHandlers wires the task and note use cases onto db. Both share one
// reference resolver.
func buildHandlers(db postgres.DB, shared cache.KV, cfg *config.Config, meter metric.Meter) (*apiHandlers, error) {
	var opts []reference.Option
	if shared != nil {
		opts = append(opts, reference.WithSharedCache(shared, cfg.Redis.Prefix, cfg.Redis.TTL))
	}
	resolver, err := reference.NewResolver(postgres.NewReferenceRepo(db), cfg.Reference.CacheSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference resolver: %w", err)
	}
	aggOpts := aggregate.Options{
		StationParamCode: cfg.Tasks.StationParamCode,
		RouteParamCode:   cfg.Tasks.RouteParamCode,
	}
	rows := postgres.NewTaskRowRepo(db, resolver, aggOpts)
	events := postgres.NewEventRepo(db, resolver, postgres.EventCodes{
		StatusEventKind: cfg.Tasks.StatusEventKind,
		StatusParamCode: cfg.Tasks.StatusParamCode,
	})
	metrics, err := uc.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create task metrics: %w", err)
	}
	notes := postgres.NewNoteRepo(db, resolver, postgres.NoteCodes{
		StatusEventKind:  cfg.Notes.StatusEventKind,
		CreatedEventKind: cfg.Notes.CreatedEventKind,
		StatusParamCode:  cfg.Tasks.StatusParamCode,
	})
	return &apiHandlers{
		tasks: tkrouter.NewHandler(
			uc.NewListTasks(rows, aggOpts),
			uc.NewUpdateStatuses(rows, events, aggOpts, metrics),
			cfg.Tasks.StatusEventKind,
		),
		notes: ntrouter.NewHandler(
			noteuc.NewListNotes(notes),
			noteuc.NewCreateNote(notes),
			noteuc.NewUpdateNoteStatus(notes),
		),
	}, nil
}
