package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/mpdriver/mpdriver/pkg/logger"
)

const (
	defaultMaxConns           = 20
	defaultHealthCheckPeriod  = 30 * time.Second
	defaultConnectTimeout     = 5 * time.Second
	defaultPingTimeout        = 3 * time.Second
	defaultHealthCheckTimeout = time.Second
	defaultRetryDelay         = time.Second
)

// Store owns the pgx pool shared by the task, event and reference repos.
type Store struct {
	pool          *pgxpool.Pool
	metrics       *poolMetrics
	healthTimeout time.Duration
}

// NewStore dials Postgres and pings it. While the server is unreachable the
// attempt is repeated with exponential backoff, cfg.ConnectRetries times.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres: config is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	poolCfg.MaxConns, poolCfg.MinConns = deriveConnectionBounds(cfg)
	poolCfg.HealthCheckPeriod = defaultHealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	log := logger.FromContext(ctx).With("host", cfg.Host, "db_name", cfg.DBName)
	pingTimeout := orDefault(cfg.PingTimeout, defaultPingTimeout)
	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewExponential(orDefault(cfg.ConnectRetryDelay, defaultRetryDelay)))
	var pool *pgxpool.Pool
	attempts := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		p, dialErr := dial(ctx, poolCfg, pingTimeout)
		if dialErr != nil {
			log.Warn("Postgres not reachable yet", "attempt", attempts, "error", dialErr)
			return retry.RetryableError(dialErr)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	store := &Store{pool: pool, healthTimeout: orDefault(cfg.HealthCheckTimeout, defaultHealthCheckTimeout)}
	if store.metrics, err = registerPoolMetrics(poolLabel(cfg), pool); err != nil {
		log.Warn("Postgres pool metrics disabled", "error", err)
	}
	log.Info("Postgres store ready",
		"attempts", attempts,
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
		"ssl_mode", cfg.SSLMode,
	)
	return store, nil
}

func dial(ctx context.Context, poolCfg *pgxpool.Config, pingTimeout time.Duration) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// deriveConnectionBounds clamps the configured pool sizes to int32 and keeps
// the idle floor at or below the ceiling.
func deriveConnectionBounds(cfg *Config) (maxConns, minConns int32) {
	maxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		maxConns = int32(min(cfg.MaxOpenConns, math.MaxInt32))
	}
	if cfg.MaxIdleConns > 0 {
		minConns = int32(min(cfg.MaxIdleConns, int(maxConns)))
	}
	return maxConns, minConns
}

// Pool exposes the pool to the repositories.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// HealthCheck pings the pool within the configured timeout.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.metrics.unregister()
	s.pool.Close()
	logger.FromContext(ctx).Info("Postgres store closed")
	return nil
}
