// Package reference resolves numeric ids of the reference table into their
// short mnemonic codes and back. A Resolver is an explicit instance injected
// into the repositories that need it; it memoizes in a bounded LRU, collapses
// concurrent misses for the same key and optionally shares entries through
// Redis.
package reference

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mpdriver/mpdriver/engine/infra/cache"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

// ErrUnknown is returned when the reference table has no matching entry.
var ErrUnknown = errors.New("reference: unknown entry")

// Loader reads entries from the reference table.
type Loader interface {
	LoadCode(ctx context.Context, id int64) (string, error)
	LoadID(ctx context.Context, code string) (int64, error)
}

type Resolver struct {
	loader Loader
	codes  *lru.Cache[int64, string]
	ids    *lru.Cache[string, int64]
	shared cache.KV
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

type Option func(*Resolver)

// WithSharedCache adds a second cache level shared between processes.
func WithSharedCache(kv cache.KV, prefix string, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.shared = kv
		r.prefix = prefix
		r.ttl = ttl
	}
}

func NewResolver(loader Loader, size int, opts ...Option) (*Resolver, error) {
	if loader == nil {
		return nil, errors.New("reference loader is required")
	}
	codes, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create code cache: %w", err)
	}
	ids, err := lru.New[string, int64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create id cache: %w", err)
	}
	r := &Resolver{loader: loader, codes: codes, ids: ids}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the code for id.
func (r *Resolver) Resolve(ctx context.Context, id int64) (string, error) {
	if code, ok := r.codes.Get(id); ok {
		return code, nil
	}
	key := "id:" + strconv.FormatInt(id, 10)
	v, err, _ := r.group.Do(key, func() (any, error) {
		if code, ok := r.sharedGet(ctx, key); ok {
			return code, nil
		}
		code, err := r.loader.LoadCode(ctx, id)
		if err != nil {
			return "", err
		}
		r.sharedSet(ctx, key, code)
		return code, nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve reference %d: %w", id, err)
	}
	code := v.(string)
	r.codes.Add(id, code)
	return code, nil
}

// Lookup returns the id for code.
func (r *Resolver) Lookup(ctx context.Context, code string) (int64, error) {
	if id, ok := r.ids.Get(code); ok {
		return id, nil
	}
	key := "code:" + code
	v, err, _ := r.group.Do(key, func() (any, error) {
		if raw, ok := r.sharedGet(ctx, key); ok {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return id, nil
			}
		}
		id, err := r.loader.LoadID(ctx, code)
		if err != nil {
			return int64(0), err
		}
		r.sharedSet(ctx, key, strconv.FormatInt(id, 10))
		return id, nil
	})
	if err != nil {
		return 0, fmt.Errorf("lookup reference %q: %w", code, err)
	}
	id := v.(int64)
	r.ids.Add(code, id)
	return id, nil
}

func (r *Resolver) sharedGet(ctx context.Context, key string) (string, bool) {
	if r.shared == nil {
		return "", false
	}
	v, err := r.shared.Get(ctx, r.prefix+key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.FromContext(ctx).Warn("Shared reference cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (r *Resolver) sharedSet(ctx context.Context, key, value string) {
	if r.shared == nil {
		return
	}
	if err := r.shared.Set(ctx, r.prefix+key, value, r.ttl); err != nil {
		logger.FromContext(ctx).Warn("Shared reference cache write failed", "key", key, "error", err)
	}
}
