package reference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpdriver/mpdriver/engine/infra/cache"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type fakeLoader struct {
	codes map[int64]string
	calls atomic.Int32
	delay time.Duration
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{codes: map[int64]string{8680: "InProgress", 8681: "Completed", 8668: "ID_MST"}}
}

func (f *fakeLoader) LoadCode(_ context.Context, id int64) (string, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	code, ok := f.codes[id]
	if !ok {
		return "", ErrUnknown
	}
	return code, nil
}

func (f *fakeLoader) LoadID(_ context.Context, code string) (int64, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	for id, c := range f.codes {
		if c == code {
			return id, nil
		}
	}
	return 0, ErrUnknown
}

func testContext(t *testing.T) context.Context {
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func TestResolver(t *testing.T) {
	t.Run("Should resolve ids and memoize the result", func(t *testing.T) {
		ctx := testContext(t)
		loader := newFakeLoader()
		r, err := NewResolver(loader, 16)
		require.NoError(t, err)

		code, err := r.Resolve(ctx, 8680)
		require.NoError(t, err)
		assert.Equal(t, "InProgress", code)
		code, err = r.Resolve(ctx, 8680)
		require.NoError(t, err)
		assert.Equal(t, "InProgress", code)
		assert.Equal(t, int32(1), loader.calls.Load())
	})

	t.Run("Should look codes up in reverse", func(t *testing.T) {
		ctx := testContext(t)
		r, err := NewResolver(newFakeLoader(), 16)
		require.NoError(t, err)
		id, err := r.Lookup(ctx, "ID_MST")
		require.NoError(t, err)
		assert.Equal(t, int64(8668), id)
	})

	t.Run("Should report unknown entries without caching them", func(t *testing.T) {
		ctx := testContext(t)
		loader := newFakeLoader()
		r, err := NewResolver(loader, 16)
		require.NoError(t, err)
		_, err = r.Resolve(ctx, 1)
		assert.True(t, errors.Is(err, ErrUnknown))
		_, err = r.Resolve(ctx, 1)
		assert.ErrorIs(t, err, ErrUnknown)
		assert.Equal(t, int32(2), loader.calls.Load())
	})

	t.Run("Should collapse concurrent misses for the same id", func(t *testing.T) {
		ctx := testContext(t)
		loader := newFakeLoader()
		loader.delay = 50 * time.Millisecond
		r, err := NewResolver(loader, 16)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				code, err := r.Resolve(ctx, 8681)
				assert.NoError(t, err)
				assert.Equal(t, "Completed", code)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), loader.calls.Load())
	})

	t.Run("Should reject a missing loader", func(t *testing.T) {
		_, err := NewResolver(nil, 16)
		assert.Error(t, err)
	})

	t.Run("Should reject a non-positive cache size", func(t *testing.T) {
		_, err := NewResolver(newFakeLoader(), 0)
		assert.Error(t, err)
	})
}

func TestResolver_SharedCache(t *testing.T) {
	newShared := func(t *testing.T) (*miniredis.Miniredis, *cache.Redis) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return s, cache.NewRedisFromClient(testContext(t), client)
	}

	t.Run("Should publish resolved entries to the shared cache", func(t *testing.T) {
		ctx := testContext(t)
		s, shared := newShared(t)
		r, err := NewResolver(newFakeLoader(), 16, WithSharedCache(shared, "mpdriver:lst:", time.Hour))
		require.NoError(t, err)

		_, err = r.Resolve(ctx, 8680)
		require.NoError(t, err)
		_, err = r.Lookup(ctx, "Completed")
		require.NoError(t, err)

		v, err := s.Get("mpdriver:lst:id:8680")
		require.NoError(t, err)
		assert.Equal(t, "InProgress", v)
		v, err = s.Get("mpdriver:lst:code:Completed")
		require.NoError(t, err)
		assert.Equal(t, "8681", v)
		assert.Equal(t, time.Hour, s.TTL("mpdriver:lst:id:8680"))
	})

	t.Run("Should serve entries from the shared cache before loading", func(t *testing.T) {
		ctx := testContext(t)
		s, shared := newShared(t)
		require.NoError(t, s.Set("p:id:42", "Cancelled"))
		require.NoError(t, s.Set("p:code:Cancelled", "42"))
		loader := newFakeLoader()
		r, err := NewResolver(loader, 16, WithSharedCache(shared, "p:", time.Minute))
		require.NoError(t, err)

		code, err := r.Resolve(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "Cancelled", code)
		id, err := r.Lookup(ctx, "Cancelled")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, int32(0), loader.calls.Load())
	})

	t.Run("Should fall back to the loader when the shared cache is down", func(t *testing.T) {
		ctx := testContext(t)
		s, shared := newShared(t)
		s.Close()
		loader := newFakeLoader()
		r, err := NewResolver(loader, 16, WithSharedCache(shared, "p:", time.Minute))
		require.NoError(t, err)

		code, err := r.Resolve(ctx, 8680)
		require.NoError(t, err)
		assert.Equal(t, "InProgress", code)
		assert.Equal(t, int32(1), loader.calls.Load())
	})
}
