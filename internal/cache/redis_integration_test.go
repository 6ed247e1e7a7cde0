// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

//go:build integration

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/testinfra"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	redis := testinfra.StartRedis(t)
	store := NewRedisStore(&config.CacheConfig{RedisAddr: redis.Addr})
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_Integration(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	t.Run("get missing key is a miss", func(t *testing.T) {
		if _, err := store.Get(ctx, "gsc:absent"); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Get() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := store.Set(ctx, "gsc:summary:2025-01-01", []byte(`{"clicks":1}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		got, err := store.Get(ctx, "gsc:summary:2025-01-01")
		if err != nil || string(got) != `{"clicks":1}` {
			t.Errorf("Get() = %s, %v", got, err)
		}
	})

	t.Run("ttl expires entries", func(t *testing.T) {
		if err := store.Set(ctx, "gsc:short", []byte("x"), time.Second); err != nil {
			t.Fatal(err)
		}
		time.Sleep(1500 * time.Millisecond)
		if _, err := store.Get(ctx, "gsc:short"); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Get() after ttl error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("delete pattern spans scan pages", func(t *testing.T) {
		n := scanBatch + 25
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("gsc:country_range:usa:%04d", i)
			if err := store.Set(ctx, key, []byte("1"), time.Minute); err != nil {
				t.Fatal(err)
			}
		}
		if err := store.Set(ctx, "gsc:domain_range:a.com", []byte("1"), time.Minute); err != nil {
			t.Fatal(err)
		}

		removed, err := store.DeletePattern(ctx, "gsc:country_range:*")
		if err != nil {
			t.Fatalf("DeletePattern() error = %v", err)
		}
		if removed != n {
			t.Errorf("removed = %d, want %d", removed, n)
		}
		if _, err := store.Get(ctx, "gsc:domain_range:a.com"); err != nil {
			t.Errorf("unrelated key was removed: %v", err)
		}
	})
}

func TestTiered_RedisIntegration(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	c := NewTiered(ctx, NewLocal(time.Hour, 0, 0), store, Options{KeyPrefix: "it:"})
	t.Cleanup(c.Close)
	if !c.RemoteEnabled() {
		t.Fatal("remote tier should be enabled")
	}

	var calls atomic.Int32
	value := []row{{Domain: "a.com", Country: "usa", Clicks: 7}}
	key := Key("country_range", "usa", "2025-01-01", "2025-01-31")

	if _, err := c.GetOrCompute(ctx, key, time.Minute, countingCompute(&calls, value)); err != nil {
		t.Fatal(err)
	}

	// A second process sharing Redis sees the entry without computing.
	other := NewTiered(ctx, NewLocal(time.Hour, 0, 0), store, Options{KeyPrefix: "it:"})
	t.Cleanup(other.Close)
	got, err := other.GetOrCompute(ctx, key, time.Minute, countingCompute(&calls, nil))
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("compute calls = %d, want 1", calls.Load())
	}
	var decoded []row
	if err := json.Unmarshal(got, &decoded); err != nil || len(decoded) != 1 || decoded[0].Clicks != 7 {
		t.Errorf("remote payload = %s, %v", got, err)
	}

	if !c.Invalidate(ctx, "country_range:*") {
		t.Fatal("Invalidate() = false")
	}
	if _, err := store.Get(ctx, "it:"+key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("remote key survived invalidation: %v", err)
	}
}
