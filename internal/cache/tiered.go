// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/metrics"
)

// Tier labels
const (
	TierRemote = "remote"
	TierLocal  = "local"
)

// ComputeFunc produces the value to cache. It is JSON-encoded before storage.
type ComputeFunc func(ctx context.Context) (any, error)

// Options configures a Tiered cache.
type Options struct {
	KeyPrefix   string        // namespace prepended to remote keys and patterns
	DefaultTTL  time.Duration // used when GetOrCompute gets ttl <= 0
	PingTimeout time.Duration // startup probe of the remote tier

	// ComputeTimeout bounds a shared compute. It runs detached from the
	// caller that started it, so one canceled request cannot fail the others
	// waiting on the same key.
	ComputeTimeout time.Duration
}

// DefaultComputeTimeout is used when Options.ComputeTimeout is not positive.
const DefaultComputeTimeout = 30 * time.Second

// Tiered is the two-tier response cache. The tiers are locked independently;
// no lock spans both.
type Tiered struct {
	local  *Local
	remote Remote // nil when disabled or unreachable at startup
	prefix string
	ttl    time.Duration
	budget time.Duration

	group       singleflight.Group
	degradeOnce sync.Once
}

// NewTiered creates the cache. remote may be nil for a local-only cache. A
// remote tier that fails its startup ping is dropped and the degradation is
// logged once.
func NewTiered(ctx context.Context, local *Local, remote Remote, opts Options) *Tiered {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}
	if opts.ComputeTimeout <= 0 {
		opts.ComputeTimeout = DefaultComputeTimeout
	}
	if local == nil {
		local = NewLocal(opts.DefaultTTL, 0, 0)
	}

	t := &Tiered{
		local:  local,
		prefix: opts.KeyPrefix,
		ttl:    opts.DefaultTTL,
		budget: opts.ComputeTimeout,
	}

	if remote != nil {
		pctx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := remote.Ping(pctx)
		cancel()
		if err != nil {
			t.logDegraded(err)
		} else {
			t.remote = remote
			logging.Info().Str("prefix", t.prefix).Msg("Remote cache tier connected")
		}
	}
	return t
}

// logDegraded records the switch to local-only mode exactly once.
func (t *Tiered) logDegraded(err error) {
	t.degradeOnce.Do(func() {
		metrics.RecordCacheRemoteError("ping")
		logging.Warn().Err(err).Msg("Remote cache tier unavailable, using local cache only")
	})
}

// RemoteEnabled reports whether the remote tier is in use.
func (t *Tiered) RemoteEnabled() bool {
	return t.remote != nil
}

// Local returns the local tier.
func (t *Tiered) Local() *Local {
	return t.local
}

func (t *Tiered) remoteKey(key string) string {
	return t.prefix + key
}

// GetOrCompute returns the cached JSON for key, computing and storing it on a
// miss. Lookup order is remote, local, compute. A compute error is returned
// and nothing is stored.
func (t *Tiered) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (json.RawMessage, error) {
	if ttl <= 0 {
		ttl = t.ttl
	}

	if t.remote != nil {
		data, err := t.remote.Get(ctx, t.remoteKey(key))
		switch {
		case err == nil:
			metrics.RecordCacheHit(TierRemote)
			return Decompress(data), nil
		case errors.Is(err, ErrCacheMiss):
		default:
			metrics.RecordCacheRemoteError("get")
			logging.Warn().Err(err).Str("key", key).Msg("Remote cache read failed, trying local tier")
		}
	}

	if data, ok := t.local.Get(key); ok {
		metrics.RecordCacheHit(TierLocal)
		return data, nil
	}

	ch := t.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.budget)
		defer cancel()
		return t.fill(cctx, key, ttl, compute)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		// The compute keeps running for the other waiters and still fills
		// both tiers.
		return nil, ctx.Err()
	}
}

// fill runs fn once and writes the encoded result to both tiers.
func (t *Tiered) fill(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) ([]byte, error) {
	metrics.RecordCacheMiss()
	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode cached value: %w", err)
	}

	t.local.Set(key, data, ttl)
	if t.remote != nil {
		if err := t.remote.Set(ctx, t.remoteKey(key), Compress(data), ttl); err != nil {
			metrics.RecordCacheRemoteError("set")
			logging.Warn().Err(err).Str("key", key).Msg("Remote cache write failed")
		}
	}
	return data, nil
}

// Invalidate removes every key matching the glob pattern from both tiers.
// It returns true when at least one tier succeeded.
func (t *Tiered) Invalidate(ctx context.Context, pattern string) bool {
	if pattern == "" {
		pattern = "*"
	}

	localOK := true
	removed, err := t.local.DeletePattern(pattern)
	if err != nil {
		localOK = false
		logging.Warn().Err(err).Str("pattern", pattern).Msg("Local cache invalidation failed")
	} else {
		metrics.RecordCacheInvalidation(TierLocal, removed)
	}

	remoteOK := false
	remoteRemoved := 0
	if t.remote != nil {
		remoteRemoved, err = t.remote.DeletePattern(ctx, t.remoteKey(pattern))
		if err != nil {
			metrics.RecordCacheRemoteError("invalidate")
			logging.Warn().Err(err).Str("pattern", pattern).Msg("Remote cache invalidation failed")
		} else {
			remoteOK = true
			metrics.RecordCacheInvalidation(TierRemote, remoteRemoved)
		}
	}

	logging.Info().
		Str("pattern", pattern).
		Int("local_removed", removed).
		Int("remote_removed", remoteRemoved).
		Bool("remote_enabled", t.remote != nil).
		Msg("Cache invalidated")

	return localOK || remoteOK
}

// Clear removes every entry from both tiers.
func (t *Tiered) Clear(ctx context.Context) bool {
	return t.Invalidate(ctx, "*")
}

// Close stops the local tier's cleanup goroutine.
func (t *Tiered) Close() {
	t.local.Close()
}
