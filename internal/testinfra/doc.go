// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Package testinfra starts Docker containers for integration tests with
// testcontainers-go. Every file is behind the integration build tag:
//
//	go test -tags integration ./internal/cache/...
//
// # Redis
//
// StartRedis provides a throwaway Redis server for the remote cache tier:
//
//	func TestRemoteTier(t *testing.T) {
//	    redis := testinfra.StartRedis(t)
//	    store := cache.NewRedisStore(&config.CacheConfig{RedisAddr: redis.Addr})
//	    defer store.Close()
//	    // ...
//	}
//
// Tests skip when Docker is not available.
package testinfra
