// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Redis image and container port used by the remote cache tests.
const (
	DefaultRedisImage = "redis:7-alpine"
	DefaultRedisPort  = "6379/tcp"
)

// RedisContainer is a running Redis server.
type RedisContainer struct {
	testcontainers.Container
	Addr string // host:port reachable from the test process
}

// RedisOption tweaks NewRedisContainer.
type RedisOption func(*redisConfig)

type redisConfig struct {
	image        string
	startTimeout time.Duration
}

func WithRedisImage(image string) RedisOption {
	return func(c *redisConfig) { c.image = image }
}

// WithRedisStartTimeout bounds the wait for the readiness log line.
func WithRedisStartTimeout(timeout time.Duration) RedisOption {
	return func(c *redisConfig) { c.startTimeout = timeout }
}

// NewRedisContainer starts Redis and returns once it accepts connections.
// The caller terminates the container.
//
//	redis, err := testinfra.NewRedisContainer(ctx)
//	store := cache.NewRedisStore(&config.CacheConfig{RedisAddr: redis.Addr})
func NewRedisContainer(ctx context.Context, opts ...RedisOption) (*RedisContainer, error) {
	cfg := redisConfig{image: DefaultRedisImage, startTimeout: time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.image,
			ExposedPorts: []string{DefaultRedisPort},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(DefaultRedisPort),
				wait.ForLog("Ready to accept connections"),
			).WithStartupTimeout(cfg.startTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	addr, err := ctr.PortEndpoint(ctx, DefaultRedisPort, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("resolve redis endpoint: %w", err)
	}
	return &RedisContainer{Container: ctr, Addr: addr}, nil
}

// StartRedis skips t without Docker and removes the container when t ends.
func StartRedis(t *testing.T, opts ...RedisOption) *RedisContainer {
	t.Helper()
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redis, err := NewRedisContainer(ctx, opts...)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	CleanupContainer(t, redis.Container)
	return redis
}
