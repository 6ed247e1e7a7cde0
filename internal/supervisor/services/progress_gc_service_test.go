// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	gscsync "github.com/tomtom215/gscstats/internal/sync"
)

var (
	_ suture.Service   = (*ProgressGCService)(nil)
	_ GarbageCollector = (*gscsync.BadgerStore)(nil)
)

type countingGC struct {
	runs  atomic.Int32
	ratio atomic.Value
	err   error
}

func (c *countingGC) RunGC(ratio float64) error {
	c.runs.Add(1)
	c.ratio.Store(ratio)
	return c.err
}

func TestNewProgressGCService_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		interval     time.Duration
		ratio        float64
		wantInterval time.Duration
		wantRatio    float64
	}{
		{"explicit", time.Minute, 0.7, time.Minute, 0.7},
		{"zero values", 0, 0, DefaultGCInterval, DefaultGCRatio},
		{"ratio out of range", time.Second, 1.5, time.Second, DefaultGCRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProgressGCService(&countingGC{}, tt.interval, tt.ratio)
			if svc.interval != tt.wantInterval {
				t.Errorf("interval = %v, want %v", svc.interval, tt.wantInterval)
			}
			if svc.ratio != tt.wantRatio {
				t.Errorf("ratio = %v, want %v", svc.ratio, tt.wantRatio)
			}
		})
	}
}

func TestProgressGCService_Serve(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"runs on every tick", nil},
		{"keeps running after a failed GC", errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gc := &countingGC{err: tt.err}
			svc := NewProgressGCService(gc, 10*time.Millisecond, 0.25)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				done <- svc.Serve(ctx)
			}()

			if !waitFor(func() bool { return gc.runs.Load() >= 2 }) {
				t.Errorf("GC runs = %d, want at least 2", gc.runs.Load())
			}
			cancel()

			if err := <-done; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() error = %v, want context.Canceled", err)
			}
			if got, _ := gc.ratio.Load().(float64); got != 0.25 {
				t.Errorf("ratio passed = %v, want 0.25", got)
			}
		})
	}
}

func TestProgressGCService_BadgerStore(t *testing.T) {
	store, err := gscsync.OpenBadgerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	svc := NewProgressGCService(store, 10*time.Millisecond, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want context.DeadlineExceeded", err)
	}
}
