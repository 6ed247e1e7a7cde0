// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

var errSimulated = errors.New("simulated failure")

// fakeService counts its runs. Configure failFirst or err before adding it
// to a tree.
type fakeService struct {
	name string

	failFirst int32 // first N runs return errSimulated
	err       error // every later run returns err when set

	runs     atomic.Int32
	returned atomic.Int32
}

func newFakeService(name string) *fakeService {
	return &fakeService{name: name}
}

func (f *fakeService) Serve(ctx context.Context) error {
	n := f.runs.Add(1)
	defer f.returned.Add(1)

	switch {
	case n <= f.failFirst:
		return errSimulated
	case f.err != nil:
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }
