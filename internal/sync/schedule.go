// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"sort"
	"time"
)

// DefaultScheduleHours are the UTC hours a scheduled run starts at.
var DefaultScheduleHours = []int{0, 12}

// NextRun returns the first instant strictly after now that falls on the hour
// (minute 0, UTC) of one of hours. Invalid hours are ignored; with none left
// it falls back to DefaultScheduleHours.
func NextRun(now time.Time, hours []int) time.Time {
	valid := make([]int, 0, len(hours))
	for _, h := range hours {
		if h >= 0 && h <= 23 {
			valid = append(valid, h)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, DefaultScheduleHours...)
	}
	sort.Ints(valid)

	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for day := 0; day < 2; day++ {
		base := midnight.AddDate(0, 0, day)
		for _, h := range valid {
			candidate := base.Add(time.Duration(h) * time.Hour)
			if candidate.After(now) {
				return candidate
			}
		}
	}
	// Unreachable with at least one valid hour
	return midnight.AddDate(0, 0, 1).Add(time.Duration(valid[0]) * time.Hour)
}
