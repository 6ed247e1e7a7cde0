// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package cache

import (
	"github.com/bmatcuk/doublestar/v4"
)

// matchPattern reports whether key matches a glob pattern. "*" alone matches
// every key. Because Key escapes '/', a single '*' spans the whole remainder
// of a key.
func matchPattern(pattern, key string) (bool, error) {
	if pattern == "*" {
		return true, nil
	}
	return doublestar.Match(pattern, key)
}

// validPattern reports whether pattern is a well-formed glob.
func validPattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}
