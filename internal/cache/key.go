// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package cache

import (
	"net/url"
	"strings"
)

// Key builds a cache key from an operation name and its arguments. Arguments
// are path-escaped so a ':' or '/' inside a value cannot shift fields.
func Key(op string, args ...string) string {
	var b strings.Builder
	b.WriteString(op)
	for _, arg := range args {
		b.WriteByte(':')
		b.WriteString(strings.ReplaceAll(url.PathEscape(arg), ":", "%3A"))
	}
	return b.String()
}
