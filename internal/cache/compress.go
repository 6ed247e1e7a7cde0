// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package cache

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
)

// columnarTag prefixes every payload Compress rewrites. No JSON text can
// start with a NUL byte, so Decompress never mistakes a stored value that
// merely looks like the columnar shape for one it produced.
var columnarTag = []byte("\x00col1")

// columnar is the remote payload of a list of objects: the shared key set
// once, then one row of values per element.
type columnar struct {
	Keys   []string            `json:"keys"`
	Values [][]json.RawMessage `json:"values"`
}

// Compress rewrites a JSON array of objects that all share the same key set
// as columnarTag followed by {"keys":[...],"values":[[...],...]}. Any other payload, including an
// empty array, is returned unchanged so Decompress(Compress(x)) == x up to
// object key order.
func Compress(data []byte) []byte {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || len(items) == 0 {
		return data
	}

	var keys []string
	out := columnar{Values: make([][]json.RawMessage, 0, len(items))}
	for i, raw := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return data
		}

		if i == 0 {
			keys = make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		} else if len(obj) != len(keys) {
			return data
		}

		row := make([]json.RawMessage, len(keys))
		for j, k := range keys {
			v, ok := obj[k]
			if !ok {
				return data
			}
			row[j] = v
		}
		out.Values = append(out.Values, row)
	}
	out.Keys = keys

	encoded, err := json.Marshal(out)
	if err != nil {
		return data
	}
	return append(append(make([]byte, 0, len(columnarTag)+len(encoded)), columnarTag...), encoded...)
}

// Decompress inverts Compress. A payload without columnarTag is returned
// unchanged, whatever its shape.
func Decompress(data []byte) []byte {
	body, ok := bytes.CutPrefix(data, columnarTag)
	if !ok {
		return data
	}

	var c columnar
	if err := json.Unmarshal(body, &c); err != nil || len(c.Keys) == 0 {
		return data
	}

	encodedKeys := make([][]byte, len(c.Keys))
	for i, k := range c.Keys {
		b, err := json.Marshal(k)
		if err != nil {
			return data
		}
		encodedKeys[i] = b
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range c.Values {
		if len(row) != len(c.Keys) {
			return data
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(encodedKeys[j])
			buf.WriteByte(':')
			if len(v) == 0 {
				buf.WriteString("null")
			} else {
				buf.Write(v)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
