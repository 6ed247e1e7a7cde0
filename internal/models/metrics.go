// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package models

// MetricRecord is one entity's search performance for one date.
// Unique on (EntityID, Date).
type MetricRecord struct {
	EntityID        string  `json:"domain"`
	Date            Date    `json:"date"`
	Clicks          int64   `json:"traffic_clicks"`
	Impressions     int64   `json:"impressions"`
	CTR             float64 `json:"ctr"`          // 0..1
	AvgPosition     float64 `json:"avg_position"` // 0 when there were no impressions
	IndexedPages    int64   `json:"pages_indexed"`
	NotIndexedPages int64   `json:"pages_not_indexed"`
}

// IsAllZero reports whether the four traffic metrics are all exactly zero.
// Such records are treated as "no data" and never persisted.
func (m *MetricRecord) IsAllZero() bool {
	return m.Clicks == 0 && m.Impressions == 0 && m.CTR == 0 && m.AvgPosition == 0
}

// ErrorCount is the number of pages with one error kind for an entity and date.
// Unique on (EntityID, Date, Kind). Most dates have none.
type ErrorCount struct {
	EntityID string `json:"domain"`
	Date     Date   `json:"date"`
	Kind     string `json:"error_type"`
	Count    int64  `json:"count"`
}

// DailyMetrics is what the provider returns for a primary fetch: the record
// and its error counts, persisted together.
type DailyMetrics struct {
	Record MetricRecord     `json:"record"`
	Errors map[string]int64 `json:"errors"` // kind -> count, never nil after NewDailyMetrics
}

// NewDailyMetrics returns DailyMetrics with an empty error map.
func NewDailyMetrics(record MetricRecord) *DailyMetrics {
	return &DailyMetrics{Record: record, Errors: map[string]int64{}}
}

// ErrorCounts expands the error map into rows keyed like the record.
func (d *DailyMetrics) ErrorCounts() []ErrorCount {
	out := make([]ErrorCount, 0, len(d.Errors))
	for kind, count := range d.Errors {
		out = append(out, ErrorCount{
			EntityID: d.Record.EntityID,
			Date:     d.Record.Date,
			Kind:     kind,
			Count:    count,
		})
	}
	return out
}

// DimensionedMetricRecord is one entity's performance for one date and one
// dimension value (a country code). Unique on (EntityID, Date, Dimension).
type DimensionedMetricRecord struct {
	EntityID    string  `json:"domain"`
	Date        Date    `json:"date"`
	Dimension   string  `json:"country"`
	Clicks      int64   `json:"traffic_clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
	AvgPosition float64 `json:"avg_position"`
}

// UnknownDimension is stored when the provider omits the dimension key.
const UnknownDimension = "N/A"

// LastDates is the high-water-mark of one entity in both stores.
type LastDates struct {
	EntityID    string `json:"domain"`
	Primary     *Date  `json:"last_date"`
	Dimensioned *Date  `json:"last_country_date"`
}
