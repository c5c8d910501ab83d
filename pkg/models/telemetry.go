/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package models contains the shared types exchanged between the decode,
// cache, live-tail and delivery layers.
package models

// Signal identifies one telemetry signal kind. Gauge and Sum are distinct
// signals because they land in separate tables and carry different columns.
type Signal string

const (
	SignalLogs  Signal = "logs"
	SignalSpans Signal = "spans"
	SignalGauge Signal = "gauge"
	SignalSum   Signal = "sum"
)

// TableName returns the cache/export table this signal is stored in.
func (s Signal) TableName() string {
	if s == SignalSpans {
		return "traces"
	}

	return string(s)
}

// SignalFromTable resolves a table name back to its signal kind.
func SignalFromTable(table string) (Signal, bool) {
	switch table {
	case "logs":
		return SignalLogs, true
	case "traces":
		return SignalSpans, true
	case "gauge":
		return SignalGauge, true
	case "sum":
		return SignalSum, true
	default:
		return "", false
	}
}

// Tables lists every table the hot cache maintains.
func Tables() []string {
	return []string{"logs", "traces", "gauge", "sum"}
}

// Row column names shared across all signal schemas.
const (
	ColumnSignal         = "_signal"
	ColumnTimestampNanos = "_timestamp_nanos"
	ColumnTimestamp      = "timestamp"
	ColumnServiceName    = "service_name"
	ColumnTraceID        = "trace_id"
	ColumnMetricName     = "metric_name"
)

// Row is one flat, schema-conformant record: column name to scalar value
// (string, int64, int32, float64, bool) with attribute maps already
// serialized to JSON strings. Rows are immutable once built.
type Row map[string]interface{}

// Signal returns the row's signal discriminator, empty if unset.
func (r Row) Signal() Signal {
	s, _ := r[ColumnSignal].(string)
	return Signal(s)
}

// Table returns the cache table this row belongs to.
func (r Row) Table() string {
	return r.Signal().TableName()
}

// ServiceName returns the row's service name, empty if unset.
func (r Row) ServiceName() string {
	s, _ := r[ColumnServiceName].(string)
	return s
}

// GroupByTable buckets rows by their destination table, preserving order.
func GroupByTable(rows []Row) map[string][]Row {
	grouped := make(map[string][]Row)

	for _, row := range rows {
		table := row.Table()
		grouped[table] = append(grouped[table], row)
	}

	return grouped
}
