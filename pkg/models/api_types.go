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

package models

// ErrorResponse is the structured error body returned by every endpoint.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// IngestResponse reports per-table record counts for one ingest request.
// Status is "ok", "partial" or "error" depending on downstream delivery.
type IngestResponse struct {
	Status   string                 `json:"status"`
	Records  map[string]int         `json:"records"`
	Errors   map[string]string      `json:"errors,omitempty"`
	Warnings *SkippedMetricsWarning `json:"warnings,omitempty"`
}

// SkippedMetricsWarning surfaces metric points the builder cannot represent
// in the fixed gauge/sum schemas. They are counted, never silently dropped.
type SkippedMetricsWarning struct {
	Message               string `json:"message"`
	SkippedTotal          int    `json:"skipped_total"`
	Histograms            int    `json:"histograms,omitempty"`
	ExponentialHistograms int    `json:"exponential_histograms,omitempty"`
	Summaries             int    `json:"summaries,omitempty"`
	MissingValues         int    `json:"missing_values,omitempty"`
}

// QueryRequest is the hot cache query surface. Filters are ANDed.
type QueryRequest struct {
	Table      string      `json:"table"`
	StartTime  *int64      `json:"start_time,omitempty"`
	EndTime    *int64      `json:"end_time,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
	MetricName string      `json:"metric_name,omitempty"`
	Labels     []LabelPair `json:"labels,omitempty"`
	Limit      int64       `json:"limit"`
}

// LabelPair is one metric label equality filter.
type LabelPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QueryResponse carries matching rows for a QueryRequest.
type QueryResponse struct {
	Results []Row `json:"results"`
}

// CountResponse carries the row count for a QueryRequest with count=true.
type CountResponse struct {
	Count int64 `json:"count"`
}

// StatsRow is one minute of aggregated counts for a service. Latency
// fields are populated for traces only; min and max are omitted until at
// least one span latency has been observed in the minute.
type StatsRow struct {
	Minute       int64  `json:"minute"`
	Count        int64  `json:"count"`
	ErrorCount   int64  `json:"error_count"`
	LatencySumUs *int64 `json:"latency_sum_us,omitempty"`
	LatencyMinUs *int64 `json:"latency_min_us,omitempty"`
	LatencyMaxUs *int64 `json:"latency_max_us,omitempty"`
}

// ServiceStats pairs a service name with its per-minute aggregates.
type ServiceStats struct {
	Service string     `json:"service"`
	Stats   []StatsRow `json:"stats"`
}

// CORSConfig controls cross-origin behaviour of the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}
