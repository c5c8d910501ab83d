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

// Package stats maintains per-service, per-minute RED aggregates over the
// ingest stream: request counts, error counts and, for traces, latency
// sums and extrema in microseconds. Aggregates live in memory and age out
// after the retention window; the raw rows stay queryable in the hot cache.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
)

// errorSeverityFloor is the OTLP severity number where errors begin
// (SEVERITY_NUMBER_ERROR). Anything at or above it counts as an error.
const errorSeverityFloor int32 = 17

// statusError is the span status that marks a failed request.
const statusError = "Error"

// Options configures an Aggregator.
type Options struct {
	// RetentionMinutes is how many minutes of aggregates to keep. Values
	// outside (0, models.MaxStatsRetentionMinutes] are clamped.
	RetentionMinutes int64

	// Clock overrides time.Now, letting tests pin the bucketing minute.
	Clock func() time.Time

	Logger logger.Logger
}

type bucketKey struct {
	service string
	signal  models.Signal
}

// bucket accumulates one service's counters for one minute. Latency
// fields are meaningful only when hasLatency is set.
type bucket struct {
	count        int64
	errorCount   int64
	latencySumUs int64
	latencyMinUs int64
	latencyMaxUs int64
	hasLatency   bool
}

// Aggregator folds ingested rows into minute-resolution aggregates keyed
// by service and signal. Only logs and traces are aggregated; metric rows
// pass through untouched.
type Aggregator struct {
	retention int64
	now       func() time.Time
	logger    logger.Logger

	mu      sync.Mutex
	buckets map[bucketKey]map[int64]*bucket
}

// NewAggregator creates an aggregator with the given options.
func NewAggregator(opts Options) *Aggregator {
	retention := opts.RetentionMinutes
	if retention <= 0 {
		retention = models.DefaultStatsRetentionMinutes
	}

	if retention > models.MaxStatsRetentionMinutes {
		retention = models.MaxStatsRetentionMinutes
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Aggregator{
		retention: retention,
		now:       now,
		logger:    log,
		buckets:   make(map[bucketKey]map[int64]*bucket),
	}
}

// Record folds a batch of ingested rows into the current minute's
// aggregates. Rows are bucketed by arrival time, not event time, so a
// burst of backfilled telemetry shows up as present-day throughput.
func (a *Aggregator) Record(rows []models.Row) {
	if len(rows) == 0 {
		return
	}

	minute := a.now().UnixMilli() / 60_000

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, row := range rows {
		switch row.Signal() {
		case models.SignalLogs:
			b := a.bucketLocked(bucketKey{service: row.ServiceName(), signal: models.SignalLogs}, minute)
			b.count++

			if sev, ok := row["severity_number"].(int32); ok && sev >= errorSeverityFloor {
				b.errorCount++
			}
		case models.SignalSpans:
			b := a.bucketLocked(bucketKey{service: row.ServiceName(), signal: models.SignalSpans}, minute)
			b.count++

			if status, _ := row["status_code"].(string); status == statusError {
				b.errorCount++
			}

			if durationNs, ok := row["duration"].(int64); ok && durationNs >= 0 {
				us := durationNs / 1000

				if !b.hasLatency || us < b.latencyMinUs {
					b.latencyMinUs = us
				}

				if !b.hasLatency || us > b.latencyMaxUs {
					b.latencyMaxUs = us
				}

				b.latencySumUs += us
				b.hasLatency = true
			}
		default:
		}
	}

	a.pruneLocked(minute)
}

func (a *Aggregator) bucketLocked(key bucketKey, minute int64) *bucket {
	minutes, ok := a.buckets[key]
	if !ok {
		minutes = make(map[int64]*bucket)
		a.buckets[key] = minutes
	}

	b, ok := minutes[minute]
	if !ok {
		b = &bucket{}
		minutes[minute] = b
	}

	return b
}

// pruneLocked drops buckets older than the retention window.
func (a *Aggregator) pruneLocked(currentMinute int64) {
	cutoff := currentMinute - a.retention

	var removed int

	for key, minutes := range a.buckets {
		for minute := range minutes {
			if minute < cutoff {
				delete(minutes, minute)
				removed++
			}
		}

		if len(minutes) == 0 {
			delete(a.buckets, key)
		}
	}

	if removed > 0 {
		a.logger.Debug().Int("buckets", removed).Msg("Pruned expired stats buckets")
	}
}

// Query returns one service's aggregates for a signal, oldest minute
// first. From and to bound the minute index inclusively when set.
func (a *Aggregator) Query(service string, signal models.Signal, from, to *int64) []models.StatsRow {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.queryLocked(bucketKey{service: service, signal: signal}, from, to)
}

// Services returns aggregates for every known service under a signal,
// sorted by service name.
func (a *Aggregator) Services(signal models.Signal, from, to *int64) []models.ServiceStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]models.ServiceStats, 0)

	for key := range a.buckets {
		if key.signal != signal {
			continue
		}

		result = append(result, models.ServiceStats{
			Service: key.service,
			Stats:   a.queryLocked(key, from, to),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Service < result[j].Service })

	return result
}

func (a *Aggregator) queryLocked(key bucketKey, from, to *int64) []models.StatsRow {
	minutes := a.buckets[key]

	selected := make([]int64, 0, len(minutes))

	for minute := range minutes {
		if from != nil && minute < *from {
			continue
		}

		if to != nil && minute > *to {
			continue
		}

		selected = append(selected, minute)
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i] < selected[j] })

	rows := make([]models.StatsRow, 0, len(selected))

	for _, minute := range selected {
		b := minutes[minute]

		row := models.StatsRow{
			Minute:     minute,
			Count:      b.count,
			ErrorCount: b.errorCount,
		}

		if key.signal == models.SignalSpans {
			sum := b.latencySumUs
			row.LatencySumUs = &sum

			if b.hasLatency {
				minUs, maxUs := b.latencyMinUs, b.latencyMaxUs
				row.LatencyMinUs = &minUs
				row.LatencyMaxUs = &maxUs
			}
		}

		rows = append(rows, row)
	}

	return rows
}
