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

package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/otelgate/pkg/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestAggregator(clock *fakeClock, retentionMinutes int64) *Aggregator {
	return NewAggregator(Options{
		RetentionMinutes: retentionMinutes,
		Clock:            clock.Now,
	})
}

func logRow(service string, severity int32) models.Row {
	return models.Row{
		"_signal":         "logs",
		"service_name":    service,
		"severity_number": severity,
	}
}

func spanRow(service, status string, durationNs int64) models.Row {
	return models.Row{
		"_signal":      "spans",
		"service_name": service,
		"status_code":  status,
		"duration":     durationNs,
	}
}

func TestRecordCountsLogErrors(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 60)

	agg.Record([]models.Row{
		logRow("checkout", 9),
		logRow("checkout", 17),
		logRow("checkout", 21),
	})

	rows := agg.Query("checkout", models.SignalLogs, nil, nil)
	require.Len(t, rows, 1)

	assert.Equal(t, clock.now.UnixMilli()/60_000, rows[0].Minute)
	assert.Equal(t, int64(3), rows[0].Count)
	assert.Equal(t, int64(2), rows[0].ErrorCount, "severity 17 and above is an error")
	assert.Nil(t, rows[0].LatencySumUs)
	assert.Nil(t, rows[0].LatencyMinUs)
	assert.Nil(t, rows[0].LatencyMaxUs)
}

func TestRecordTracksSpanLatency(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 60)

	agg.Record([]models.Row{
		spanRow("checkout", "Ok", 1_000_000),
		spanRow("checkout", "Error", 5_000_000),
		spanRow("checkout", "Unset", 2_000_000),
	})

	rows := agg.Query("checkout", models.SignalSpans, nil, nil)
	require.Len(t, rows, 1)

	assert.Equal(t, int64(3), rows[0].Count)
	assert.Equal(t, int64(1), rows[0].ErrorCount)

	require.NotNil(t, rows[0].LatencySumUs)
	assert.Equal(t, int64(8000), *rows[0].LatencySumUs)

	require.NotNil(t, rows[0].LatencyMinUs)
	assert.Equal(t, int64(1000), *rows[0].LatencyMinUs)

	require.NotNil(t, rows[0].LatencyMaxUs)
	assert.Equal(t, int64(5000), *rows[0].LatencyMaxUs)
}

func TestRecordIgnoresMetricRows(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 60)

	agg.Record([]models.Row{
		{"_signal": "gauge", "service_name": "checkout", "metric_name": "cpu"},
		{"_signal": "sum", "service_name": "checkout", "metric_name": "reqs"},
	})

	assert.Empty(t, agg.Query("checkout", models.SignalLogs, nil, nil))
	assert.Empty(t, agg.Services(models.SignalLogs, nil, nil))
}

func TestMinuteBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 60)

	agg.Record([]models.Row{logRow("checkout", 9)})

	clock.Advance(time.Minute)
	agg.Record([]models.Row{logRow("checkout", 9), logRow("checkout", 17)})

	rows := agg.Query("checkout", models.SignalLogs, nil, nil)
	require.Len(t, rows, 2)

	assert.Equal(t, rows[0].Minute+1, rows[1].Minute, "oldest minute first")
	assert.Equal(t, int64(1), rows[0].Count)
	assert.Equal(t, int64(2), rows[1].Count)
}

func TestQueryMinuteBounds(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 60)

	first := clock.now.UnixMilli() / 60_000

	for i := 0; i < 3; i++ {
		agg.Record([]models.Row{logRow("checkout", 9)})
		clock.Advance(time.Minute)
	}

	from := first + 1
	to := first + 1

	rows := agg.Query("checkout", models.SignalLogs, &from, &to)
	require.Len(t, rows, 1)
	assert.Equal(t, first+1, rows[0].Minute)
}

func TestRetentionPrunesOldMinutes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 5)

	agg.Record([]models.Row{logRow("checkout", 9)})

	clock.Advance(10 * time.Minute)
	agg.Record([]models.Row{logRow("checkout", 9)})

	rows := agg.Query("checkout", models.SignalLogs, nil, nil)
	require.Len(t, rows, 1, "the bucket outside the retention window is pruned")
	assert.Equal(t, clock.now.UnixMilli()/60_000, rows[0].Minute)
}

func TestServicesSortedByName(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	agg := newTestAggregator(clock, 60)

	agg.Record([]models.Row{
		logRow("checkout", 9),
		logRow("billing", 21),
		spanRow("checkout", "Ok", 1_000_000),
	})

	services := agg.Services(models.SignalLogs, nil, nil)
	require.Len(t, services, 2, "span aggregates stay out of the logs listing")

	assert.Equal(t, "billing", services[0].Service)
	assert.Equal(t, "checkout", services[1].Service)
	require.Len(t, services[0].Stats, 1)
	assert.Equal(t, int64(1), services[0].Stats[0].ErrorCount)
}

func TestRetentionClamp(t *testing.T) {
	agg := NewAggregator(Options{RetentionMinutes: -1})
	assert.Equal(t, models.DefaultStatsRetentionMinutes, agg.retention)

	agg = NewAggregator(Options{RetentionMinutes: models.MaxStatsRetentionMinutes + 1})
	assert.Equal(t, models.MaxStatsRetentionMinutes, agg.retention)
}
