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

package records

import (
	"go.opentelemetry.io/collector/pdata/pmetric"

	"github.com/carverauto/otelgate/pkg/models"
)

// FromMetrics flattens gauge and sum data points into rows. Histogram,
// exponential histogram and summary points have no representation in the
// fixed schemas; they are counted into the returned warning instead of
// being dropped silently. Points with no recorded value are counted too.
func (b *Builder) FromMetrics(metrics pmetric.Metrics) ([]models.Row, *models.SkippedMetricsWarning) {
	rows := make([]models.Row, 0, metrics.DataPointCount())
	ingested := b.now().UnixNano()

	var skipped models.SkippedMetricsWarning

	rms := metrics.ResourceMetrics()
	for i := 0; i < rms.Len(); i++ {
		rm := rms.At(i)
		service := serviceName(rm.Resource())
		resourceAttrs := attributesJSON(rm.Resource().Attributes())

		sms := rm.ScopeMetrics()
		for j := 0; j < sms.Len(); j++ {
			sm := sms.At(j)
			scope := sm.Scope()
			scopeAttrs := attributesJSON(scope.Attributes())

			ms := sm.Metrics()
			for k := 0; k < ms.Len(); k++ {
				metric := ms.At(k)

				ctx := metricContext{
					ingested:      ingested,
					service:       service,
					resourceAttrs: resourceAttrs,
					scopeName:     scope.Name(),
					scopeVersion:  scope.Version(),
					scopeAttrs:    scopeAttrs,
					metric:        metric,
				}

				switch metric.Type() {
				case pmetric.MetricTypeGauge:
					rows = ctx.appendNumberPoints(rows, metric.Gauge().DataPoints(), models.SignalGauge, nil, &skipped)
				case pmetric.MetricTypeSum:
					sum := metric.Sum()
					extra := models.Row{
						"aggregation_temporality": sum.AggregationTemporality().String(),
						"is_monotonic":            sum.IsMonotonic(),
					}
					rows = ctx.appendNumberPoints(rows, sum.DataPoints(), models.SignalSum, extra, &skipped)
				case pmetric.MetricTypeHistogram:
					skipped.Histograms += metric.Histogram().DataPoints().Len()
				case pmetric.MetricTypeExponentialHistogram:
					skipped.ExponentialHistograms += metric.ExponentialHistogram().DataPoints().Len()
				case pmetric.MetricTypeSummary:
					skipped.Summaries += metric.Summary().DataPoints().Len()
				case pmetric.MetricTypeEmpty:
				}
			}
		}
	}

	skipped.SkippedTotal = skipped.Histograms + skipped.ExponentialHistograms +
		skipped.Summaries + skipped.MissingValues

	if skipped.SkippedTotal == 0 {
		return rows, nil
	}

	skipped.Message = "some metric data points were skipped: only gauge and sum points with values are stored"

	return rows, &skipped
}

// metricContext carries the per-metric constants shared by every data
// point row of that metric.
type metricContext struct {
	ingested      int64
	service       string
	resourceAttrs string
	scopeName     string
	scopeVersion  string
	scopeAttrs    string
	metric        pmetric.Metric
}

func (c *metricContext) appendNumberPoints(rows []models.Row, dps pmetric.NumberDataPointSlice,
	signal models.Signal, extra models.Row, skipped *models.SkippedMetricsWarning) []models.Row {
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)

		var value float64

		switch dp.ValueType() {
		case pmetric.NumberDataPointValueTypeDouble:
			value = dp.DoubleValue()
		case pmetric.NumberDataPointValueTypeInt:
			value = float64(dp.IntValue())
		case pmetric.NumberDataPointValueTypeEmpty:
			skipped.MissingValues++
			continue
		}

		row := models.Row{
			"_signal":             string(signal),
			"_timestamp_nanos":    c.ingested,
			"timestamp":           millis(dp.Timestamp()),
			"start_timestamp":     millis(dp.StartTimestamp()),
			"metric_name":         c.metric.Name(),
			"metric_description":  c.metric.Description(),
			"metric_unit":         c.metric.Unit(),
			"value":               value,
			"service_name":        c.service,
			"metric_attributes":   attributesJSON(dp.Attributes()),
			"resource_attributes": c.resourceAttrs,
			"scope_name":          c.scopeName,
			"scope_version":       c.scopeVersion,
			"scope_attributes":    c.scopeAttrs,
			"exemplars":           exemplarsJSON(dp.Exemplars()),
			"flags":               int32(dp.Flags()),
		}

		for name, v := range extra {
			row[name] = v
		}

		rows = append(rows, row)
	}

	return rows
}

func exemplarsJSON(exemplars pmetric.ExemplarSlice) string {
	out := make([]map[string]interface{}, 0, exemplars.Len())

	for i := 0; i < exemplars.Len(); i++ {
		ex := exemplars.At(i)

		entry := map[string]interface{}{
			"time_unix_nano":      int64(ex.Timestamp()),
			"trace_id":            ex.TraceID().String(),
			"span_id":             ex.SpanID().String(),
			"filtered_attributes": ex.FilteredAttributes().AsRaw(),
		}

		switch ex.ValueType() {
		case pmetric.ExemplarValueTypeDouble:
			entry["value"] = ex.DoubleValue()
		case pmetric.ExemplarValueTypeInt:
			entry["value"] = ex.IntValue()
		case pmetric.ExemplarValueTypeEmpty:
		}

		out = append(out, entry)
	}

	return toJSON(out)
}
