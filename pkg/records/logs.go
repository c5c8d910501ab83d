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
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/carverauto/otelgate/pkg/models"
)

// FromLogs flattens every log record into a 17-column row. A record with a
// zero timestamp inherits the observed timestamp so the required columns
// are always populated.
func (b *Builder) FromLogs(logs plog.Logs) []models.Row {
	rows := make([]models.Row, 0, logs.LogRecordCount())
	ingested := b.now().UnixNano()

	rls := logs.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		rl := rls.At(i)
		service := serviceName(rl.Resource())
		resourceAttrs := attributesJSON(rl.Resource().Attributes())

		sls := rl.ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			sl := sls.At(j)
			scope := sl.Scope()
			scopeAttrs := attributesJSON(scope.Attributes())

			lrs := sl.LogRecords()
			for k := 0; k < lrs.Len(); k++ {
				lr := lrs.At(k)

				ts := millis(lr.Timestamp())
				observed := millis(lr.ObservedTimestamp())

				if ts == 0 {
					ts = observed
				}

				row := models.Row{
					"_signal":                  string(models.SignalLogs),
					"_timestamp_nanos":         ingested,
					"timestamp":                ts,
					"observed_timestamp":       observed,
					"service_name":             service,
					"severity_number":          int32(lr.SeverityNumber()),
					"severity_text":            lr.SeverityText(),
					"body":                     lr.Body().AsString(),
					"flags":                    int32(lr.Flags()),
					"attributes":               attributesJSON(lr.Attributes()),
					"resource_attributes":      resourceAttrs,
					"scope_name":               scope.Name(),
					"scope_version":            scope.Version(),
					"scope_attributes":         scopeAttrs,
					"dropped_attributes_count": int32(lr.DroppedAttributesCount()),
				}

				if !lr.TraceID().IsEmpty() {
					row["trace_id"] = lr.TraceID().String()
				}

				if !lr.SpanID().IsEmpty() {
					row["span_id"] = lr.SpanID().String()
				}

				rows = append(rows, row)
			}
		}
	}

	return rows
}
