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
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/carverauto/otelgate/pkg/models"
)

// FromTraces flattens every span into a 27-column row. Events and links
// expand into JSON array columns alongside their counts.
func (b *Builder) FromTraces(traces ptrace.Traces) []models.Row {
	rows := make([]models.Row, 0, traces.SpanCount())
	ingested := b.now().UnixNano()

	rss := traces.ResourceSpans()
	for i := 0; i < rss.Len(); i++ {
		rs := rss.At(i)
		service := serviceName(rs.Resource())
		resourceAttrs := attributesJSON(rs.Resource().Attributes())

		sss := rs.ScopeSpans()
		for j := 0; j < sss.Len(); j++ {
			ss := sss.At(j)
			scope := ss.Scope()
			scopeAttrs := attributesJSON(scope.Attributes())

			spans := ss.Spans()
			for k := 0; k < spans.Len(); k++ {
				span := spans.At(k)

				duration := int64(span.EndTimestamp()) - int64(span.StartTimestamp())
				if duration < 0 {
					duration = 0
				}

				row := models.Row{
					"_signal":                  string(models.SignalSpans),
					"_timestamp_nanos":         ingested,
					"timestamp":                millis(span.StartTimestamp()),
					"end_timestamp":            millis(span.EndTimestamp()),
					"duration":                 duration,
					"trace_id":                 span.TraceID().String(),
					"span_id":                  span.SpanID().String(),
					"trace_state":              span.TraceState().AsRaw(),
					"service_name":             service,
					"span_name":                span.Name(),
					"span_kind":                span.Kind().String(),
					"status_code":              span.Status().Code().String(),
					"status_message":           span.Status().Message(),
					"attributes":               attributesJSON(span.Attributes()),
					"resource_attributes":      resourceAttrs,
					"scope_name":               scope.Name(),
					"scope_version":            scope.Version(),
					"scope_attributes":         scopeAttrs,
					"events":                   spanEventsJSON(span.Events()),
					"links":                    spanLinksJSON(span.Links()),
					"events_count":             int32(span.Events().Len()),
					"links_count":              int32(span.Links().Len()),
					"dropped_attributes_count": int32(span.DroppedAttributesCount()),
					"dropped_events_count":     int32(span.DroppedEventsCount()),
					"dropped_links_count":      int32(span.DroppedLinksCount()),
					"flags":                    int32(span.Flags()),
				}

				if !span.ParentSpanID().IsEmpty() {
					row["parent_span_id"] = span.ParentSpanID().String()
				}

				rows = append(rows, row)
			}
		}
	}

	return rows
}

func spanEventsJSON(events ptrace.SpanEventSlice) string {
	out := make([]map[string]interface{}, 0, events.Len())

	for i := 0; i < events.Len(); i++ {
		ev := events.At(i)
		out = append(out, map[string]interface{}{
			"time_unix_nano": int64(ev.Timestamp()),
			"name":           ev.Name(),
			"attributes":     ev.Attributes().AsRaw(),
		})
	}

	return toJSON(out)
}

func spanLinksJSON(links ptrace.SpanLinkSlice) string {
	out := make([]map[string]interface{}, 0, links.Len())

	for i := 0; i < links.Len(); i++ {
		link := links.At(i)
		out = append(out, map[string]interface{}{
			"trace_id":    link.TraceID().String(),
			"span_id":     link.SpanID().String(),
			"trace_state": link.TraceState().AsRaw(),
			"attributes":  link.Attributes().AsRaw(),
		})
	}

	return toJSON(out)
}
