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

package schema

import "errors"

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownColumn = errors.New("unknown column")
	ErrUnknownTable  = errors.New("unknown table")
)

var (
	logsSchema   *Schema
	tracesSchema *Schema
	gaugeSchema  *Schema
	sumSchema    *Schema
)

func init() {
	logsSchema = newSchema("logs", []Field{
		{Name: "_signal", Type: TypeString, Required: true},
		{Name: "_timestamp_nanos", Type: TypeInt64, Required: true},
		{Name: "timestamp", Type: TypeInt64, Required: true},
		{Name: "observed_timestamp", Type: TypeInt64, Required: true},
		{Name: "service_name", Type: TypeString, Required: true},
		{Name: "severity_number", Type: TypeInt32, Required: true},
		{Name: "severity_text", Type: TypeString, Required: true},
		{Name: "body", Type: TypeString},
		{Name: "trace_id", Type: TypeString},
		{Name: "span_id", Type: TypeString},
		{Name: "flags", Type: TypeInt32},
		{Name: "attributes", Type: TypeJSON},
		{Name: "resource_attributes", Type: TypeJSON},
		{Name: "scope_name", Type: TypeString},
		{Name: "scope_version", Type: TypeString},
		{Name: "scope_attributes", Type: TypeJSON},
		{Name: "dropped_attributes_count", Type: TypeInt32},
	})

	tracesSchema = newSchema("traces", []Field{
		{Name: "_signal", Type: TypeString, Required: true},
		{Name: "_timestamp_nanos", Type: TypeInt64, Required: true},
		{Name: "timestamp", Type: TypeInt64, Required: true},
		{Name: "end_timestamp", Type: TypeInt64, Required: true},
		{Name: "duration", Type: TypeInt64, Required: true},
		{Name: "trace_id", Type: TypeString, Required: true},
		{Name: "span_id", Type: TypeString, Required: true},
		{Name: "parent_span_id", Type: TypeString},
		{Name: "trace_state", Type: TypeString},
		{Name: "service_name", Type: TypeString, Required: true},
		{Name: "span_name", Type: TypeString, Required: true},
		{Name: "span_kind", Type: TypeString, Required: true},
		{Name: "status_code", Type: TypeString, Required: true},
		{Name: "status_message", Type: TypeString},
		{Name: "attributes", Type: TypeJSON},
		{Name: "resource_attributes", Type: TypeJSON},
		{Name: "scope_name", Type: TypeString},
		{Name: "scope_version", Type: TypeString},
		{Name: "scope_attributes", Type: TypeJSON},
		{Name: "events", Type: TypeJSON},
		{Name: "links", Type: TypeJSON},
		{Name: "events_count", Type: TypeInt32},
		{Name: "links_count", Type: TypeInt32},
		{Name: "dropped_attributes_count", Type: TypeInt32},
		{Name: "dropped_events_count", Type: TypeInt32},
		{Name: "dropped_links_count", Type: TypeInt32},
		{Name: "flags", Type: TypeInt32},
	})

	gaugeSchema = newSchema("gauge", metricFields(nil))

	sumSchema = newSchema("sum", metricFields([]Field{
		{Name: "aggregation_temporality", Type: TypeString, Required: true},
		{Name: "is_monotonic", Type: TypeBool, Required: true},
	}))
}

// metricFields builds the shared gauge column set plus any sum-specific
// extras appended at the end.
func metricFields(extra []Field) []Field {
	fields := []Field{
		{Name: "_signal", Type: TypeString, Required: true},
		{Name: "_timestamp_nanos", Type: TypeInt64, Required: true},
		{Name: "timestamp", Type: TypeInt64, Required: true},
		{Name: "start_timestamp", Type: TypeInt64},
		{Name: "metric_name", Type: TypeString, Required: true},
		{Name: "metric_description", Type: TypeString},
		{Name: "metric_unit", Type: TypeString},
		{Name: "value", Type: TypeFloat64, Required: true},
		{Name: "service_name", Type: TypeString, Required: true},
		{Name: "metric_attributes", Type: TypeJSON},
		{Name: "resource_attributes", Type: TypeJSON},
		{Name: "scope_name", Type: TypeString},
		{Name: "scope_version", Type: TypeString},
		{Name: "scope_attributes", Type: TypeJSON},
		{Name: "exemplars", Type: TypeJSON},
		{Name: "flags", Type: TypeInt32},
	}

	return append(fields, extra...)
}

// Logs returns the 17-column log schema.
func Logs() *Schema { return logsSchema }

// Traces returns the 27-column span schema.
func Traces() *Schema { return tracesSchema }

// Gauge returns the 16-column gauge metric schema.
func Gauge() *Schema { return gaugeSchema }

// Sum returns the 18-column sum metric schema.
func Sum() *Schema { return sumSchema }

// ForTable resolves a schema by table name.
func ForTable(table string) (*Schema, error) {
	switch table {
	case "logs":
		return logsSchema, nil
	case "traces":
		return tracesSchema, nil
	case "gauge":
		return gaugeSchema, nil
	case "sum":
		return sumSchema, nil
	default:
		return nil, ErrUnknownTable
	}
}
