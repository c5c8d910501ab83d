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

// Package records flattens decoded pdata telemetry into schema-conformant
// rows. One log record, span or metric data point becomes one row; nested
// attribute maps and span events/links serialize into JSON string columns.
package records

import (
	"encoding/json"
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
)

// serviceNameFallback is used when a resource carries no service.name.
const serviceNameFallback = "unknown"

// Builder converts pdata models into rows, stamping each row with the
// ingestion wall clock.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder on the system clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder on the given clock. Tests use this
// to pin _timestamp_nanos.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// serviceName pulls service.name out of resource attributes.
func serviceName(resource pcommon.Resource) string {
	if v, ok := resource.Attributes().Get("service.name"); ok && v.Str() != "" {
		return v.Str()
	}

	return serviceNameFallback
}

// attributesJSON serializes an attribute map to a JSON object string.
func attributesJSON(attrs pcommon.Map) string {
	return toJSON(attrs.AsRaw())
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}

	return string(data)
}

// millis converts a pdata timestamp to epoch milliseconds.
func millis(ts pcommon.Timestamp) int64 {
	return int64(ts) / int64(time.Millisecond)
}
