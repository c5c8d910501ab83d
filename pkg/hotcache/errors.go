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

package hotcache

import (
	"errors"
	"fmt"
)

// Operation names for CacheError.Op.
const (
	OpRead  = "read"
	OpWrite = "write"
)

var (
	// ErrTraceIDFilter is returned for a trace_id filter on a metric table.
	ErrTraceIDFilter = errors.New("trace_id filter is only valid for logs and traces")

	// ErrMetricFilter is returned for metric_name or label filters on a
	// non-metric table.
	ErrMetricFilter = errors.New("metric filters are only valid for gauge and sum")

	errStoreClosed = errors.New("hot cache store is closed")
)

// CacheError wraps a storage failure with enough context to tell read
// failures from write failures per environment and table.
type CacheError struct {
	Op          string
	Environment string
	Table       string
	Err         error
}

func (e *CacheError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("hot cache %s (env %s): %v", e.Op, e.Environment, e.Err)
	}

	return fmt.Sprintf("hot cache %s (env %s, table %s): %v", e.Op, e.Environment, e.Table, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
