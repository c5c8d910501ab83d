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
	"fmt"
	"strings"

	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/schema"
)

const (
	// DefaultLimit applies when a query asks for no explicit limit.
	DefaultLimit int64 = 100

	// MaxLimit bounds a single query result.
	MaxLimit int64 = 10000
)

// QueryParams selects rows from one table. All filters are ANDed.
// Start/end bounds apply to the event timestamp column (epoch millis),
// both inclusive.
type QueryParams struct {
	Table      string
	StartTime  *int64
	EndTime    *int64
	TraceID    string
	MetricName string
	Labels     []models.LabelPair
	Limit      int64
}

// Normalize fills defaults: empty table means logs, a non-positive limit
// means DefaultLimit, and the limit is clamped to MaxLimit.
func (p *QueryParams) Normalize() {
	if p.Table == "" {
		p.Table = "logs"
	}

	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Validate rejects filter combinations that can never match: trace
// filters on metric tables and metric filters elsewhere. Invalid
// combinations fail before storage is touched.
func (p *QueryParams) Validate() error {
	if _, err := schema.ForTable(p.Table); err != nil {
		return fmt.Errorf("%w: %q", schema.ErrUnknownTable, p.Table)
	}

	isMetric := p.Table == "gauge" || p.Table == "sum"

	if p.TraceID != "" && isMetric {
		return ErrTraceIDFilter
	}

	if (p.MetricName != "" || len(p.Labels) > 0) && !isMetric {
		return ErrMetricFilter
	}

	return nil
}

// whereClause renders the filter conditions and their bind arguments.
// Label filters match serialized JSON key/value pairs inside the
// metric_attributes column.
func (p *QueryParams) whereClause() (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if p.StartTime != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, *p.StartTime)
	}

	if p.EndTime != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, *p.EndTime)
	}

	if p.TraceID != "" {
		conds = append(conds, "trace_id = ?")
		args = append(args, p.TraceID)
	}

	if p.MetricName != "" {
		conds = append(conds, "metric_name = ?")
		args = append(args, p.MetricName)
	}

	for _, label := range p.Labels {
		conds = append(conds, `metric_attributes LIKE ? ESCAPE '\'`)
		args = append(args, fmt.Sprintf(`%%"%s":"%s"%%`, escapeLike(label.Key), escapeLike(label.Value)))
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE metacharacters so label keys and values
// containing % or _ match literally instead of acting as wildcards.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
