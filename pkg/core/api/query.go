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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/carverauto/otelgate/pkg/hotcache"
	"github.com/carverauto/otelgate/pkg/models"
)

// handleQuery serves hot cache lookups. GET passes filters as query
// parameters; POST accepts the same request as a JSON body. count=true
// returns the matching row count instead of the rows.
func (s *APIServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, "Hot cache is not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	params, countOnly, err := parseQueryRequest(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	params.Normalize()

	if err := params.Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	store, err := s.cache.Get(s.environment(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to open hot cache")
		writeError(w, "Failed to open hot cache", http.StatusInternalServerError)

		return
	}

	if countOnly {
		count, err := store.Count(ctx, params)
		if err != nil {
			s.logger.Error().Err(err).Str("table", params.Table).Msg("Count query failed")
			writeError(w, "Query failed", http.StatusInternalServerError)

			return
		}

		if err := s.encodeJSONResponse(w, models.CountResponse{Count: count}); err != nil {
			s.logger.Error().Err(err).Msg("Failed to encode count response")
		}

		return
	}

	rows, err := store.Query(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("table", params.Table).Msg("Query failed")
		writeError(w, "Query failed", http.StatusInternalServerError)

		return
	}

	if rows == nil {
		rows = []models.Row{}
	}

	if err := s.encodeJSONResponse(w, models.QueryResponse{Results: rows}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode query response")
	}
}

// parseQueryRequest extracts filter parameters from either the JSON body
// (POST) or the URL query string (GET). count is a query parameter in
// both cases.
func parseQueryRequest(r *http.Request) (hotcache.QueryParams, bool, error) {
	countOnly := strings.EqualFold(r.URL.Query().Get("count"), "true")

	if r.Method == http.MethodPost {
		var req models.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return hotcache.QueryParams{}, false, fmt.Errorf("invalid query request: %w", err)
		}

		return hotcache.QueryParams{
			Table:      req.Table,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			TraceID:    req.TraceID,
			MetricName: req.MetricName,
			Labels:     req.Labels,
			Limit:      req.Limit,
		}, countOnly, nil
	}

	return queryParamsFromURL(r)
}

func queryParamsFromURL(r *http.Request) (hotcache.QueryParams, bool, error) {
	q := r.URL.Query()

	params := hotcache.QueryParams{
		Table:      q.Get("table"),
		TraceID:    q.Get("trace_id"),
		MetricName: q.Get("metric_name"),
	}

	var err error

	if params.StartTime, err = parseOptionalInt(q.Get("start_time"), "start_time"); err != nil {
		return params, false, err
	}

	if params.EndTime, err = parseOptionalInt(q.Get("end_time"), "end_time"); err != nil {
		return params, false, err
	}

	if raw := q.Get("limit"); raw != "" {
		params.Limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, false, fmt.Errorf("invalid limit %q", raw)
		}
	}

	if params.Labels, err = parseLabels(q.Get("labels")); err != nil {
		return params, false, err
	}

	return params, strings.EqualFold(q.Get("count"), "true"), nil
}

func parseOptionalInt(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}

	return &v, nil
}

// parseLabels parses a comma separated key=value list.
func parseLabels(raw string) ([]models.LabelPair, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	labels := make([]models.LabelPair, 0, len(parts))

	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid label filter %q, expected key=value", part)
		}

		labels = append(labels, models.LabelPair{Key: key, Value: value})
	}

	return labels, nil
}
