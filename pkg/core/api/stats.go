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
	"errors"
	"net/http"

	"github.com/carverauto/otelgate/pkg/models"
)

var errUnaggregatedSignal = errors.New("signal must be logs or traces")

// handleStats serves per-service RED aggregates. signal is required and
// must be logs or traces; from and to bound the minute index (epoch
// milliseconds / 60000) inclusively. Without a service parameter the
// response covers every known service, sorted by name.
func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, "Stats aggregation is not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()

	signal, err := statsSignal(q.Get("signal"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	from, err := parseOptionalInt(q.Get("from"), "from")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	to, err := parseOptionalInt(q.Get("to"), "to")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var response interface{}

	if service := q.Get("service"); service != "" {
		response = s.stats.Query(service, signal, from, to)
	} else {
		response = s.stats.Services(signal, from, to)
	}

	if err := s.encodeJSONResponse(w, response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode stats response")
	}
}

// statsSignal maps the public signal parameter to the aggregated signal
// kind. Metric signals have no request semantics to aggregate.
func statsSignal(raw string) (models.Signal, error) {
	switch raw {
	case "logs":
		return models.SignalLogs, nil
	case "traces":
		return models.SignalSpans, nil
	default:
		return "", errUnaggregatedSignal
	}
}
