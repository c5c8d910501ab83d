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
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/carverauto/otelgate/pkg/decode"
	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/pipeline"
)

// maxBodyBytes caps the decompressed request body.
const maxBodyBytes = 10 << 20

var errBodyTooLarge = errors.New("request body exceeds 10MiB limit")

func (s *APIServer) handleIngestLogs(w http.ResponseWriter, r *http.Request) {
	s.handleIngest(w, r, func(payload []byte, format decode.Format) ([]models.Row, *models.SkippedMetricsWarning, error) {
		logs, err := decode.DecodeLogs(payload, format)
		if err != nil {
			return nil, nil, err
		}

		return s.builder.FromLogs(logs), nil, nil
	})
}

func (s *APIServer) handleIngestTraces(w http.ResponseWriter, r *http.Request) {
	s.handleIngest(w, r, func(payload []byte, format decode.Format) ([]models.Row, *models.SkippedMetricsWarning, error) {
		traces, err := decode.DecodeTraces(payload, format)
		if err != nil {
			return nil, nil, err
		}

		return s.builder.FromTraces(traces), nil, nil
	})
}

func (s *APIServer) handleIngestMetrics(w http.ResponseWriter, r *http.Request) {
	s.handleIngest(w, r, func(payload []byte, format decode.Format) ([]models.Row, *models.SkippedMetricsWarning, error) {
		metrics, err := decode.DecodeMetrics(payload, format)
		if err != nil {
			return nil, nil, err
		}

		rows, warning := s.builder.FromMetrics(metrics)

		return rows, warning, nil
	})
}

// buildFunc decodes one signal's payload into schema-conformant rows.
type buildFunc func(payload []byte, format decode.Format) ([]models.Row, *models.SkippedMetricsWarning, error)

// handleIngest is the shared ingest path: read, decode, cache, fan out to
// live tail subscribers, then deliver downstream. The hot cache write is
// the only hard failure after a successful decode; delivery problems are
// reported per table in the response instead.
func (s *APIServer) handleIngest(w http.ResponseWriter, r *http.Request, build buildFunc) {
	ctx, cancel := requestContext(r)
	defer cancel()

	payload, err := readBody(r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}

		writeError(w, "Failed to read request body", http.StatusBadRequest)

		return
	}

	format := decode.FormatFromContentType(r.Header.Get("Content-Type"))

	rows, warning, err := build(payload, format)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected undecodable payload")
		writeError(w, err.Error(), http.StatusBadRequest)

		return
	}

	env := s.environment(r)

	if s.cache != nil && len(rows) > 0 {
		store, err := s.cache.Get(env)
		if err != nil {
			s.logger.Error().Err(err).Str("environment", env).Msg("Failed to open hot cache")
			writeError(w, "Failed to open hot cache", http.StatusInternalServerError)

			return
		}

		if err := store.Insert(ctx, rows); err != nil {
			s.logger.Error().Err(err).Str("environment", env).Msg("Failed to cache records")
			writeError(w, "Failed to cache records", http.StatusInternalServerError)

			return
		}
	}

	if s.hub != nil {
		s.hub.Publish(rows)
	}

	if s.stats != nil {
		s.stats.Record(rows)
	}

	grouped := models.GroupByTable(rows)
	result := s.sender.SendAll(ctx, grouped)

	response := models.IngestResponse{
		Status:   ingestStatus(grouped, result),
		Records:  make(map[string]int, len(grouped)),
		Warnings: warning,
	}

	for table, tableRows := range grouped {
		response.Records[table] = len(tableRows)
	}

	if !result.OK() {
		response.Errors = make(map[string]string, len(result.Failed))
		for table, failErr := range result.Failed {
			response.Errors[table] = failErr.Error()
		}
	}

	if err := s.encodeJSONResponse(w, response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode ingest response")
	}
}

// ingestStatus summarizes delivery: ok when every table delivered,
// error when every table failed, partial otherwise.
func ingestStatus(grouped map[string][]models.Row, result pipeline.SendResult) string {
	if result.OK() {
		return "ok"
	}

	if len(result.Failed) >= len(grouped) {
		return "error"
	}

	return "partial"
}

// readBody drains the request body, transparently inflating gzip.
func readBody(r *http.Request) ([]byte, error) {
	var reader io.Reader = r.Body

	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()

		reader = gz
	}

	payload, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}

	if len(payload) > maxBodyBytes {
		return nil, errBodyTooLarge
	}

	return payload, nil
}
