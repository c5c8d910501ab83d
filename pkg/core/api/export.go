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
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carverauto/otelgate/pkg/columnar"
	"github.com/carverauto/otelgate/pkg/schema"
)

const parquetContentType = "application/vnd.apache.parquet"

// exportHandler serves one table's hot cache contents as a Parquet file.
// It accepts the same filter query parameters as /api/query.
func (s *APIServer) exportHandler(table string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cache == nil {
			writeError(w, "Hot cache is not configured", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		params, _, err := queryParamsFromURL(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		params.Table = table
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

		rows, err := store.Query(ctx, params)
		if err != nil {
			s.logger.Error().Err(err).Str("table", table).Msg("Export query failed")
			writeError(w, "Query failed", http.StatusInternalServerError)

			return
		}

		if len(rows) == 0 {
			writeError(w, fmt.Sprintf("No cached data for table %s", table), http.StatusNotFound)
			return
		}

		tableSchema, err := schema.ForTable(table)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := columnar.RowsToParquet(rows, tableSchema)
		if err != nil {
			s.logger.Error().Err(err).Str("table", table).Msg("Parquet encoding failed")
			writeError(w, "Failed to encode Parquet file", http.StatusInternalServerError)

			return
		}

		filename := fmt.Sprintf("%s-%d.parquet", table, time.Now().Unix())

		w.Header().Set("Content-Type", parquetContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("X-Query-Row-Count", strconv.Itoa(len(rows)))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))

		if _, err := w.Write(data); err != nil {
			s.logger.Error().Err(err).Str("table", table).Msg("Failed to write Parquet response")
		}
	}
}
