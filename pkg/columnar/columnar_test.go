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

package columnar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/schema"
)

func logRow(body string) models.Row {
	return models.Row{
		"_signal":            "logs",
		"_timestamp_nanos":   int64(1700000100000000000),
		"timestamp":          int64(1700000000000),
		"observed_timestamp": int64(1700000001000),
		"service_name":       "checkout",
		"severity_number":    int32(9),
		"severity_text":      "INFO",
		"body":               body,
	}
}

func TestRowsToBatchColumnLayout(t *testing.T) {
	rec, err := RowsToBatch([]models.Row{logRow("a"), logRow("b")}, schema.Logs())
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(17), rec.NumCols())
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, "_signal", rec.ColumnName(0))
	assert.Equal(t, "dropped_attributes_count", rec.ColumnName(16))
}

func TestRowsToBatchEmptyKeepsSchema(t *testing.T) {
	rec, err := RowsToBatch(nil, schema.Traces())
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(27), rec.NumCols())
	assert.Equal(t, int64(0), rec.NumRows())
}

func TestRowsToBatchNullsOptionalColumns(t *testing.T) {
	rec, err := RowsToBatch([]models.Row{logRow("a")}, schema.Logs())
	require.NoError(t, err)
	defer rec.Release()

	traceIdx := -1

	for i := 0; i < int(rec.NumCols()); i++ {
		if rec.ColumnName(i) == "trace_id" {
			traceIdx = i
		}
	}

	require.GreaterOrEqual(t, traceIdx, 0)
	assert.True(t, rec.Column(traceIdx).IsNull(0))
}

func TestRowsToBatchMissingRequiredColumn(t *testing.T) {
	row := logRow("a")
	delete(row, "service_name")

	_, err := RowsToBatch([]models.Row{row}, schema.Logs())
	require.Error(t, err)

	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "service_name", convErr.Column)
	assert.Equal(t, 0, convErr.Row)
}

func TestRowsToBatchWrongType(t *testing.T) {
	row := logRow("a")
	row["severity_text"] = 12345

	_, err := RowsToBatch([]models.Row{row}, schema.Logs())
	require.Error(t, err)

	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "severity_text", convErr.Column)
}

func TestWriteParquetMagic(t *testing.T) {
	data, err := RowsToParquet([]models.Row{logRow("a")}, schema.Logs())
	require.NoError(t, err)
	require.Greater(t, len(data), 8)

	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestWriteParquetEmptyBatch(t *testing.T) {
	data, err := RowsToParquet(nil, schema.Sum())
	require.NoError(t, err)
	require.Greater(t, len(data), 8)

	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}
