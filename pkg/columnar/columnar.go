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

// Package columnar converts flat rows into arrow record batches and
// serializes them to Parquet. Column order and count always follow the
// table schema, including for empty batches.
package columnar

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/schema"
)

// ConvertError reports a value that does not fit its column.
type ConvertError struct {
	Table  string
	Column string
	Row    int
	Err    error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("convert table %s column %s row %d: %v", e.Table, e.Column, e.Row, e.Err)
}

func (e *ConvertError) Unwrap() error { return e.Err }

// RowsToBatch builds an arrow record from rows using the table schema.
// Missing optional columns become nulls; a missing required column or a
// value of the wrong type fails the whole batch.
func RowsToBatch(rows []models.Row, s *schema.Schema) (arrow.Record, error) {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, s.ArrowSchema())
	defer builder.Release()

	for col, field := range s.Fields {
		fb := builder.Field(col)

		for i, row := range rows {
			value, ok := row[field.Name]
			if !ok || value == nil {
				if field.Required {
					return nil, &ConvertError{
						Table: s.Table, Column: field.Name, Row: i,
						Err: schema.ErrMissingColumn,
					}
				}

				fb.AppendNull()

				continue
			}

			if err := appendValue(fb, field.Type, value); err != nil {
				return nil, &ConvertError{Table: s.Table, Column: field.Name, Row: i, Err: err}
			}
		}
	}

	return builder.NewRecord(), nil
}

func appendValue(fb array.Builder, t schema.FieldType, value interface{}) error {
	switch t {
	case schema.TypeInt64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}

		fb.(*array.Int64Builder).Append(v)
	case schema.TypeInt32:
		v, err := toInt64(value)
		if err != nil {
			return err
		}

		fb.(*array.Int32Builder).Append(int32(v))
	case schema.TypeFloat64:
		switch v := value.(type) {
		case float64:
			fb.(*array.Float64Builder).Append(v)
		case int64:
			fb.(*array.Float64Builder).Append(float64(v))
		default:
			return fmt.Errorf("%w: %T is not a float", errBadValue, value)
		}
	case schema.TypeBool:
		v, ok := value.(bool)
		if !ok {
			// SQLite stores booleans as integers.
			n, err := toInt64(value)
			if err != nil {
				return fmt.Errorf("%w: %T is not a bool", errBadValue, value)
			}

			v = n != 0
		}

		fb.(*array.BooleanBuilder).Append(v)
	case schema.TypeString, schema.TypeJSON:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %T is not a string", errBadValue, value)
		}

		fb.(*array.StringBuilder).Append(v)
	}

	return nil
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", errBadValue, value)
	}
}

// WriteParquet serializes one record batch to an in-memory Parquet file.
// No compression codec is applied; consumers on the cold path expect plain
// pages.
func WriteParquet(rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Uncompressed))

	w, err := pqarrow.NewFileWriter(rec.Schema(), &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write parquet row group: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}

	return buf.Bytes(), nil
}

// RowsToParquet is the composed hot path: rows to batch to Parquet bytes.
func RowsToParquet(rows []models.Row, s *schema.Schema) ([]byte, error) {
	rec, err := RowsToBatch(rows, s)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	return WriteParquet(rec)
}
