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

// Package schema defines the fixed column layouts for the four telemetry
// tables. Schemas are immutable and resolved once at process start; every
// layer (record builder, hot cache, columnar encoder) works against the
// same definitions.
package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/carverauto/otelgate/pkg/models"
)

// FieldType enumerates the scalar column types a schema can carry. JSON
// columns hold serialized JSON and are stored as strings.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt64
	TypeInt32
	TypeFloat64
	TypeBool
	TypeJSON
)

// Field is one column: name, type and whether a row must carry it.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is the full column layout for one table. Column order is fixed
// and observable in every arrow batch and Parquet file produced from it.
type Schema struct {
	Table  string
	Fields []Field

	byName map[string]*Field
}

func newSchema(table string, fields []Field) *Schema {
	s := &Schema{
		Table:  table,
		Fields: fields,
		byName: make(map[string]*Field, len(fields)),
	}

	for i := range s.Fields {
		s.byName[s.Fields[i].Name] = &s.Fields[i]
	}

	return s
}

// Columns returns the number of columns in the schema.
func (s *Schema) Columns() int {
	return len(s.Fields)
}

// Field looks up a column definition by name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// ArrowSchema derives the arrow schema with the same column order.
// Optional columns are nullable; required columns are not.
func (s *Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(s.Fields))

	for _, f := range s.Fields {
		fields = append(fields, arrow.Field{
			Name:     f.Name,
			Type:     arrowType(f.Type),
			Nullable: !f.Required,
		})
	}

	return arrow.NewSchema(fields, nil)
}

func arrowType(t FieldType) arrow.DataType {
	switch t {
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeString, TypeJSON:
		return arrow.BinaryTypes.String
	default:
		return arrow.BinaryTypes.String
	}
}

// Validate checks that row carries every required column with a non-nil
// value. Unknown columns are rejected so a drifting producer fails loudly.
func (s *Schema) Validate(row models.Row) error {
	for _, f := range s.Fields {
		if !f.Required {
			continue
		}

		v, ok := row[f.Name]
		if !ok || v == nil {
			return fmt.Errorf("%w: table %s missing required column %q", ErrMissingColumn, s.Table, f.Name)
		}
	}

	for name := range row {
		if _, ok := s.byName[name]; !ok {
			return fmt.Errorf("%w: table %s has no column %q", ErrUnknownColumn, s.Table, name)
		}
	}

	return nil
}
