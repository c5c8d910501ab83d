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

// Package hotcache is the short-retention queryable store that bridges the
// gap between ingest and the durable columnar pipeline. Each environment
// owns one SQLite-backed Store with a single writer connection and a pool
// of readers; rows are evicted by age with a row-count cap as a safety
// bound.
package hotcache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/schema"
)

const defaultReadPoolSize = 4

// Options configures stores opened by a Manager.
type Options struct {
	// DataDir holds one SQLite file per environment. Empty means
	// in-memory stores.
	DataDir string

	// RetentionSeconds is the age after which rows are evicted,
	// measured against the ingestion timestamp.
	RetentionSeconds int64

	// MaxRows caps rows per table. Zero disables the cap.
	MaxRows int64

	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration

	// Clock overrides the eviction clock. Tests pin this.
	Clock func() time.Time

	Logger logger.Logger
}

func (o *Options) defaults() {
	if o.RetentionSeconds <= 0 {
		o.RetentionSeconds = models.DefaultRetentionSeconds
	}

	if o.RetentionSeconds > models.MaxRetentionSeconds {
		o.RetentionSeconds = models.MaxRetentionSeconds
	}

	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}

	if o.Clock == nil {
		o.Clock = time.Now
	}

	if o.Logger == nil {
		o.Logger = logger.NewTestLogger()
	}
}

// Store is the hot cache for one environment. Writes go through one
// dedicated connection behind a mutex; reads run concurrently on the pool.
type Store struct {
	env       string
	retention time.Duration
	maxRows   int64
	now       func() time.Time
	log       logger.Logger

	insertSQL map[string]string

	mu        sync.Mutex
	writeConn *sqlite.Conn
	closed    bool

	readPool *sqlitex.Pool
}

// OpenStore opens (creating if needed) the store for one environment.
func OpenStore(env string, opts Options) (*Store, error) {
	opts.defaults()

	uri := storeURI(env, opts.DataDir)

	writeConn, err := sqlite.OpenConn(uri,
		sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL|sqlite.OpenURI)
	if err != nil {
		return nil, &CacheError{Op: OpWrite, Environment: env, Err: err}
	}

	if err := createTables(writeConn); err != nil {
		_ = writeConn.Close()
		return nil, &CacheError{Op: OpWrite, Environment: env, Err: err}
	}

	readPool, err := sqlitex.NewPool(uri, sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenWAL | sqlite.OpenURI,
		PoolSize: defaultReadPoolSize,
	})
	if err != nil {
		_ = writeConn.Close()
		return nil, &CacheError{Op: OpRead, Environment: env, Err: err}
	}

	s := &Store{
		env:       env,
		retention: time.Duration(opts.RetentionSeconds) * time.Second,
		maxRows:   opts.MaxRows,
		now:       opts.Clock,
		log:       opts.Logger,
		insertSQL: buildInsertStatements(),
		writeConn: writeConn,
		readPool:  readPool,
	}

	return s, nil
}

// storeURI picks the database location: a file under dataDir, or a named
// shared-cache in-memory database so the writer and the read pool see the
// same data.
func storeURI(env, dataDir string) string {
	name := sanitizeEnv(env)

	if dataDir == "" {
		return fmt.Sprintf("file:otelgate-%s?mode=memory&cache=shared", name)
	}

	return "file:" + filepath.Join(dataDir, name+".db")
}

func sanitizeEnv(env string) string {
	var b strings.Builder

	for _, r := range env {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	if b.Len() == 0 {
		return "default"
	}

	return b.String()
}

func createTables(conn *sqlite.Conn) error {
	var script strings.Builder

	for _, table := range models.Tables() {
		sch, err := schema.ForTable(table)
		if err != nil {
			return err
		}

		script.WriteString("CREATE TABLE IF NOT EXISTS " + table + " (\n")
		script.WriteString("  id INTEGER PRIMARY KEY AUTOINCREMENT")

		for _, f := range sch.Fields {
			script.WriteString(",\n  " + f.Name + " " + sqliteType(f.Type))

			if f.Required {
				script.WriteString(" NOT NULL")
			}
		}

		script.WriteString("\n);\n")

		script.WriteString(fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp);\n", table, table))
		script.WriteString(fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_ingest ON %s (_timestamp_nanos);\n", table, table))
		script.WriteString(fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_service ON %s (service_name);\n", table, table))

		switch table {
		case "logs", "traces":
			script.WriteString(fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_trace ON %s (trace_id);\n", table, table))
		case "gauge", "sum":
			script.WriteString(fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_metric ON %s (metric_name);\n", table, table))
		}
	}

	return sqlitex.ExecuteScript(conn, script.String(), nil)
}

func sqliteType(t schema.FieldType) string {
	switch t {
	case schema.TypeInt64, schema.TypeInt32, schema.TypeBool:
		return "INTEGER"
	case schema.TypeFloat64:
		return "REAL"
	default:
		return "TEXT"
	}
}

func buildInsertStatements() map[string]string {
	stmts := make(map[string]string, len(models.Tables()))

	for _, table := range models.Tables() {
		sch, err := schema.ForTable(table)
		if err != nil {
			continue
		}

		names := make([]string, 0, len(sch.Fields))
		marks := make([]string, 0, len(sch.Fields))

		for _, f := range sch.Fields {
			names = append(names, f.Name)
			marks = append(marks, "?")
		}

		stmts[table] = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(names, ", "), strings.Join(marks, ", "))
	}

	return stmts
}

// Insert validates and stores rows, grouping them by destination table in
// one immediate transaction. Rows older than the retention window are
// lazily evicted afterwards on the same writer connection.
func (s *Store) Insert(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	grouped := models.GroupByTable(rows)

	for table, tableRows := range grouped {
		sch, err := schema.ForTable(table)
		if err != nil {
			return &CacheError{Op: OpWrite, Environment: s.env, Table: table, Err: err}
		}

		for _, row := range tableRows {
			if err := sch.Validate(row); err != nil {
				return &CacheError{Op: OpWrite, Environment: s.env, Table: table, Err: err}
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &CacheError{Op: OpWrite, Environment: s.env, Err: errStoreClosed}
	}

	restore := s.writeConn.SetInterrupt(ctx.Done())
	defer s.writeConn.SetInterrupt(restore)

	end, err := sqlitex.ImmediateTransaction(s.writeConn)
	if err != nil {
		return &CacheError{Op: OpWrite, Environment: s.env, Err: err}
	}

	insertErr := s.insertLocked(grouped)
	end(&insertErr)

	if insertErr != nil {
		return insertErr
	}

	s.evictLocked()

	return nil
}

func (s *Store) insertLocked(grouped map[string][]models.Row) error {
	for table, tableRows := range grouped {
		sch, _ := schema.ForTable(table)

		for _, row := range tableRows {
			args := make([]interface{}, 0, len(sch.Fields))
			for _, f := range sch.Fields {
				args = append(args, bindValue(row[f.Name]))
			}

			err := sqlitex.Execute(s.writeConn, s.insertSQL[table], &sqlitex.ExecOptions{Args: args})
			if err != nil {
				return &CacheError{Op: OpWrite, Environment: s.env, Table: table, Err: err}
			}
		}
	}

	return nil
}

// bindValue widens row scalars to the types the SQLite binder accepts.
func bindValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case int:
		return int64(x)
	default:
		return v
	}
}

// Query returns rows matching params, newest first.
func (s *Store) Query(ctx context.Context, params QueryParams) ([]models.Row, error) {
	params.Normalize()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	sch, _ := schema.ForTable(params.Table)
	where, args := params.whereClause()

	names := make([]string, 0, len(sch.Fields))
	for _, f := range sch.Fields {
		names = append(names, f.Name)
	}

	query := "SELECT " + strings.Join(names, ", ") + " FROM " + params.Table +
		where + " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, params.Limit)

	conn, err := s.readPool.Take(ctx)
	if err != nil {
		return nil, &CacheError{Op: OpRead, Environment: s.env, Table: params.Table, Err: err}
	}
	defer s.readPool.Put(conn)

	var out []models.Row

	err = sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, rowFromStmt(stmt, sch))
			return nil
		},
	})
	if err != nil {
		return nil, &CacheError{Op: OpRead, Environment: s.env, Table: params.Table, Err: err}
	}

	return out, nil
}

// Count returns how many rows match params, ignoring the limit.
func (s *Store) Count(ctx context.Context, params QueryParams) (int64, error) {
	params.Normalize()

	if err := params.Validate(); err != nil {
		return 0, err
	}

	where, args := params.whereClause()
	query := "SELECT COUNT(*) FROM " + params.Table + where

	conn, err := s.readPool.Take(ctx)
	if err != nil {
		return 0, &CacheError{Op: OpRead, Environment: s.env, Table: params.Table, Err: err}
	}
	defer s.readPool.Put(conn)

	var count int64

	err = sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, &CacheError{Op: OpRead, Environment: s.env, Table: params.Table, Err: err}
	}

	return count, nil
}

func rowFromStmt(stmt *sqlite.Stmt, sch *schema.Schema) models.Row {
	row := make(models.Row, len(sch.Fields))

	for i, f := range sch.Fields {
		if stmt.ColumnIsNull(i) {
			continue
		}

		switch f.Type {
		case schema.TypeInt64:
			row[f.Name] = stmt.ColumnInt64(i)
		case schema.TypeInt32:
			row[f.Name] = int32(stmt.ColumnInt64(i))
		case schema.TypeFloat64:
			row[f.Name] = stmt.ColumnFloat(i)
		case schema.TypeBool:
			row[f.Name] = stmt.ColumnInt64(i) != 0
		case schema.TypeString, schema.TypeJSON:
			row[f.Name] = stmt.ColumnText(i)
		}
	}

	return row
}

// Evict removes rows outside the retention window and enforces the row
// cap. It returns the number of rows removed.
func (s *Store) Evict(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, &CacheError{Op: OpWrite, Environment: s.env, Err: errStoreClosed}
	}

	restore := s.writeConn.SetInterrupt(ctx.Done())
	defer s.writeConn.SetInterrupt(restore)

	return s.evictLocked(), nil
}

func (s *Store) evictLocked() int64 {
	cutoff := s.now().Add(-s.retention).UnixNano()

	var removed int64

	for _, table := range models.Tables() {
		err := sqlitex.Execute(s.writeConn,
			"DELETE FROM "+table+" WHERE _timestamp_nanos < ?",
			&sqlitex.ExecOptions{Args: []interface{}{cutoff}})
		if err != nil {
			s.log.Error().Err(err).Str("table", table).Str("environment", s.env).
				Msg("Hot cache eviction failed")
			continue
		}

		removed += int64(s.writeConn.Changes())

		if s.maxRows <= 0 {
			continue
		}

		err = sqlitex.Execute(s.writeConn,
			"DELETE FROM "+table+" WHERE id NOT IN (SELECT id FROM "+table+" ORDER BY id DESC LIMIT ?)",
			&sqlitex.ExecOptions{Args: []interface{}{s.maxRows}})
		if err != nil {
			s.log.Error().Err(err).Str("table", table).Str("environment", s.env).
				Msg("Hot cache row cap enforcement failed")
			continue
		}

		removed += int64(s.writeConn.Changes())
	}

	return removed
}

// Close releases the writer connection and the read pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	poolErr := s.readPool.Close()
	connErr := s.writeConn.Close()

	if connErr != nil {
		return connErr
	}

	return poolErr
}
