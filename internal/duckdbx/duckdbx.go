// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package duckdbx wraps DuckDB for ad-hoc SQL over written marts.
// read_parquet with hive_partitioning covers everything the inspect
// commands need; no extensions are loaded.
package duckdbx

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type option func(*Config)

type Config struct {
	MemoryLimitMB int64
}

// WithMemoryLimitMB sets a memory limit for DuckDB in megabytes.
func WithMemoryLimitMB(limit int64) option {
	return func(c *Config) {
		c.MemoryLimitMB = limit
	}
}

type DB struct {
	db     *sql.DB
	config Config
}

// Open opens a DuckDB database with the given data source name and
// options. Use ":memory:" for a throwaway instance.
func Open(dataSourceName string, opts ...option) (*DB, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, err
	}

	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	return &DB{db: db, config: config}, nil
}

// Conn returns a new connection to the database, with any setup (such
// as setting memory limits) already performed.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.setupConn(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func (d *DB) setupConn(ctx context.Context, conn *sql.Conn) error {
	// Object cache lets repeated read_parquet calls reuse metadata.
	if _, err := conn.ExecContext(ctx, "PRAGMA enable_object_cache;"); err != nil {
		return fmt.Errorf("failed to enable object cache: %w", err)
	}

	if d.config.MemoryLimitMB > 0 {
		stmt := fmt.Sprintf("SET memory_limit='%dMB';", d.config.MemoryLimitMB)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set memory limit: %w", err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// QueryContext executes a query on a fresh connection and returns the
// rows along with the connection. The caller closes both, rows first.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, *sql.Conn, error) {
	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get duckdb connection: %w", err)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			return nil, nil, fmt.Errorf("query failed, and closing connection also failed: %v; %v", err, closeErr)
		}
		return nil, nil, fmt.Errorf("query execution failed: %w", err)
	}

	return rows, conn, nil
}

// ExecContext executes a statement on a fresh connection and returns
// the connection for reuse. The caller closes it.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, *sql.Conn, error) {
	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get duckdb connection: %w", err)
	}

	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			return nil, nil, fmt.Errorf("exec failed, and closing connection also failed: %v; %v", err, closeErr)
		}
		return nil, nil, fmt.Errorf("exec execution failed: %w", err)
	}

	return result, conn, nil
}
