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

package duckdbx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMemoryLimitOption(t *testing.T) {
	var cfg Config
	WithMemoryLimitMB(256)(&cfg)
	require.Equal(t, int64(256), cfg.MemoryLimitMB)
}

func TestGlobs(t *testing.T) {
	assert.Equal(t, "/marts/salesmart/enriched/year=*/month=*/*.parquet",
		EnrichedGlob("/marts/salesmart"))
	assert.Equal(t, "/marts/salesmart/summary/*.parquet",
		SummaryGlob("/marts/salesmart"))
}

func TestEscapeSingle(t *testing.T) {
	assert.Equal(t, "it''s", escapeSingle("it's"))
	assert.Equal(t, "plain", escapeSingle("plain"))
}

func TestOpenQueryClose(t *testing.T) {
	db, err := Open(":memory:", WithMemoryLimitMB(256))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, conn, err := db.QueryContext(context.Background(), "SELECT 41 + 1")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rows.Close()
		_ = conn.Close()
	})

	require.True(t, rows.Next())
	var got int
	require.NoError(t, rows.Scan(&got))
	assert.Equal(t, 42, got)
}

func TestCreateMartViewsRejectsBadNames(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	err = CreateMartViews(ctx, conn, t.TempDir(), "sales enriched; DROP", "sales_summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid view name")
}

func TestCreateMartViews(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	root := t.TempDir()
	enrichedDir := filepath.Join(root, "enriched", "year=2025", "month=1")
	summaryDir := filepath.Join(root, "summary")
	require.NoError(t, os.MkdirAll(enrichedDir, 0o755))
	require.NoError(t, os.MkdirAll(summaryDir, 0o755))

	_, err = conn.ExecContext(ctx, fmt.Sprintf(
		`COPY (SELECT 'T1' AS transaction_id, '2025-01-05 10:00:00' AS "timestamp", 100.0 AS total_amount)
		 TO '%s' (FORMAT parquet)`,
		escapeSingle(filepath.ToSlash(filepath.Join(enrichedDir, "part-00000.snappy.parquet")))))
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, fmt.Sprintf(
		`COPY (SELECT 'North' AS region, 100.0 AS total_revenue, 2025 AS year, 1 AS month)
		 TO '%s' (FORMAT parquet)`,
		escapeSingle(filepath.ToSlash(filepath.Join(summaryDir, "part-00000.snappy.parquet")))))
	require.NoError(t, err)

	require.NoError(t, CreateMartViews(ctx, conn, root, "sales_enriched", "sales_summary"))

	// Hive partition values come back as columns; day stays a
	// substring of the text timestamp.
	var year int
	var day string
	err = conn.QueryRowContext(ctx,
		`SELECT year, substr("timestamp", 1, 10) FROM sales_enriched LIMIT 1`).Scan(&year, &day)
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, "2025-01-05", day)

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT count(*) FROM sales_summary`).Scan(&n))
	assert.Equal(t, 1, n)
}
