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

package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/martrunner/config"
	"github.com/cardinalhq/martrunner/internal/cloudstorage"
	"github.com/cardinalhq/martrunner/internal/duckdbx"
	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

func GetSQLCmd() *cobra.Command {
	var (
		mart  string
		query string
	)

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Run SQL over a written mart with DuckDB",
		Long: `Exposes a mart as two DuckDB views and runs one query over them:
"enriched" reads the partitioned layout with hive_partitioning, so year
and month come back as columns; "summary" reads the unpartitioned
aggregate table. Remote marts are staged to the temp dir first.

The timestamp column is text; slice it rather than casting, e.g.
  SELECT substr(timestamp, 1, 10) AS day, count(*) FROM enriched GROUP BY day`,
		RunE: func(c *cobra.Command, _ []string) error {
			return runSQL(c.Context(), mart, query)
		},
	}

	cmd.Flags().StringVar(&mart, "mart", "", "Mart root URI (the run's target prefix)")
	if err := cmd.MarkFlagRequired("mart"); err != nil {
		panic(fmt.Errorf("failed to mark mart flag as required: %w", err))
	}

	cmd.Flags().StringVar(&query, "query", "", "SQL to execute over the enriched/summary views")
	if err := cmd.MarkFlagRequired("query"); err != nil {
		panic(fmt.Errorf("failed to mark query flag as required: %w", err))
	}

	return cmd
}

func runSQL(ctx context.Context, mart, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	root, cleanup, err := localMartRoot(ctx, mart)
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := duckdbx.Open(":memory:", duckdbx.WithMemoryLimitMB(cfg.DuckDB.MemoryLimitMB))
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := duckdbx.CreateMartViews(ctx, conn, root, "enriched", "summary"); err != nil {
		return err
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]any, len(cols))
	scanArgs := make([]any, len(values))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		jsonBytes, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("error marshaling row to JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
	}
	return rows.Err()
}

// localMartRoot makes the mart readable from the local filesystem.
// Local marts are used in place; remote marts are staged under a temp
// dir preserving the partition layout, since DuckDB here only reads
// local files.
func localMartRoot(ctx context.Context, mart string) (string, func(), error) {
	loc, err := storageprofile.ParseURI(mart)
	if err != nil {
		return "", nil, err
	}

	if loc.Profile.CloudProvider == storageprofile.CloudFile {
		return filepath.Join(loc.Profile.Bucket, filepath.FromSlash(loc.Key)), func() {}, nil
	}

	client, err := cloudstorage.NewCloudManagers(ctx).NewClient(ctx, loc.Profile)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	stageDir, err := os.MkdirTemp("", "martrunner-inspect-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(stageDir) }

	keys, err := client.ListObjects(ctx, loc.Profile.Bucket, loc.Key)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to list %s: %w", mart, err)
	}
	if len(keys) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("no objects under %s", mart)
	}

	for _, key := range keys {
		rel := strings.TrimPrefix(strings.TrimPrefix(key, loc.Key), "/")
		dest := filepath.Join(stageDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			cleanup()
			return "", nil, err
		}

		tmp, _, notFound, err := client.DownloadObject(ctx, filepath.Dir(dest), loc.Profile.Bucket, key)
		if err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to stage %s: %w", key, err)
		}
		if notFound {
			// Deleted between list and download; a re-run is racing us.
			continue
		}
		if err := os.Rename(tmp, dest); err != nil {
			cleanup()
			return "", nil, err
		}
	}

	return stageDir, cleanup, nil
}
