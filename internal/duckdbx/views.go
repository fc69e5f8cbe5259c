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
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnrichedGlob matches every part file under the hive year/month
// layout rooted at the mart directory.
func EnrichedGlob(root string) string {
	return filepath.ToSlash(root) + "/enriched/year=*/month=*/*.parquet"
}

// SummaryGlob matches the unpartitioned summary part files.
func SummaryGlob(root string) string {
	return filepath.ToSlash(root) + "/summary/*.parquet"
}

// CreateMartViews exposes a written mart as two named views. The
// enriched view reads with hive_partitioning so year and month come
// back as columns; the summary table carries them as data already.
func CreateMartViews(ctx context.Context, conn *sql.Conn, root, enrichedView, summaryView string) error {
	for _, name := range []string{enrichedView, summaryView} {
		if !identRe.MatchString(name) {
			return fmt.Errorf("invalid view name %q", name)
		}
	}

	enrichedSQL := fmt.Sprintf(
		`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet('%s', hive_partitioning = 1)`,
		enrichedView, escapeSingle(EnrichedGlob(root)))
	if _, err := conn.ExecContext(ctx, enrichedSQL); err != nil {
		return fmt.Errorf("failed to create view %s: %w", enrichedView, err)
	}

	summarySQL := fmt.Sprintf(
		`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet('%s')`,
		summaryView, escapeSingle(SummaryGlob(root)))
	if _, err := conn.ExecContext(ctx, summarySQL); err != nil {
		return fmt.Errorf("failed to create view %s: %w", summaryView, err)
	}

	return nil
}

func escapeSingle(s string) string {
	var result []byte
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			result = append(result, '\'', '\'')
		} else {
			result = append(result, s[i])
		}
	}
	return string(result)
}
