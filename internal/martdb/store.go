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

package martdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides all functions to execute ledger queries.
type Store struct {
	connPool *pgxpool.Pool
}

var _ Ledger = (*Store)(nil)

// NewStore creates a new Store.
func NewStore(connPool *pgxpool.Pool) *Store {
	return &Store{connPool: connPool}
}

func (store *Store) Pool() *pgxpool.Pool {
	return store.connPool
}

// Close closes the connection pool.
func (store *Store) Close() {
	if store.connPool != nil {
		store.connPool.Close()
	}
}

const insertRunSQL = `
INSERT INTO runs (run_id, job, status, started_at)
VALUES ($1, $2, $3, $4)`

func (store *Store) InsertRun(ctx context.Context, params InsertRunParams) error {
	_, err := store.connPool.Exec(ctx, insertRunSQL,
		params.RunID, params.Job, RunStatusRunning, params.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", params.RunID, err)
	}
	return nil
}

const finishRunSQL = `
UPDATE runs SET
  status = $2,
  finished_at = $3,
  input_records = $4,
  output_records = $5,
  malformed_records = $6,
  bad_timestamp_records = $7,
  unmatched_records = $8,
  total_revenue = $9
WHERE run_id = $1`

func (store *Store) FinishRun(ctx context.Context, params FinishRunParams) error {
	tag, err := store.connPool.Exec(ctx, finishRunSQL,
		params.RunID, params.Status, params.FinishedAt,
		params.InputRecords, params.OutputRecords,
		params.MalformedRecords, params.BadTimestampRecords,
		params.UnmatchedRecords, params.TotalRevenue)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", params.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not found", params.RunID)
	}
	return nil
}

const upsertPartitionSQL = `
INSERT INTO partitions (
  label, table_name, year, month, run_id, status, location,
  record_count, file_size, file_count, fingerprint, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
ON CONFLICT (label) DO UPDATE SET
  run_id = EXCLUDED.run_id,
  status = EXCLUDED.status,
  location = EXCLUDED.location,
  record_count = EXCLUDED.record_count,
  file_size = EXCLUDED.file_size,
  file_count = EXCLUDED.file_count,
  fingerprint = EXCLUDED.fingerprint,
  updated_at = now()`

func (store *Store) UpsertPartition(ctx context.Context, params UpsertPartitionParams) error {
	_, err := store.connPool.Exec(ctx, upsertPartitionSQL,
		params.Label, params.TableName, params.Year, params.Month,
		params.RunID, params.Status, params.Location,
		params.RecordCount, params.FileSize, params.FileCount,
		params.Fingerprint)
	if err != nil {
		return fmt.Errorf("failed to upsert partition %s: %w", params.Label, err)
	}
	return nil
}

const getRunSQL = `
SELECT run_id, job, status, started_at, finished_at,
  input_records, output_records, malformed_records,
  bad_timestamp_records, unmatched_records, total_revenue
FROM runs WHERE run_id = $1`

func (store *Store) GetRun(ctx context.Context, runID string) (RunRow, error) {
	var row RunRow
	err := store.connPool.QueryRow(ctx, getRunSQL, runID).Scan(
		&row.RunID, &row.Job, &row.Status, &row.StartedAt, &row.FinishedAt,
		&row.InputRecords, &row.OutputRecords, &row.MalformedRecords,
		&row.BadTimestampRecords, &row.UnmatchedRecords, &row.TotalRevenue)
	if err != nil {
		return RunRow{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return row, nil
}

const listPartitionsSQL = `
SELECT label, table_name, year, month, run_id, status, location,
  record_count, file_size, file_count, fingerprint, updated_at
FROM partitions
WHERE table_name = $1
ORDER BY year NULLS FIRST, month NULLS FIRST`

func (store *Store) ListPartitions(ctx context.Context, tableName string) ([]PartitionRow, error) {
	rows, err := store.connPool.Query(ctx, listPartitionsSQL, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions for %s: %w", tableName, err)
	}
	defer rows.Close()

	var items []PartitionRow
	for rows.Next() {
		var row PartitionRow
		if err := rows.Scan(
			&row.Label, &row.TableName, &row.Year, &row.Month,
			&row.RunID, &row.Status, &row.Location,
			&row.RecordCount, &row.FileSize, &row.FileCount,
			&row.Fingerprint, &row.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
