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

// Package martdb is the optional Postgres run ledger. It records one
// row per pipeline run and one row per partition attempt, upserted by
// partition label so re-runs overwrite rather than accumulate. The
// pipeline works without it; wiring it in gives schedulers something
// to query instead of parsing run reports.
package martdb

import (
	"context"
	"time"
)

// Run statuses, in lifecycle order.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Partition statuses. A failed partition still gets a row; it is the
// catalog announcement it never gets.
const (
	PartitionStatusWritten = "written"
	PartitionStatusFailed  = "failed"
)

// Ledger is the surface the pipeline runner needs.
type Ledger interface {
	InsertRun(ctx context.Context, params InsertRunParams) error
	FinishRun(ctx context.Context, params FinishRunParams) error
	UpsertPartition(ctx context.Context, params UpsertPartitionParams) error
	Close()
}

type InsertRunParams struct {
	RunID     string
	Job       string
	StartedAt time.Time
}

type FinishRunParams struct {
	RunID               string
	Status              string
	FinishedAt          time.Time
	InputRecords        int64
	OutputRecords       int64
	MalformedRecords    int64
	BadTimestampRecords int64
	UnmatchedRecords    int64
	TotalRevenue        float64
}

type UpsertPartitionParams struct {
	RunID       string
	Label       string
	TableName   string
	Year        *int32
	Month       *int32
	Status      string
	Location    string
	RecordCount int64
	FileSize    int64
	FileCount   int32
	Fingerprint int64
}

// RunRow mirrors the runs table.
type RunRow struct {
	RunID               string
	Job                 string
	Status              string
	StartedAt           time.Time
	FinishedAt          *time.Time
	InputRecords        int64
	OutputRecords       int64
	MalformedRecords    int64
	BadTimestampRecords int64
	UnmatchedRecords    int64
	TotalRevenue        float64
}

// PartitionRow mirrors the partitions table.
type PartitionRow struct {
	Label       string
	TableName   string
	Year        *int32
	Month       *int32
	RunID       string
	Status      string
	Location    string
	RecordCount int64
	FileSize    int64
	FileCount   int32
	Fingerprint int64
	UpdatedAt   time.Time
}
