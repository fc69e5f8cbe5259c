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

package martbuild

import (
	"time"

	"github.com/cardinalhq/martrunner/internal/catalog"
	"github.com/cardinalhq/martrunner/internal/enrich"
)

// Run and partition statuses as they appear in the report. The ledger
// uses the same vocabulary.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"

	PartitionWritten = "written"
	PartitionFailed  = "failed"
)

// RunReport is the user-visible account of one run, printed as JSON by
// the run command and persisted to the ledger when configured.
type RunReport struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Target     string    `json:"target"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ElapsedMS  int64     `json:"elapsed_ms"`

	Input     InputStats        `json:"input"`
	Reference ReferenceStats    `json:"reference"`
	Join      enrich.JoinStats  `json:"join"`
	Output    OutputStats       `json:"output"`
	Enriched  []PartitionReport `json:"partitions"`
	Summary   *PartitionReport  `json:"summary,omitempty"`
}

// InputStats counts the transaction feed.
type InputStats struct {
	SalesFiles    int   `json:"sales_files"`
	RowsRead      int64 `json:"rows_read"` // data rows in the files, malformed included
	Malformed     int64 `json:"malformed"`
	BadTimestamps int64 `json:"bad_timestamps"`
}

// ReferenceStats counts the customer dimension build.
type ReferenceStats struct {
	CustomerFiles int   `json:"customer_files"`
	Customers     int64 `json:"customers"`
	DuplicateKeys int64 `json:"duplicate_keys"`
	Malformed     int64 `json:"malformed"`
}

// OutputStats roll up what the run produced.
type OutputStats struct {
	EnrichedRecords   int64   `json:"enriched_records"`
	SummaryGroups     int     `json:"summary_groups"`
	TotalRevenue      float64 `json:"total_revenue"`
	PartitionsWritten int     `json:"partitions_written"`
	PartitionsFailed  int     `json:"partitions_failed"`
}

// PartitionReport describes one output unit: an enriched (year, month)
// partition or the unpartitioned summary table.
type PartitionReport struct {
	Label    string             `json:"label"`
	Status   string             `json:"status"`
	Location string             `json:"location,omitempty"`
	Records  int64              `json:"records"`
	Files    []catalog.FileStat `json:"files,omitempty"`
	Error    string             `json:"error,omitempty"`
}
