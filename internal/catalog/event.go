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

package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileStat describes one written data file inside a partition.
type FileStat struct {
	Key         string `json:"key"`
	RecordCount int64  `json:"record_count"`
	FileSize    int64  `json:"file_size"`
	Fingerprint int64  `json:"fingerprint"`
}

// PartitionEvent announces one written partition (or a whole
// unpartitioned table). Year and Month are nil for unpartitioned
// tables.
type PartitionEvent struct {
	EventID   uuid.UUID  `json:"event_id"`
	EmittedAt time.Time  `json:"emitted_at"`
	RunID     string     `json:"run_id"`
	Table     TableSpec  `json:"table"`
	Year      *int32     `json:"year,omitempty"`
	Month     *int32     `json:"month,omitempty"`
	Location  string     `json:"location"`
	Files     []FileStat `json:"files"`
}

// RecordCount sums the file record counts.
func (e PartitionEvent) RecordCount() int64 {
	var n int64
	for _, f := range e.Files {
		n += f.RecordCount
	}
	return n
}

// PartitionLabel renders the partition for keys and logs:
// "sales_enriched/year=2025/month=1", or just the table name for
// unpartitioned events.
func (e PartitionEvent) PartitionLabel() string {
	if e.Year == nil || e.Month == nil {
		return e.Table.Name
	}
	return fmt.Sprintf("%s/year=%d/month=%d", e.Table.Name, *e.Year, *e.Month)
}
