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

package helpers

import (
	"fmt"
	"path"
)

// Mart object layout. Partition values live in the path, hive style, so
// catalog-driven readers can prune partitions without opening files.
// Part numbering is deterministic within a run; re-runs land on the
// same names, which is what makes partition overwrite idempotent.

const (
	EnrichedPrefix = "enriched"
	SummaryPrefix  = "summary"
)

// PartFileName returns the deterministic name of the nth part file.
func PartFileName(part int) string {
	return fmt.Sprintf("part-%05d.snappy.parquet", part)
}

// MakePartitionDir returns the object-store directory for one
// (year, month) partition of the enriched mart.
func MakePartitionDir(prefix string, year, month int32) string {
	return path.Join(
		prefix,
		EnrichedPrefix,
		fmt.Sprintf("year=%d", year),
		fmt.Sprintf("month=%d", month),
	)
}

// MakePartitionObjectID returns the full object key for one part file of
// a (year, month) partition.
func MakePartitionObjectID(prefix string, year, month int32, part int) string {
	return path.Join(MakePartitionDir(prefix, year, month), PartFileName(part))
}

// MakeSummaryDir returns the object-store directory for the
// unpartitioned summary mart.
func MakeSummaryDir(prefix string) string {
	return path.Join(prefix, SummaryPrefix)
}

// MakeSummaryObjectID returns the full object key for one part file of
// the summary mart.
func MakeSummaryObjectID(prefix string, part int) string {
	return path.Join(MakeSummaryDir(prefix), PartFileName(part))
}
