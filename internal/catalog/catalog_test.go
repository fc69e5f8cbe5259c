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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichedTableSpec(t *testing.T) {
	spec := EnrichedTableSpec("sales_enriched")

	assert.Equal(t, "sales_enriched", spec.Name)
	assert.True(t, spec.Partitioned())
	require.Len(t, spec.PartitionKeys, 2)
	assert.Equal(t, ColumnSpec{Name: "year", Type: "int"}, spec.PartitionKeys[0])
	assert.Equal(t, ColumnSpec{Name: "month", Type: "int"}, spec.PartitionKeys[1])

	byName := map[string]string{}
	for _, col := range spec.Columns {
		byName[col.Name] = col.Type
	}
	assert.Equal(t, "string", byName["timestamp"], "timestamp stays text for the substring convention")
	assert.Equal(t, "bigint", byName["quantity"])
	assert.Equal(t, "double", byName["total_amount"])
	assert.Equal(t, "string", byName["membership_tier"])

	// Partition keys are path-encoded, never data columns.
	assert.NotContains(t, byName, "year")
	assert.NotContains(t, byName, "month")
	assert.Contains(t, byName, "day")
}

func TestSummaryTableSpec(t *testing.T) {
	spec := SummaryTableSpec("sales_summary")

	assert.Equal(t, "sales_summary", spec.Name)
	assert.False(t, spec.Partitioned())

	byName := map[string]string{}
	for _, col := range spec.Columns {
		byName[col.Name] = col.Type
	}
	// Unpartitioned: year and month ride along as data columns.
	assert.Equal(t, "int", byName["year"])
	assert.Equal(t, "int", byName["month"])
	assert.Equal(t, "double", byName["total_revenue"])
	assert.Equal(t, "bigint", byName["transaction_count"])
	assert.Equal(t, "double", byName["avg_transaction_value"])
}

func TestPartitionLabel(t *testing.T) {
	year, month := int32(2025), int32(1)
	event := PartitionEvent{
		Table: EnrichedTableSpec("sales_enriched"),
		Year:  &year,
		Month: &month,
	}
	assert.Equal(t, "sales_enriched/year=2025/month=1", event.PartitionLabel())

	event = PartitionEvent{Table: SummaryTableSpec("sales_summary")}
	assert.Equal(t, "sales_summary", event.PartitionLabel())
}

func TestEventRecordCount(t *testing.T) {
	event := PartitionEvent{
		Files: []FileStat{
			{Key: "a", RecordCount: 10},
			{Key: "b", RecordCount: 5},
		},
	}
	assert.Equal(t, int64(15), event.RecordCount())

	assert.Zero(t, PartitionEvent{}.RecordCount())
}
