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

// Package catalog announces written partitions to downstream metadata
// consumers. Announcements are one-way: the run never reads the
// catalog back, and a partition that failed to write is never
// announced.
package catalog

// ColumnSpec is one column in a catalog table definition. Types use
// catalog vocabulary (string, bigint, double, int), not Go types.
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSpec describes a table as consumers should register it.
// PartitionKeys are path-encoded, not stored in the data files.
type TableSpec struct {
	Name          string       `json:"name"`
	Columns       []ColumnSpec `json:"columns"`
	PartitionKeys []ColumnSpec `json:"partition_keys,omitempty"`
}

// Partitioned reports whether the table carries partition keys.
func (t TableSpec) Partitioned() bool {
	return len(t.PartitionKeys) > 0
}

// EnrichedTableSpec is the catalog definition for the enriched
// transaction table. Timestamp stays a string: consumers slice its
// first 10 characters for the date.
func EnrichedTableSpec(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []ColumnSpec{
			{Name: "transaction_id", Type: "string"},
			{Name: "timestamp", Type: "string"},
			{Name: "customer_id", Type: "string"},
			{Name: "product", Type: "string"},
			{Name: "quantity", Type: "bigint"},
			{Name: "unit_price", Type: "double"},
			{Name: "region", Type: "string"},
			{Name: "total_amount", Type: "double"},
			{Name: "age_group", Type: "string"},
			{Name: "membership_tier", Type: "string"},
			{Name: "signup_date", Type: "string"},
			{Name: "day", Type: "int"},
		},
		PartitionKeys: []ColumnSpec{
			{Name: "year", Type: "int"},
			{Name: "month", Type: "int"},
		},
	}
}

// SummaryTableSpec is the catalog definition for the unpartitioned
// summary table.
func SummaryTableSpec(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []ColumnSpec{
			{Name: "region", Type: "string"},
			{Name: "product", Type: "string"},
			{Name: "year", Type: "int"},
			{Name: "month", Type: "int"},
			{Name: "total_revenue", Type: "double"},
			{Name: "transaction_count", Type: "bigint"},
			{Name: "avg_transaction_value", Type: "double"},
		},
	}
}
