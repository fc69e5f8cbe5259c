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

// Package sales defines the record types flowing through the mart
// pipeline and the translation from raw reader rows into them.
package sales

// TransactionRecord is one raw sales transaction. Immutable once read.
//
// Timestamp is kept as the original text. Downstream consumers slice
// the first 10 characters for the date; the representation does not
// round-trip through the catalog's native date type, so it stays text.
type TransactionRecord struct {
	TransactionID string
	Timestamp     string
	CustomerID    string
	Product       string
	Quantity      int64
	UnitPrice     float64
	Region        string
	TotalAmount   float64
}

// CustomerRecord is one row of the customer reference dimension.
// Read-only during a run.
type CustomerRecord struct {
	CustomerID     string
	AgeGroup       string
	MembershipTier string
	SignupDate     string
}

// EnrichedRecord is a TransactionRecord joined against the customer
// dimension plus the derived date parts. Customer fields are nil when
// the transaction's customer_id had no match; that is not an error.
//
// Year and Month are partition values: they live in the output path,
// not in the parquet file, which is why they are excluded from the
// parquet schema but still spill through CBOR.
type EnrichedRecord struct {
	TransactionID string  `parquet:"transaction_id" cbor:"transaction_id"`
	Timestamp     string  `parquet:"timestamp" cbor:"timestamp"`
	CustomerID    string  `parquet:"customer_id" cbor:"customer_id"`
	Product       string  `parquet:"product" cbor:"product"`
	Quantity      int64   `parquet:"quantity" cbor:"quantity"`
	UnitPrice     float64 `parquet:"unit_price" cbor:"unit_price"`
	Region        string  `parquet:"region" cbor:"region"`
	TotalAmount   float64 `parquet:"total_amount" cbor:"total_amount"`

	AgeGroup       *string `parquet:"age_group,optional" cbor:"age_group"`
	MembershipTier *string `parquet:"membership_tier,optional" cbor:"membership_tier"`
	SignupDate     *string `parquet:"signup_date,optional" cbor:"signup_date"`

	Year  int32 `parquet:"-" cbor:"year"`
	Month int32 `parquet:"-" cbor:"month"`
	Day   int32 `parquet:"day" cbor:"day"`
}

// TableName returns the catalog table name for enriched output.
func (EnrichedRecord) TableName() string {
	return "sales_enriched"
}

// Matched reports whether the record found its customer in the
// reference dimension.
func (r *EnrichedRecord) Matched() bool {
	return r.MembershipTier != nil
}

// SummaryRecord is one fully recomputed aggregate group. There is no
// incremental merge; every run rebuilds the whole summary mart.
type SummaryRecord struct {
	Region              string  `parquet:"region" cbor:"region"`
	Product             string  `parquet:"product" cbor:"product"`
	Year                int32   `parquet:"year" cbor:"year"`
	Month               int32   `parquet:"month" cbor:"month"`
	TotalRevenue        float64 `parquet:"total_revenue" cbor:"total_revenue"`
	TransactionCount    int64   `parquet:"transaction_count" cbor:"transaction_count"`
	AvgTransactionValue float64 `parquet:"avg_transaction_value" cbor:"avg_transaction_value"`
}

// TableName returns the catalog table name for summary output.
func (SummaryRecord) TableName() string {
	return "sales_summary"
}
