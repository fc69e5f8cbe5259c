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

package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/martrunner/internal/pipeline"
)

func validTransactionRow() pipeline.Row {
	return pipeline.Row{
		"transaction_id": "TXN000001",
		"timestamp":      "2025-01-05 10:30:00",
		"customer_id":    "CUST0001",
		"product":        "Laptop",
		"quantity":       int64(2),
		"unit_price":     499.99,
		"region":         "North",
		"total_amount":   999.98,
	}
}

func TestTransactionFromRow(t *testing.T) {
	rec, err := TransactionFromRow(validTransactionRow())
	require.NoError(t, err)
	assert.Equal(t, "TXN000001", rec.TransactionID)
	assert.Equal(t, "2025-01-05 10:30:00", rec.Timestamp)
	assert.Equal(t, "CUST0001", rec.CustomerID)
	assert.Equal(t, "Laptop", rec.Product)
	assert.Equal(t, int64(2), rec.Quantity)
	assert.InDelta(t, 499.99, rec.UnitPrice, 0.0001)
	assert.Equal(t, "North", rec.Region)
	assert.InDelta(t, 999.98, rec.TotalAmount, 0.0001)
}

func TestTransactionFromRowBlankCustomerOK(t *testing.T) {
	row := validTransactionRow()
	row["customer_id"] = ""
	rec, err := TransactionFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "", rec.CustomerID)

	delete(row, "customer_id")
	rec, err = TransactionFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "", rec.CustomerID)
}

func TestTransactionFromRowMissingRequired(t *testing.T) {
	for _, field := range []string{
		"transaction_id", "timestamp", "product", "region",
		"quantity", "unit_price", "total_amount",
	} {
		row := validTransactionRow()
		delete(row, field)
		_, err := TransactionFromRow(row)
		assert.Error(t, err, "field %s", field)
		assert.Contains(t, err.Error(), field)
	}
}

func TestTransactionFromRowBadNumeric(t *testing.T) {
	row := validTransactionRow()
	row["quantity"] = "two"
	_, err := TransactionFromRow(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")

	row = validTransactionRow()
	row["unit_price"] = "cheap"
	_, err = TransactionFromRow(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_price")
}

func TestTransactionFromRowNumericCoercion(t *testing.T) {
	row := validTransactionRow()
	row["quantity"] = float64(3) // JSON decoders produce float64
	row["total_amount"] = int64(100)
	rec, err := TransactionFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Quantity)
	assert.InDelta(t, 100.0, rec.TotalAmount, 0.0001)
}

func TestTransactionFromRowTrimsWhitespace(t *testing.T) {
	row := validTransactionRow()
	row["transaction_id"] = "  TXN000009  "
	row["customer_id"] = " CUST0002 "
	rec, err := TransactionFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "TXN000009", rec.TransactionID)
	assert.Equal(t, "CUST0002", rec.CustomerID)
}

func TestCustomerFromRow(t *testing.T) {
	rec, err := CustomerFromRow(pipeline.Row{
		"customer_id":     "CUST0042",
		"age_group":       "26-35",
		"membership_tier": "Gold",
		"signup_date":     "2023-06-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "CUST0042", rec.CustomerID)
	assert.Equal(t, "26-35", rec.AgeGroup)
	assert.Equal(t, "Gold", rec.MembershipTier)
	assert.Equal(t, "2023-06-15", rec.SignupDate)
}

func TestCustomerFromRowRequiresID(t *testing.T) {
	_, err := CustomerFromRow(pipeline.Row{"age_group": "56+"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer_id")
}

func TestCustomerFromRowOptionalFieldsDefault(t *testing.T) {
	rec, err := CustomerFromRow(pipeline.Row{"customer_id": "CUST0001"})
	require.NoError(t, err)
	assert.Equal(t, "", rec.AgeGroup)
	assert.Equal(t, "", rec.MembershipTier)
	assert.Equal(t, "", rec.SignupDate)
}

func TestEnrichedRecordMatched(t *testing.T) {
	var rec EnrichedRecord
	assert.False(t, rec.Matched())

	tier := "Silver"
	rec.MembershipTier = &tier
	assert.True(t, rec.Matched())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "sales_enriched", EnrichedRecord{}.TableName())
	assert.Equal(t, "sales_summary", SummaryRecord{}.TableName())
}
