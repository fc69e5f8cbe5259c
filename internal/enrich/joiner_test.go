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

package enrich

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/martrunner/internal/sales"
)

func testLookup() *MapLookup {
	return &MapLookup{customers: map[string]sales.CustomerRecord{
		"CUST0001": {
			CustomerID:     "CUST0001",
			AgeGroup:       "26-35",
			MembershipTier: "Gold",
			SignupDate:     "2023-06-15",
		},
	}}
}

func testTransaction(customerID string) sales.TransactionRecord {
	return sales.TransactionRecord{
		TransactionID: "TXN000001",
		Timestamp:     "2025-01-05 10:30:00",
		CustomerID:    customerID,
		Product:       "Laptop",
		Quantity:      2,
		UnitPrice:     499.99,
		Region:        "North",
		TotalAmount:   999.98,
	}
}

func TestJoinerMatch(t *testing.T) {
	j := NewJoiner(testLookup())
	out := j.Enrich(testTransaction("CUST0001"))

	assert.True(t, out.Matched())
	require.NotNil(t, out.AgeGroup)
	assert.Equal(t, "26-35", *out.AgeGroup)
	require.NotNil(t, out.MembershipTier)
	assert.Equal(t, "Gold", *out.MembershipTier)
	require.NotNil(t, out.SignupDate)
	assert.Equal(t, "2023-06-15", *out.SignupDate)

	assert.Equal(t, "TXN000001", out.TransactionID)
	assert.Equal(t, "North", out.Region)
	assert.InDelta(t, 999.98, out.TotalAmount, 0.0001)

	stats := j.Stats()
	assert.Equal(t, int64(1), stats.Matched)
	assert.Equal(t, int64(0), stats.Unmatched)
}

func TestJoinerUnmatchedKeepsTransaction(t *testing.T) {
	j := NewJoiner(testLookup())
	out := j.Enrich(testTransaction("CUST9999"))

	assert.False(t, out.Matched())
	assert.Nil(t, out.AgeGroup)
	assert.Nil(t, out.MembershipTier)
	assert.Nil(t, out.SignupDate)
	assert.Equal(t, "TXN000001", out.TransactionID)

	stats := j.Stats()
	assert.Equal(t, int64(1), stats.Unmatched)
	assert.Equal(t, []string{"CUST9999"}, stats.UnmatchedSample)
}

func TestJoinerBlankCustomerID(t *testing.T) {
	j := NewJoiner(testLookup())
	out := j.Enrich(testTransaction(""))

	assert.False(t, out.Matched())
	stats := j.Stats()
	assert.Equal(t, int64(1), stats.Unmatched)
	assert.Empty(t, stats.UnmatchedSample)
}

func TestJoinerRecordsAreIndependent(t *testing.T) {
	j := NewJoiner(testLookup())
	a := j.Enrich(testTransaction("CUST0001"))
	b := j.Enrich(testTransaction("CUST0001"))

	*a.MembershipTier = "mutated"
	assert.Equal(t, "Gold", *b.MembershipTier)
}

func TestJoinerDistinctEstimate(t *testing.T) {
	j := NewJoiner(testLookup())
	for i := range 10 {
		tx := testTransaction(fmt.Sprintf("CUST%04d", i%3+1))
		tx.TransactionID = fmt.Sprintf("TXN%06d", i)
		j.Enrich(tx)
	}

	stats := j.Stats()
	assert.Equal(t, uint64(3), stats.DistinctCustomers)
}

func TestJoinerSampleBounded(t *testing.T) {
	j := NewJoiner(testLookup())
	for i := range 50 {
		j.Enrich(testTransaction(fmt.Sprintf("MISSING%03d", i)))
	}

	stats := j.Stats()
	assert.Equal(t, int64(50), stats.Unmatched)
	assert.Len(t, stats.UnmatchedSample, unmatchedSampleLimit)
}
