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
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/martrunner/internal/filereader"
	"github.com/cardinalhq/martrunner/internal/pipeline"
)

func customerReader(t *testing.T, lines ...string) filereader.Reader {
	t.Helper()
	reader, err := filereader.NewJSONLinesReader(
		io.NopCloser(strings.NewReader(strings.Join(lines, "\n"))), 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return reader
}

func TestBuildLookup(t *testing.T) {
	reader := customerReader(t,
		`{"customer_id":"CUST0001","age_group":"26-35","membership_tier":"Gold","signup_date":"2023-06-15"}`,
		`{"customer_id":"CUST0002","age_group":"56+","membership_tier":"Bronze","signup_date":"2022-01-01"}`,
	)

	lookup, stats, err := BuildLookup(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.Len())
	assert.Equal(t, int64(2), stats.RowsLoaded)
	assert.Equal(t, int64(0), stats.DuplicateKeys)
	assert.Equal(t, int64(0), stats.MalformedRows)

	rec, ok := lookup.Get("CUST0001")
	require.True(t, ok)
	assert.Equal(t, "Gold", rec.MembershipTier)
	assert.Equal(t, "26-35", rec.AgeGroup)

	_, ok = lookup.Get("CUST9999")
	assert.False(t, ok)

	_, ok = lookup.Get("")
	assert.False(t, ok)
}

func TestBuildLookupDuplicateLastWins(t *testing.T) {
	reader := customerReader(t,
		`{"customer_id":"CUST0001","membership_tier":"Bronze"}`,
		`{"customer_id":"CUST0001","membership_tier":"Platinum"}`,
	)

	lookup, stats, err := BuildLookup(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.Len())
	assert.Equal(t, int64(1), stats.RowsLoaded)
	assert.Equal(t, int64(1), stats.DuplicateKeys)

	rec, ok := lookup.Get("CUST0001")
	require.True(t, ok)
	assert.Equal(t, "Platinum", rec.MembershipTier)
}

func TestBuildLookupCountsMalformed(t *testing.T) {
	reader := customerReader(t,
		`{"customer_id":"CUST0001"}`,
		`{"customer_id":`,            // dropped by the reader
		`{"age_group":"26-35"}`,      // no customer_id, dropped by validation
		`{"customer_id":"CUST0002"}`,
	)

	lookup, stats, err := BuildLookup(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.Len())
	assert.Equal(t, int64(2), stats.MalformedRows)
}

func TestBuildLookupMultipleReaders(t *testing.T) {
	first := customerReader(t,
		`{"customer_id":"CUST0001","membership_tier":"Silver"}`,
		`{"customer_id":"CUST0002","membership_tier":"Gold"}`,
	)
	second := customerReader(t,
		`{"customer_id":"CUST0002","membership_tier":"Platinum"}`,
	)

	lookup, stats, err := BuildLookup(context.Background(), first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.Len())
	assert.Equal(t, int64(1), stats.DuplicateKeys)

	rec, ok := lookup.Get("CUST0002")
	require.True(t, ok)
	assert.Equal(t, "Platinum", rec.MembershipTier)
}

func TestBuildLookupReturnsBatches(t *testing.T) {
	reader := customerReader(t,
		`{"customer_id":"CUST0001"}`,
		`{"customer_id":"CUST0002"}`,
	)

	before := pipeline.GlobalBatchPoolStats()
	_, _, err := BuildLookup(context.Background(), reader)
	require.NoError(t, err)
	after := pipeline.GlobalBatchPoolStats()

	assert.Equal(t, before.Gets-before.Puts, after.Gets-after.Puts,
		"drained batches must go back to the pool")
}

func TestBuildLookupArrayInputIsFatal(t *testing.T) {
	reader := customerReader(t, `[{"customer_id":"CUST0001"}]`)

	_, _, err := BuildLookup(context.Background(), reader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON array")
}
