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
	"sort"

	"github.com/axiomhq/hyperloglog"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/martrunner/internal/sales"
)

// unmatchedSampleLimit bounds the sample of unmatched customer ids kept
// for the run report.
const unmatchedSampleLimit = 20

// Joiner performs the left outer join of transactions against the
// customer dimension. Every transaction survives: a miss yields nil
// customer fields, never a dropped record. Not safe for concurrent use.
type Joiner struct {
	lookup          CustomerLookup
	matched         int64
	unmatched       int64
	distinct        *hyperloglog.Sketch
	unmatchedSample mapset.Set[string]
}

// NewJoiner creates a Joiner over the given lookup.
func NewJoiner(lookup CustomerLookup) *Joiner {
	return &Joiner{
		lookup:          lookup,
		distinct:        hyperloglog.New14(),
		unmatchedSample: mapset.NewThreadUnsafeSet[string](),
	}
}

// Enrich joins one transaction. The returned record always carries the
// transaction fields; customer fields are set only on a match.
func (j *Joiner) Enrich(rec sales.TransactionRecord) sales.EnrichedRecord {
	out := sales.EnrichedRecord{
		TransactionID: rec.TransactionID,
		Timestamp:     rec.Timestamp,
		CustomerID:    rec.CustomerID,
		Product:       rec.Product,
		Quantity:      rec.Quantity,
		UnitPrice:     rec.UnitPrice,
		Region:        rec.Region,
		TotalAmount:   rec.TotalAmount,
	}

	if rec.CustomerID != "" {
		j.distinct.Insert([]byte(rec.CustomerID))
	}

	cust, ok := j.lookup.Get(rec.CustomerID)
	if !ok {
		j.unmatched++
		if rec.CustomerID != "" && j.unmatchedSample.Cardinality() < unmatchedSampleLimit {
			j.unmatchedSample.Add(rec.CustomerID)
		}
		return out
	}

	j.matched++
	out.AgeGroup = &cust.AgeGroup
	out.MembershipTier = &cust.MembershipTier
	out.SignupDate = &cust.SignupDate
	return out
}

// JoinStats summarizes join behavior for the run report.
type JoinStats struct {
	Matched           int64    `json:"matched"`
	Unmatched         int64    `json:"unmatched"`
	DistinctCustomers uint64   `json:"distinct_customers"` // estimated
	UnmatchedSample   []string `json:"unmatched_sample,omitempty"`
}

// Stats returns the join counters accumulated so far. The unmatched
// sample is sorted for stable output.
func (j *Joiner) Stats() JoinStats {
	sample := j.unmatchedSample.ToSlice()
	sort.Strings(sample)
	return JoinStats{
		Matched:           j.matched,
		Unmatched:         j.unmatched,
		DistinctCustomers: j.distinct.Estimate(),
		UnmatchedSample:   sample,
	}
}
