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

// Package aggregate builds the summary mart from the enriched stream.
// Accumulation is a single map of running sums, so input order never
// changes the result, and every run recomputes the whole summary from
// scratch rather than merging into a previous one.
package aggregate

import (
	"sort"

	"github.com/cardinalhq/martrunner/internal/sales"
)

type groupKey struct {
	region  string
	product string
	year    int32
	month   int32
}

type bucket struct {
	revenue float64
	count   int64
}

// Aggregator accumulates one bucket per (region, product, year, month)
// group. Not safe for concurrent use; the streaming pass is single
// threaded.
type Aggregator struct {
	groups       map[groupKey]*bucket
	totalRevenue float64
	totalCount   int64
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{groups: make(map[groupKey]*bucket)}
}

// Add folds one enriched record into its group.
func (a *Aggregator) Add(rec *sales.EnrichedRecord) {
	key := groupKey{
		region:  rec.Region,
		product: rec.Product,
		year:    rec.Year,
		month:   rec.Month,
	}
	b, ok := a.groups[key]
	if !ok {
		b = &bucket{}
		a.groups[key] = b
	}
	b.revenue += rec.TotalAmount
	b.count++
	a.totalRevenue += rec.TotalAmount
	a.totalCount++
}

// GroupCount returns the number of distinct groups seen.
func (a *Aggregator) GroupCount() int {
	return len(a.groups)
}

// TotalRevenue returns the revenue summed across every record added.
// Group revenues must add back up to this; the runner checks.
func (a *Aggregator) TotalRevenue() float64 {
	return a.totalRevenue
}

// TotalCount returns the number of records added.
func (a *Aggregator) TotalCount() int64 {
	return a.totalCount
}

// Finalize computes the averages and returns the summary rows ordered
// by (year, month, region, product). A group exists only because at
// least one record landed in it, so the divisor is never zero.
func (a *Aggregator) Finalize() []sales.SummaryRecord {
	out := make([]sales.SummaryRecord, 0, len(a.groups))
	for key, b := range a.groups {
		out = append(out, sales.SummaryRecord{
			Region:              key.region,
			Product:             key.product,
			Year:                key.year,
			Month:               key.month,
			TotalRevenue:        b.revenue,
			TransactionCount:    b.count,
			AvgTransactionValue: b.revenue / float64(b.count),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Product < out[j].Product
	})
	return out
}
