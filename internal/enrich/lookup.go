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

// Package enrich joins transactions against the customer reference
// dimension. The dimension is loaded eagerly into memory before the
// transaction stream starts; it is small relative to the facts and
// read-only for the life of a run.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cardinalhq/martrunner/internal/filereader"
	"github.com/cardinalhq/martrunner/internal/pipeline"
	"github.com/cardinalhq/martrunner/internal/sales"
)

// CustomerLookup resolves a customer id to its reference record. The
// map implementation below is the only one today; the interface keeps
// the joiner indifferent to where the dimension lives.
type CustomerLookup interface {
	Get(customerID string) (sales.CustomerRecord, bool)
	Len() int
}

// MapLookup is an in-memory CustomerLookup backed by a plain map.
type MapLookup struct {
	customers map[string]sales.CustomerRecord
}

var _ CustomerLookup = (*MapLookup)(nil)

// Get returns the record for the given id. An empty id never matches.
func (m *MapLookup) Get(customerID string) (sales.CustomerRecord, bool) {
	if customerID == "" {
		return sales.CustomerRecord{}, false
	}
	rec, ok := m.customers[customerID]
	return rec, ok
}

// Len returns the number of distinct customers loaded.
func (m *MapLookup) Len() int {
	return len(m.customers)
}

// BuildStats describes what happened while loading the dimension.
type BuildStats struct {
	RowsLoaded    int64 // distinct customers in the dictionary
	DuplicateKeys int64 // rows that replaced an earlier row with the same id
	MalformedRows int64 // rows dropped by the readers or failing validation
}

// BuildLookup drains the given readers into a MapLookup. When the same
// customer_id appears more than once the later row wins, so the
// dictionary stays one-row-per-key and the join cannot fan out. Reader
// errors other than EOF abort the build: a reference file that cannot
// be read is a fatal input problem, not a per-record one.
func BuildLookup(ctx context.Context, readers ...filereader.Reader) (*MapLookup, BuildStats, error) {
	lookup := &MapLookup{customers: make(map[string]sales.CustomerRecord)}
	var stats BuildStats

	for _, reader := range readers {
		for {
			batch, err := reader.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, stats, fmt.Errorf("reading customer reference: %w", err)
			}

			for i := range batch.Len() {
				rec, err := sales.CustomerFromRow(batch.Get(i))
				if err != nil {
					stats.MalformedRows++
					continue
				}
				if _, exists := lookup.customers[rec.CustomerID]; exists {
					stats.DuplicateKeys++
				}
				lookup.customers[rec.CustomerID] = rec
			}
			// CustomerFromRow copies values out; the batch can go home.
			pipeline.ReturnBatch(batch)
		}
		stats.MalformedRows += reader.RowsSkipped()
	}

	stats.RowsLoaded = int64(lookup.Len())
	return lookup, stats, nil
}
