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

// Package filereader provides batch readers for the source file formats
// the pipeline ingests. Readers stream rows as pipeline batches and
// isolate malformed records: a bad row is counted and skipped, never
// fatal, so one corrupt line cannot sink a whole input file. Errors
// that break framing (unreadable stream, oversized line, a file that
// is not the format it claims to be) are returned as errors instead.
package filereader

import (
	"context"

	"github.com/cardinalhq/martrunner/internal/pipeline"
)

// defaultBatchSize is used when a caller passes a non-positive batch size.
const defaultBatchSize = 1000

// Reader is the core interface for reading rows from any source format.
type Reader interface {
	// Next returns the next batch of rows.
	// Returns io.EOF when there are no more rows.
	// Returns error for any read failures.
	Next(ctx context.Context) (*pipeline.Batch, error)

	// Close releases any resources held by the reader.
	Close() error

	// TotalRowsReturned returns the number of rows successfully
	// returned via Next so far.
	TotalRowsReturned() int64

	// RowsSkipped returns the number of malformed rows that were
	// counted and dropped instead of returned.
	RowsSkipped() int64
}
