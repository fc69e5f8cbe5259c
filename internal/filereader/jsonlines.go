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

package filereader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/martrunner/internal/pipeline"
)

// maxLineSizeBytes bounds a single JSON line. Lines beyond this break
// the scanner and fail the whole file.
const maxLineSizeBytes = 16 * 1024 * 1024

// JSONLinesReader reads rows from a JSON Lines stream using pipeline
// semantics. Each line must be a single JSON object; lines that fail to
// parse or that are not objects are counted and skipped. A stream whose
// first value is a JSON array is rejected outright: that is a JSON
// document in the wrong format, not a stream with one bad record.
type JSONLinesReader struct {
	scanner   *bufio.Scanner
	rowIndex  int
	closed    bool
	totalRows int64
	skipped   int64
	closer    io.Closer
	batchSize int
	sawRecord bool
}

var _ Reader = (*JSONLinesReader)(nil)

// NewJSONLinesReader creates a new JSONLinesReader for the given io.ReadCloser.
// The reader takes ownership of the closer and will close it when Close is called.
func NewJSONLinesReader(reader io.ReadCloser, batchSize int) (*JSONLinesReader, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSizeBytes)

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &JSONLinesReader{
		scanner:   scanner,
		rowIndex:  0,
		closer:    reader,
		batchSize: batchSize,
	}, nil
}

func (r *JSONLinesReader) Next(ctx context.Context) (*pipeline.Batch, error) {
	if r.closed {
		return nil, io.EOF
	}

	batch := pipeline.GetBatch()

	for batch.Len() < r.batchSize {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				pipeline.ReturnBatch(batch)
				return nil, fmt.Errorf("scanner error reading at line %d: %w", r.rowIndex+1, err)
			}
			// End of file - return what we have
			break
		}

		line := strings.TrimSpace(r.scanner.Text())
		r.rowIndex++

		// Skip empty lines
		if line == "" {
			continue
		}

		rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reader", "JSONLinesReader"),
		))

		if !r.sawRecord && strings.HasPrefix(line, "[") {
			pipeline.ReturnBatch(batch)
			return nil, fmt.Errorf("input is a JSON array, not JSON Lines (line %d)", r.rowIndex)
		}
		r.sawRecord = true

		var jsonRow map[string]any
		if err := json.Unmarshal([]byte(line), &jsonRow); err != nil || jsonRow == nil {
			r.skipped++
			rowsDroppedCounter.Add(ctx, 1, otelmetric.WithAttributes(
				attribute.String("reader", "JSONLinesReader"),
				attribute.String("reason", "malformed_json"),
			))
			continue
		}

		batchRow := batch.AddRow()
		for k, v := range jsonRow {
			batchRow[k] = v
		}
	}

	if batch.Len() == 0 {
		r.closed = true
		pipeline.ReturnBatch(batch)
		return nil, io.EOF
	}

	r.totalRows += int64(batch.Len())
	rowsOutCounter.Add(ctx, int64(batch.Len()), otelmetric.WithAttributes(
		attribute.String("reader", "JSONLinesReader"),
	))
	return batch, nil
}

// Close closes the reader and the underlying io.ReadCloser.
func (r *JSONLinesReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.scanner = nil
	return err
}

// TotalRowsReturned returns the total number of rows that have been successfully returned via Next().
func (r *JSONLinesReader) TotalRowsReturned() int64 {
	return r.totalRows
}

// RowsSkipped returns the number of malformed lines dropped so far.
func (r *JSONLinesReader) RowsSkipped() int64 {
	return r.skipped
}
