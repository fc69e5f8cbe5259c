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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/martrunner/internal/pipeline"
)

// ArrowParquetReader reads a parquet file through Apache Arrow and
// returns raw rows, no translation applied. The mart files are flat
// (scalars and nullable scalars only), so nested Arrow types are not
// handled here.
type ArrowParquetReader struct {
	pr        *file.Reader
	rr        pqarrow.RecordReader
	schema    *arrow.Schema
	closed    bool
	exhausted bool
	totalRows int64
}

var _ Reader = (*ArrowParquetReader)(nil)

// NewArrowParquetReader creates a reader for the given
// parquet.ReaderAtSeeker (an *os.File qualifies).
func NewArrowParquetReader(ctx context.Context, reader parquet.ReaderAtSeeker, batchSize int) (*ArrowParquetReader, error) {
	pf, err := file.NewParquetReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	props := pqarrow.ArrowReadProperties{BatchSize: int64(batchSize)}
	fr, err := pqarrow.NewFileReader(pf, props, memory.DefaultAllocator)
	if err != nil {
		_ = pf.Close()
		return nil, fmt.Errorf("failed to create arrow file reader: %w", err)
	}

	schema, err := fr.Schema()
	if err != nil {
		_ = pf.Close()
		return nil, fmt.Errorf("failed to get arrow schema: %w", err)
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		_ = pf.Close()
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}

	return &ArrowParquetReader{
		pr:     pf,
		rr:     rr,
		schema: schema,
	}, nil
}

// Schema returns the file's Arrow schema.
func (r *ArrowParquetReader) Schema() *arrow.Schema {
	return r.schema
}

func (r *ArrowParquetReader) Next(ctx context.Context) (*pipeline.Batch, error) {
	if r.closed {
		return nil, errors.New("reader is closed")
	}
	if r.exhausted {
		return nil, io.EOF
	}

	rec, err := r.rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.exhausted = true
			return nil, io.EOF
		}
		return nil, fmt.Errorf("arrow read error: %w", err)
	}
	if rec == nil || rec.NumRows() == 0 {
		r.exhausted = true
		return nil, io.EOF
	}
	defer rec.Release()

	fields := rec.Schema().Fields()
	numRows := int(rec.NumRows())

	rowsInCounter.Add(ctx, int64(numRows), otelmetric.WithAttributes(
		attribute.String("reader", "ArrowParquetReader"),
	))

	batch := pipeline.GetBatch()
	for i := range numRows {
		row := batch.AddRow()
		for j, f := range fields {
			col := rec.Column(j)
			if col.IsNull(i) {
				continue
			}
			if val := convertArrowValue(col, i); val != nil {
				row[f.Name] = val
			}
		}
	}

	r.totalRows += int64(numRows)
	rowsOutCounter.Add(ctx, int64(numRows), otelmetric.WithAttributes(
		attribute.String("reader", "ArrowParquetReader"),
	))
	return batch, nil
}

func (r *ArrowParquetReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.rr != nil {
		r.rr.Release()
		r.rr = nil
	}
	if r.pr != nil {
		if err := r.pr.Close(); err != nil {
			return err
		}
		r.pr = nil
	}
	return nil
}

func (r *ArrowParquetReader) TotalRowsReturned() int64 {
	return r.totalRows
}

// RowsSkipped is always zero: a parquet file that decodes at all has no
// per-row malformed case.
func (r *ArrowParquetReader) RowsSkipped() int64 {
	return 0
}

// convertArrowValue converts one Arrow array value to the Go value a
// pipeline.Row carries.
func convertArrowValue(col arrow.Array, i int) any {
	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i)
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Uint8:
		return int64(c.Value(i))
	case *array.Uint16:
		return int64(c.Value(i))
	case *array.Uint32:
		return int64(c.Value(i))
	case *array.Uint64:
		return int64(c.Value(i))
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.String:
		// Copy out of the Arrow buffer; the record is released.
		return strings.Clone(c.Value(i))
	case *array.LargeString:
		return strings.Clone(c.Value(i))
	case *array.Binary:
		b := c.Value(i)
		copied := make([]byte, len(b))
		copy(copied, b)
		return copied
	case *array.Timestamp:
		tsType := c.DataType().(*arrow.TimestampType)
		return c.Value(i).ToTime(tsType.Unit).UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return c.ValueStr(i)
	}
}
