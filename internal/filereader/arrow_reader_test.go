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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/martrunner/internal/pipeline"
)

type arrowTestRow struct {
	Name  string  `parquet:"name"`
	Count int64   `parquet:"count"`
	Price float64 `parquet:"price"`
	Note  *string `parquet:"note,optional"`
}

func writeArrowTestFile(t *testing.T, rows []arrowTestRow) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "test.parquet")
	fh, err := os.Create(filename)
	require.NoError(t, err)

	w := parquet.NewGenericWriter[arrowTestRow](fh, parquet.Compression(&parquet.Snappy))
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, fh.Close())
	return filename
}

func TestArrowParquetReader(t *testing.T) {
	note := "bulk order"
	filename := writeArrowTestFile(t, []arrowTestRow{
		{Name: "Laptop", Count: 3, Price: 999.95, Note: &note},
		{Name: "Mouse", Count: 1, Price: 19.99},
	})

	fh, err := os.Open(filename)
	require.NoError(t, err)
	defer func() { _ = fh.Close() }()

	ctx := context.Background()
	r, err := NewArrowParquetReader(ctx, fh, 10)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	require.Len(t, r.Schema().Fields(), 4)

	var rows []pipeline.Row
	for {
		batch, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		for i := range batch.Len() {
			rows = append(rows, pipeline.CopyRow(batch.Get(i)))
		}
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "Laptop", rows[0]["name"])
	assert.Equal(t, int64(3), rows[0]["count"])
	assert.InDelta(t, 999.95, rows[0]["price"], 1e-9)
	assert.Equal(t, "bulk order", rows[0]["note"])

	assert.Equal(t, "Mouse", rows[1]["name"])
	// A null optional column is absent from the row, not a nil value.
	_, hasNote := rows[1]["note"]
	assert.False(t, hasNote)

	assert.Equal(t, int64(2), r.TotalRowsReturned())
	assert.Zero(t, r.RowsSkipped())
}

func TestArrowParquetReaderClosed(t *testing.T) {
	filename := writeArrowTestFile(t, []arrowTestRow{{Name: "Monitor", Count: 1, Price: 249.00}})

	fh, err := os.Open(filename)
	require.NoError(t, err)
	defer func() { _ = fh.Close() }()

	r, err := NewArrowParquetReader(context.Background(), fh, 10)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Next(context.Background())
	assert.Error(t, err)
}
