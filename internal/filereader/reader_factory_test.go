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
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string, compress bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	if compress {
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
	} else {
		_, err = f.WriteString(content)
		require.NoError(t, err)
	}
	return path
}

func TestReaderForFileCSV(t *testing.T) {
	path := writeTempFile(t, "sales.csv", "a,b\n1,2\n", false)
	reader, err := ReaderForFile(path, 10)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	rows := drainReader(t, reader)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["a"])
}

func TestReaderForFileCSVGzip(t *testing.T) {
	path := writeTempFile(t, "sales.csv.gz", "a,b\n1,2\n3,4\n", true)
	reader, err := ReaderForFile(path, 10)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	rows := drainReader(t, reader)
	assert.Len(t, rows, 2)
}

func TestReaderForFileNDJSON(t *testing.T) {
	for _, name := range []string{"customers.ndjson", "customers.jsonl", "customers.json"} {
		t.Run(name, func(t *testing.T) {
			path := writeTempFile(t, name, `{"customer_id":"CUST0001"}`+"\n", false)
			reader, err := ReaderForFile(path, 10)
			require.NoError(t, err)
			defer func() { _ = reader.Close() }()

			rows := drainReader(t, reader)
			assert.Len(t, rows, 1)
		})
	}
}

func TestReaderForFileNDJSONGzip(t *testing.T) {
	path := writeTempFile(t, "customers.ndjson.gz", `{"customer_id":"CUST0001"}`+"\n", true)
	reader, err := ReaderForFile(path, 10)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	rows := drainReader(t, reader)
	assert.Len(t, rows, 1)
}

func TestReaderForFileUnsupported(t *testing.T) {
	path := writeTempFile(t, "data.parquet", "not parquet", false)
	_, err := ReaderForFile(path, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReaderForFileMissing(t *testing.T) {
	_, err := ReaderForFile(filepath.Join(t.TempDir(), "nope.csv"), 10)
	assert.Error(t, err)
}

func TestReaderForFileBadGzip(t *testing.T) {
	path := writeTempFile(t, "sales.csv.gz", "plain text, not gzip", false)
	_, err := ReaderForFile(path, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}
