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
	"fmt"
	"io"
	"os"

	"github.com/cardinalhq/martrunner/internal/helpers"
)

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReaderForFile creates a Reader for the given local file based on its
// extension. Supported:
//   - .csv: CSVReader
//   - .ndjson, .jsonl, .json: JSONLinesReader
//   - any of the above plus .gz: the same reader with gzip decompression
func ReaderForFile(filename string, batchSize int) (Reader, error) {
	rc, err := openMaybeGzip(filename)
	if err != nil {
		return nil, err
	}

	switch helpers.DetectFormat(filename) {
	case helpers.FormatCSV:
		reader, err := NewCSVReader(rc, batchSize)
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		return reader, nil
	case helpers.FormatNDJSON:
		reader, err := NewJSONLinesReader(rc, batchSize)
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		return reader, nil
	default:
		_ = rc.Close()
		return nil, fmt.Errorf("unsupported file type: %s", filename)
	}
}

// openMaybeGzip opens the file, wrapping it in a gzip reader when the
// name carries a .gz suffix.
func openMaybeGzip(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}

	if !helpers.IsGzipPath(filename) {
		return file, nil
	}

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}

	return &multiReadCloser{
		Reader:  gzipReader,
		closers: []io.Closer{gzipReader, file},
	}, nil
}
