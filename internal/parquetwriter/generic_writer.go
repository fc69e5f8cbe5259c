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

package parquetwriter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/martrunner/internal/helpers"
)

// Writer streams records of one type into snappy parquet part files.
// The schema comes from T's struct tags, so it is fixed for the life
// of the writer. Files are started lazily: a writer that never sees a
// record produces no files. Not safe for concurrent use.
type Writer[T any] struct {
	config WriterConfig
	limit  int64

	file   *os.File
	hasher *xxhash.Digest
	pw     *parquet.GenericWriter[T]
	rows   int64
	part   int

	results []Result
	closed  bool
}

// NewWriter creates a Writer with the given configuration.
func NewWriter[T any](config WriterConfig) (*Writer[T], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Writer[T]{
		config:  config,
		limit:   config.recordsPerFile(),
		results: make([]Result, 0, 1),
	}, nil
}

// Write appends records, rotating to a new part file whenever the
// current one reaches the configured record count.
func (w *Writer[T]) Write(recs ...T) error {
	if w.closed {
		return ErrWriterClosed
	}

	for i := range recs {
		if w.pw != nil && w.limit > 0 && w.rows >= w.limit {
			if err := w.finishCurrentFile(); err != nil {
				return fmt.Errorf("finish part file before split: %w", err)
			}
		}
		if w.pw == nil {
			if err := w.startNewFile(); err != nil {
				return fmt.Errorf("start part file: %w", err)
			}
		}
		if _, err := w.pw.Write(recs[i : i+1]); err != nil {
			return fmt.Errorf("write row to parquet: %w", err)
		}
		w.rows++
	}
	return nil
}

// Close finalizes the current part file and returns metadata for every
// file written. After Close the writer cannot be used.
func (w *Writer[T]) Close(ctx context.Context) ([]Result, error) {
	if w.closed {
		return nil, ErrWriterClosed
	}
	w.closed = true

	if err := w.finishCurrentFile(); err != nil {
		w.abortCurrentFile()
		return w.results, fmt.Errorf("finish part file: %w", err)
	}
	return w.results, nil
}

// Abort stops processing and removes every file this writer created,
// in-progress and completed alike. Safe to call multiple times.
func (w *Writer[T]) Abort() {
	w.closed = true
	w.abortCurrentFile()
	for _, result := range w.results {
		_ = os.Remove(result.FileName)
	}
	w.results = nil
}

// startNewFile opens the next deterministic part file and wires the
// parquet writer through the fingerprint hasher.
func (w *Writer[T]) startNewFile() error {
	name := filepath.Join(w.config.Dir, helpers.PartFileName(w.part))
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	w.file = file
	w.hasher = xxhash.New()
	w.pw = parquet.NewGenericWriter[T](
		io.MultiWriter(file, w.hasher),
		parquet.Compression(&parquet.Snappy),
	)
	w.rows = 0
	return nil
}

// finishCurrentFile closes out the in-progress part file and records
// its Result.
func (w *Writer[T]) finishCurrentFile() error {
	if w.pw == nil {
		return nil
	}

	if err := w.pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	w.pw = nil

	fileName := w.file.Name()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", fileName, err)
	}
	w.file = nil

	info, err := os.Stat(fileName)
	var fileSize int64 = -1
	if err == nil {
		fileSize = info.Size()
	}

	w.results = append(w.results, Result{
		FileName:    fileName,
		RecordCount: w.rows,
		FileSize:    fileSize,
		Fingerprint: int64(w.hasher.Sum64()),
	})

	w.hasher = nil
	w.rows = 0
	w.part++
	return nil
}

// abortCurrentFile drops any in-progress file without recording it.
func (w *Writer[T]) abortCurrentFile() {
	if w.file != nil {
		name := w.file.Name()
		_ = w.file.Close()
		_ = os.Remove(name)
		w.file = nil
	}
	w.pw = nil
	w.hasher = nil
	w.rows = 0
}
