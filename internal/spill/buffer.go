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

package spill

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrBufferSealed is returned by Append after Reader has been called.
	ErrBufferSealed = errors.New("spill buffer is sealed for reading")
	// ErrBufferClosed is returned by any use of a closed buffer.
	ErrBufferClosed = errors.New("spill buffer is closed")
)

// Buffer is an append-only record buffer backed by a temp file. Append
// records, then seal it with Reader() to stream them back in insertion
// order. Close removes the backing file.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	codec  *Codec
	file   *os.File
	bw     *bufio.Writer
	enc    interface{ Encode(any) error }
	rows   int64
	sealed bool
	closed bool
}

// NewBuffer creates a Buffer whose backing file lives in dir (or the
// default temp dir when dir is empty). pattern names the file the way
// os.CreateTemp does.
func (c *Codec) NewBuffer(dir, pattern string) (*Buffer, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	bw := bufio.NewWriterSize(f, 256*1024)
	return &Buffer{
		codec: c,
		file:  f,
		bw:    bw,
		enc:   c.NewEncoder(bw),
	}, nil
}

// Append encodes one record onto the buffer.
func (b *Buffer) Append(v any) error {
	if b.closed {
		return ErrBufferClosed
	}
	if b.sealed {
		return ErrBufferSealed
	}
	if err := b.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode spill record: %w", err)
	}
	b.rows++
	return nil
}

// Rows returns the number of records appended so far.
func (b *Buffer) Rows() int64 {
	return b.rows
}

// FilePath returns the backing file's path. Only useful for logging.
func (b *Buffer) FilePath() string {
	return b.file.Name()
}

// Reader seals the buffer and returns a reader positioned at the first
// record. After Reader, Append fails.
func (b *Buffer) Reader() (*BufferReader, error) {
	if b.closed {
		return nil, ErrBufferClosed
	}
	if !b.sealed {
		if err := b.bw.Flush(); err != nil {
			return nil, fmt.Errorf("failed to flush spill file: %w", err)
		}
		b.sealed = true
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind spill file: %w", err)
	}
	return &BufferReader{dec: b.codec.NewDecoder(bufio.NewReaderSize(b.file, 256*1024))}, nil
}

// Close removes the backing file. Safe to call more than once.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	name := b.file.Name()
	err := b.file.Close()
	if rmErr := os.Remove(name); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// BufferReader streams records back out of a sealed Buffer.
type BufferReader struct {
	dec interface{ Decode(any) error }
}

// Next decodes the next record into v. Returns io.EOF when the buffer
// is exhausted.
func (r *BufferReader) Next(v any) error {
	err := r.dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("failed to decode spill record: %w", err)
	}
	return nil
}
