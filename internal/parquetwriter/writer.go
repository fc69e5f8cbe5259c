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

// Package parquetwriter writes typed records to snappy-compressed
// parquet files, splitting output at a configured record count. File
// names are deterministic (part-00000, part-00001, ...) so a re-run of
// the same input produces the same object names and overwrites instead
// of appending.
package parquetwriter

import (
	"errors"
)

// NoRecordLimitPerFile disables file splitting; all records go into a
// single part file.
const NoRecordLimitPerFile = -1

// DefaultRecordsPerFile is used when the config leaves RecordsPerFile
// at zero.
const DefaultRecordsPerFile = 1_000_000

// ErrWriterClosed is returned when writing to or closing an already
// closed writer.
var ErrWriterClosed = errors.New("parquetwriter: writer is already closed")

// Result contains metadata about a single output parquet file.
type Result struct {
	// FileName is the absolute path to the created parquet file. Its
	// base name is the deterministic part name used in object storage.
	FileName string

	// RecordCount is the number of rows written to this file.
	RecordCount int64

	// FileSize is the size of the parquet file in bytes.
	FileSize int64

	// Fingerprint is the xxhash64 of the file contents.
	Fingerprint int64
}

// WriterConfig contains the options for creating a Writer.
type WriterConfig struct {
	// Dir is the directory where part files are created. Deterministic
	// part names mean two writers must never share a Dir.
	Dir string

	// RecordsPerFile caps rows per part file. Zero means
	// DefaultRecordsPerFile; NoRecordLimitPerFile disables splitting.
	RecordsPerFile int64
}

// Validate checks that the configuration is usable.
func (c *WriterConfig) Validate() error {
	if c.Dir == "" {
		return &ConfigError{Field: "Dir", Message: "cannot be empty"}
	}
	if c.RecordsPerFile < NoRecordLimitPerFile {
		return &ConfigError{Field: "RecordsPerFile", Message: "must be -1, 0, or positive"}
	}
	return nil
}

// recordsPerFile returns the effective split threshold, or -1 when
// splitting is disabled.
func (c *WriterConfig) recordsPerFile() int64 {
	switch {
	case c.RecordsPerFile == NoRecordLimitPerFile:
		return -1
	case c.RecordsPerFile == 0:
		return DefaultRecordsPerFile
	default:
		return c.RecordsPerFile
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "parquetwriter config: " + e.Field + " " + e.Message
}
