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

package helpers

import (
	"io"
	"os"
	"path"
	"strings"
)

// SourceFormat identifies how a source file's rows are encoded.
type SourceFormat string

const (
	FormatCSV     SourceFormat = "csv"
	FormatNDJSON  SourceFormat = "ndjson"
	FormatUnknown SourceFormat = "unknown"
)

// IsGzipPath reports whether the path names a gzip-compressed file.
func IsGzipPath(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".gz")
}

// IsGzipFile reports whether the file's contents start with the gzip
// magic bytes. Paths lie: interop endpoints sometimes decompress a .gz
// object in flight but leave the suffix on the name.
func IsGzipFile(filename string) (bool, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return false, err
	}
	defer func() { _ = fh.Close() }()

	var magic [2]byte
	if _, err := io.ReadFull(fh, magic[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return magic[0] == 0x1f && magic[1] == 0x8b, nil
}

// DetectFormat picks the source format from a file path, looking past a
// trailing .gz. NDJSON goes by several extensions in the wild.
func DetectFormat(p string) SourceFormat {
	name := strings.ToLower(path.Base(p))
	name = strings.TrimSuffix(name, ".gz")

	switch strings.TrimPrefix(path.Ext(name), ".") {
	case "csv":
		return FormatCSV
	case "ndjson", "jsonl", "json":
		return FormatNDJSON
	default:
		return FormatUnknown
	}
}
