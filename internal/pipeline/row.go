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

package pipeline

import "maps"

// Row represents a single data row as a map of column name to value.
// Readers populate values as string, int64, or float64.
type Row map[string]any

// CopyRow creates a copy of a row that is safe to retain.
func CopyRow(in Row) Row {
	out := make(Row, len(in))
	maps.Copy(out, in)
	return out
}

// GetString retrieves a string value from the Row. Returns the empty
// string if the key is not found or the value is not a string.
func (r Row) GetString(key string) string {
	if val, ok := r[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetInt64 retrieves an int64 value from the Row. Returns the value and
// true if found and convertible, or 0 and false otherwise.
func (r Row) GetInt64(key string) (int64, bool) {
	if val, ok := r[key]; ok {
		switch v := val.(type) {
		case int64:
			return v, true
		case int:
			return int64(v), true
		case float64:
			return int64(v), true
		}
	}
	return 0, false
}

// GetFloat64 retrieves a float64 value from the Row. Returns the value
// and true if found and convertible, or 0 and false otherwise.
func (r Row) GetFloat64(key string) (float64, bool) {
	if val, ok := r[key]; ok {
		switch v := val.(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}
