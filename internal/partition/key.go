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

// Package partition derives calendar partitions from transaction
// timestamps and buckets enriched records by partition until the
// writers take over. Partition values come from the leading YYYY-MM-DD
// of the timestamp text; nothing downstream re-parses dates.
package partition

import (
	"fmt"
	"strings"
	"time"
)

// Key identifies one calendar partition of the enriched output.
type Key struct {
	Year  int32
	Month int32
}

// Path returns the hive-style relative directory for this partition,
// without zero padding. Month 1 is "month=1", not "month=01".
func (k Key) Path() string {
	return fmt.Sprintf("year=%d/month=%d", k.Year, k.Month)
}

func (k Key) String() string {
	return fmt.Sprintf("%d-%02d", k.Year, k.Month)
}

// Compare orders keys by year then month.
func (k Key) Compare(other Key) int {
	if k.Year != other.Year {
		if k.Year < other.Year {
			return -1
		}
		return 1
	}
	if k.Month != other.Month {
		if k.Month < other.Month {
			return -1
		}
		return 1
	}
	return 0
}

// dateLayout matches the leading date of every supported timestamp
// shape: "2025-01-05 10:30:00", "2025-01-05T10:30:00Z", with or
// without subseconds.
const dateLayout = "2006-01-02"

// DateParts derives the partition key and day-of-month from the first
// 10 characters of the timestamp text. Anything after the date is
// ignored, so the separator and subsecond precision do not matter.
// Returns an error for text too short, unparseable, or an out-of-range
// year; callers count such records and skip them.
func DateParts(timestamp string) (Key, int32, error) {
	trimmed := strings.TrimSpace(timestamp)
	if len(trimmed) < len(dateLayout) {
		return Key{}, 0, fmt.Errorf("timestamp %q too short for a date", timestamp)
	}

	t, err := time.Parse(dateLayout, trimmed[:len(dateLayout)])
	if err != nil {
		return Key{}, 0, fmt.Errorf("timestamp %q has no leading date: %w", timestamp, err)
	}

	year := t.Year()
	if year < 1 || year > 9999 {
		return Key{}, 0, fmt.Errorf("timestamp %q year %d out of range", timestamp, year)
	}

	return Key{Year: int32(year), Month: int32(t.Month())}, int32(t.Day()), nil
}
