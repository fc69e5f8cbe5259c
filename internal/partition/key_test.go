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

package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPath(t *testing.T) {
	assert.Equal(t, "year=2025/month=1", Key{Year: 2025, Month: 1}.Path())
	assert.Equal(t, "year=2025/month=12", Key{Year: 2025, Month: 12}.Path())
	assert.Equal(t, "year=7/month=3", Key{Year: 7, Month: 3}.Path())
}

func TestKeyCompare(t *testing.T) {
	a := Key{Year: 2024, Month: 12}
	b := Key{Year: 2025, Month: 1}
	c := Key{Year: 2025, Month: 2}

	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
	assert.Positive(t, c.Compare(a))
	assert.Zero(t, b.Compare(b))
}

func TestDateParts(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		wantKey   Key
		wantDay   int32
		wantErr   bool
	}{
		{
			name:      "space separator",
			timestamp: "2025-01-05 10:30:00",
			wantKey:   Key{Year: 2025, Month: 1},
			wantDay:   5,
		},
		{
			name:      "T separator",
			timestamp: "2025-02-01T23:59:59Z",
			wantKey:   Key{Year: 2025, Month: 2},
			wantDay:   1,
		},
		{
			name:      "subsecond precision",
			timestamp: "2024-12-31 00:00:00.123456",
			wantKey:   Key{Year: 2024, Month: 12},
			wantDay:   31,
		},
		{
			name:      "bare date",
			timestamp: "2025-06-15",
			wantKey:   Key{Year: 2025, Month: 6},
			wantDay:   15,
		},
		{
			name:      "leading whitespace",
			timestamp: "  2025-01-05 10:30:00",
			wantKey:   Key{Year: 2025, Month: 1},
			wantDay:   5,
		},
		{
			name:      "too short",
			timestamp: "2025-01",
			wantErr:   true,
		},
		{
			name:      "empty",
			timestamp: "",
			wantErr:   true,
		},
		{
			name:      "garbage",
			timestamp: "not a date at all!",
			wantErr:   true,
		},
		{
			name:      "invalid month",
			timestamp: "2025-13-05 10:30:00",
			wantErr:   true,
		},
		{
			name:      "invalid day",
			timestamp: "2025-02-30 10:30:00",
			wantErr:   true,
		},
		{
			name:      "slashes",
			timestamp: "2025/01/05 10:30:00",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, day, err := DateParts(tt.timestamp)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantDay, day)
		})
	}
}
