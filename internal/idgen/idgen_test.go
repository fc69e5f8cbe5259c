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

package idgen

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sony/sonyflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlakeGeneratorUnique(t *testing.T) {
	gen, err := NewFlakeGenerator()
	require.NoError(t, err)

	seen := make(map[int64]struct{}, 1000)
	for range 1000 {
		id := gen.NextID()
		assert.Positive(t, id)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate flake id %d", id)
		seen[id] = struct{}{}
	}
}

func TestFlakeGeneratorRandomMachineID(t *testing.T) {
	// The fallback path for hosts with no private interface: a random
	// machine id must yield a working generator, never an error.
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: randomMachineID,
	})
	require.NoError(t, err)
	gen := &SonyFlakeGenerator{sf: sf}
	assert.Positive(t, gen.NextID())
}

func TestDefaultFlakeGenerator(t *testing.T) {
	require.NotNil(t, DefaultFlakeGenerator)
	assert.Positive(t, DefaultFlakeGenerator.NextID())
}

func TestGenerateShortBase32ID(t *testing.T) {
	id := GenerateShortBase32ID()
	assert.Len(t, id, 8)
	assert.Equal(t, id, string([]byte(id)), "must be plain ASCII")

	other := GenerateShortBase32ID()
	assert.NotEqual(t, id, other)
}

func TestULIDGeneratorMonotonic(t *testing.T) {
	gen := NewULIDGenerator()
	now := time.Now()

	prev := gen.Make(now)
	for range 100 {
		next := gen.Make(now)
		assert.Less(t, prev, next, "ulids at the same timestamp must stay monotonic")
		prev = next
	}
}

func TestULIDGeneratorParseable(t *testing.T) {
	gen := NewULIDGenerator()
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	id, err := ulid.ParseStrict(gen.Make(ts))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), id.Time())
}

func TestInlineULIDGenerator(t *testing.T) {
	gen := &InlineULIDGenerator{}
	id := gen.Make(time.Now())
	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)
}
