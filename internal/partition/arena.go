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
	"fmt"
	"sort"

	"github.com/cardinalhq/martrunner/internal/sales"
	"github.com/cardinalhq/martrunner/internal/spill"
)

// Arena buckets enriched records by partition key during the streaming
// pass. Records spill to per-partition scratch buffers on disk, so the
// arena's memory footprint is independent of input size. Add is
// single-threaded; once the pass is done, each partition's reader can
// be drained concurrently with the others.
type Arena struct {
	codec   *spill.Codec
	dir     string
	buffers map[Key]*spill.Buffer
}

// NewArena creates an Arena spilling under dir.
func NewArena(dir string) (*Arena, error) {
	codec, err := spill.NewCodec()
	if err != nil {
		return nil, fmt.Errorf("creating spill codec: %w", err)
	}
	return &Arena{
		codec:   codec,
		dir:     dir,
		buffers: make(map[Key]*spill.Buffer),
	}, nil
}

// Add spills one record into its partition's buffer, creating the
// buffer on first sight of the key. The record must already carry its
// partition values. A write error here means local scratch is broken
// and the run cannot continue.
func (a *Arena) Add(rec *sales.EnrichedRecord) error {
	key := Key{Year: rec.Year, Month: rec.Month}
	buf, ok := a.buffers[key]
	if !ok {
		var err error
		pattern := fmt.Sprintf("arena-%d-%d-*.cbor", key.Year, key.Month)
		buf, err = a.codec.NewBuffer(a.dir, pattern)
		if err != nil {
			return fmt.Errorf("creating spill buffer for %s: %w", key, err)
		}
		a.buffers[key] = buf
	}

	if err := buf.Append(rec); err != nil {
		return fmt.Errorf("spilling record to %s: %w", key, err)
	}
	return nil
}

// Partitions returns every key seen so far, ordered by year then month.
func (a *Arena) Partitions() []Key {
	keys := make([]Key, 0, len(a.buffers))
	for key := range a.buffers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})
	return keys
}

// Count returns the number of records spilled for the key.
func (a *Arena) Count(key Key) int64 {
	if buf, ok := a.buffers[key]; ok {
		return buf.Rows()
	}
	return 0
}

// TotalCount returns the number of records spilled across all
// partitions.
func (a *Arena) TotalCount() int64 {
	var total int64
	for _, buf := range a.buffers {
		total += buf.Rows()
	}
	return total
}

// Reader seals the key's buffer and returns a reader positioned at its
// first record. Each partition may be read once.
func (a *Arena) Reader(key Key) (*spill.BufferReader, error) {
	buf, ok := a.buffers[key]
	if !ok {
		return nil, fmt.Errorf("no partition %s in arena", key)
	}
	return buf.Reader()
}

// Close releases every buffer and removes the scratch files.
func (a *Arena) Close() error {
	var firstErr error
	for _, buf := range a.buffers {
		if err := buf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.buffers = make(map[Key]*spill.Buffer)
	return firstErr
}
