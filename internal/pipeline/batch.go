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

// Package pipeline holds the row and batch primitives readers hand to
// downstream stages. Batches and their row maps are pooled; consumers
// must not retain rows past the next Next() call on the reader that
// produced them.
package pipeline

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("github.com/cardinalhq/martrunner/internal/pipeline")

	bufferpoolGetsCounter metric.Int64Counter
	bufferpoolPutsCounter metric.Int64Counter
)

func init() {
	var err error

	bufferpoolGetsCounter, err = meter.Int64Counter(
		"martrunner.pipeline.bufferpool.gets",
		metric.WithDescription("Total number of gets from the buffer pool"),
	)
	if err != nil {
		panic(err)
	}

	bufferpoolPutsCounter, err = meter.Int64Counter(
		"martrunner.pipeline.bufferpool.puts",
		metric.WithDescription("Total number of puts back to the buffer pool"),
	)
	if err != nil {
		panic(err)
	}
}

// Batch is owned by the Reader that returns it. The underlying Row maps
// are reused; copy out anything that must outlive the batch.
type Batch struct {
	rows     []Row
	validLen int
}

// Len returns the number of valid rows in the batch.
func (b *Batch) Len() int {
	return b.validLen
}

// Get returns the row at the given index, or nil when out of range. The
// returned Row must not be retained beyond the lifetime of this batch.
func (b *Batch) Get(index int) Row {
	if index < 0 || index >= b.validLen {
		return nil
	}
	return b.rows[index]
}

// AddRow adds a new row to the batch, reusing an existing Row map when
// one is available, and returns the map to populate.
func (b *Batch) AddRow() Row {
	if b.validLen < len(b.rows) {
		row := b.rows[b.validLen]
		clear(row)
		b.validLen++
		return row
	}

	row := getPooledRow()
	b.rows = append(b.rows, row)
	b.validLen++
	return row
}

// CopyBatch creates a deep copy of a batch. The copy comes from the
// global pool and must be returned with ReturnBatch.
func CopyBatch(in *Batch) *Batch {
	out := globalBatchPool.Get()
	for i := range in.Len() {
		maps.Copy(out.AddRow(), in.Get(i))
	}
	return out
}

type batchPool struct {
	pool  sync.Pool
	sz    int
	alloc atomic.Uint64
	gets  atomic.Uint64
	puts  atomic.Uint64
}

func newBatchPool(batchSize int) *batchPool {
	p := &batchPool{sz: batchSize}
	p.pool = sync.Pool{
		New: func() any {
			p.alloc.Add(1)
			rows := make([]Row, batchSize)
			for i := range rows {
				rows[i] = getPooledRow()
			}
			return &Batch{rows: rows}
		},
	}
	return p
}

func (p *batchPool) Get() *Batch {
	p.gets.Add(1)
	bufferpoolGetsCounter.Add(context.Background(), 1)
	b := p.pool.Get().(*Batch)
	for i := range b.rows {
		clear(b.rows[i])
	}
	b.validLen = 0
	return b
}

func (p *batchPool) Put(b *Batch) {
	p.puts.Add(1)
	bufferpoolPutsCounter.Add(context.Background(), 1)
	// Drop oversized batches to avoid unbounded growth.
	if cap(b.rows) > p.sz*4 {
		for i := range b.rows {
			if b.rows[i] != nil {
				returnRowToPool(b.rows[i])
			}
		}
		return
	}
	b.validLen = 0
	p.pool.Put(b)
}

// BatchPoolStats contains counters for batch pool usage.
type BatchPoolStats struct {
	Allocations uint64
	Gets        uint64
	Puts        uint64
}

// LeakedBatches returns the number of batches gotten but never returned.
func (s BatchPoolStats) LeakedBatches() uint64 {
	return s.Gets - s.Puts
}

func (p *batchPool) stats() BatchPoolStats {
	return BatchPoolStats{
		Allocations: p.alloc.Load(),
		Gets:        p.gets.Load(),
		Puts:        p.puts.Load(),
	}
}

var globalBatchPool = newBatchPool(1000)

var rowPool = sync.Pool{
	New: func() any {
		return make(Row)
	},
}

func getPooledRow() Row {
	return rowPool.Get().(Row)
}

func returnRowToPool(row Row) {
	clear(row)
	rowPool.Put(row)
}

// GetBatch returns a clean, reusable batch from the global pool.
func GetBatch() *Batch {
	return globalBatchPool.Get()
}

// ReturnBatch returns a batch to the global pool. The batch must not be
// used after this call.
func ReturnBatch(batch *Batch) {
	if batch != nil {
		globalBatchPool.Put(batch)
	}
}

// GlobalBatchPoolStats returns usage counters for the global batch pool.
func GlobalBatchPoolStats() BatchPoolStats {
	return globalBatchPool.stats()
}
