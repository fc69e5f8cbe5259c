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

// Package martbuild orchestrates one pipeline run end to end: stage the
// source feeds, build the customer dictionary, stream transactions
// through enrich/partition/aggregate, flush partitions to parquet in
// parallel, upload, and announce what was written.
//
// A run is all-or-mostly-nothing at partition granularity: per-record
// errors are counted and skipped, a failed partition is flagged and
// never announced while its siblings proceed, and only an unreadable
// source or broken scratch space halts the run outright.
package martbuild

import (
	"fmt"
	"runtime"

	"github.com/cardinalhq/martrunner/internal/catalog"
	"github.com/cardinalhq/martrunner/internal/cloudstorage"
	"github.com/cardinalhq/martrunner/internal/jobfile"
	"github.com/cardinalhq/martrunner/internal/martdb"
	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// Options tune a run. Zero values mean defaults.
type Options struct {
	// ScratchDir is where staged inputs, spill buffers, and local
	// parquet parts live for the life of the run. Empty means the
	// system temp dir.
	ScratchDir string

	// BatchSize is the reader batch size in rows.
	BatchSize int

	// RecordsPerFile caps rows per parquet part file; see
	// parquetwriter.WriterConfig.
	RecordsPerFile int64

	// PartitionWorkers bounds the parallel partition flushes. Zero
	// means min(4, GOMAXPROCS): flushes are IO-heavy, more workers
	// mostly add upload contention.
	PartitionWorkers int
}

func (o *Options) applyDefaults() {
	if o.PartitionWorkers <= 0 {
		o.PartitionWorkers = min(4, runtime.GOMAXPROCS(0))
	}
}

// Runner executes one job. Build it with NewRunner, call Run once.
type Runner struct {
	job      jobfile.Job
	runID    string
	provider cloudstorage.ClientProvider
	resolver *storageprofile.Resolver
	notifier catalog.Notifier
	ledger   martdb.Ledger // nil when no ledger is configured
	opts     Options
}

// NewRunner wires a Runner for the given job. The ledger may be nil;
// everything else is required.
func NewRunner(
	job jobfile.Job,
	runID string,
	provider cloudstorage.ClientProvider,
	notifier catalog.Notifier,
	ledger martdb.Ledger,
	opts Options,
) (*Runner, error) {
	if runID == "" {
		return nil, fmt.Errorf("martbuild: run id is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("martbuild: storage client provider is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("martbuild: catalog notifier is required")
	}

	resolver, err := storageprofile.NewResolver(job.StorageProfiles)
	if err != nil {
		return nil, fmt.Errorf("martbuild: %w", err)
	}

	opts.applyDefaults()
	return &Runner{
		job:      job,
		runID:    runID,
		provider: provider,
		resolver: resolver,
		notifier: notifier,
		ledger:   ledger,
		opts:     opts,
	}, nil
}
