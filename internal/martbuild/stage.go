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

package martbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cardinalhq/martrunner/internal/aggregate"
	"github.com/cardinalhq/martrunner/internal/enrich"
	"github.com/cardinalhq/martrunner/internal/filereader"
	"github.com/cardinalhq/martrunner/internal/logctx"
	"github.com/cardinalhq/martrunner/internal/partition"
	"github.com/cardinalhq/martrunner/internal/pipeline"
	"github.com/cardinalhq/martrunner/internal/sales"
)

// stageSource downloads one source object into workdir and returns the
// local filename. A missing source is fatal: the job named it.
func (r *Runner) stageSource(ctx context.Context, workdir, uri string) (string, error) {
	loc, err := r.resolver.Resolve(uri)
	if err != nil {
		return "", err
	}
	client, err := r.provider.NewClient(ctx, loc.Profile)
	if err != nil {
		return "", fmt.Errorf("storage client for %s: %w", uri, err)
	}

	filename, size, notFound, err := client.DownloadObject(ctx, workdir, loc.Profile.Bucket, loc.Key)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", uri, err)
	}
	if notFound {
		return "", fmt.Errorf("source %s does not exist", uri)
	}

	logctx.FromContext(ctx).Debug("staged source",
		slog.String("uri", uri),
		slog.String("file", filename),
		slog.Int64("bytes", size))
	return filename, nil
}

// buildLookup stages every customer source and drains them into the
// in-memory dictionary.
func (r *Runner) buildLookup(ctx context.Context, workdir string) (*enrich.MapLookup, enrich.BuildStats, error) {
	ctx, span := tracer.Start(ctx, "martbuild.buildLookup")
	defer span.End()

	readers := make([]filereader.Reader, 0, len(r.job.Sources.Customers))
	defer func() {
		for _, reader := range readers {
			_ = reader.Close()
		}
	}()

	for _, uri := range r.job.Sources.Customers {
		local, err := r.stageSource(ctx, workdir, uri)
		if err != nil {
			return nil, enrich.BuildStats{}, err
		}
		reader, err := filereader.ReaderForFile(local, r.opts.BatchSize)
		if err != nil {
			return nil, enrich.BuildStats{}, fmt.Errorf("opening %s: %w", uri, err)
		}
		readers = append(readers, reader)
	}

	return enrich.BuildLookup(ctx, readers...)
}

// streamStats count the transaction pass.
type streamStats struct {
	files           int
	rowsReturned    int64 // rows the readers handed back
	readerSkipped   int64 // malformed lines the readers dropped
	translateFailed int64 // returned rows missing required fields
	badTimestamps   int64
}

// rowsRead is the number of data rows present in the files.
func (s streamStats) rowsRead() int64 {
	return s.rowsReturned + s.readerSkipped
}

// malformed is every per-record drop that is not a timestamp problem.
func (s streamStats) malformed() int64 {
	return s.readerSkipped + s.translateFailed
}

// streamSales makes the single streaming pass: every valid transaction
// is enriched, dated, spilled into its partition, and folded into the
// aggregator. Per-record problems are counted; only scratch or source
// failures return an error.
func (r *Runner) streamSales(
	ctx context.Context,
	workdir string,
	joiner *enrich.Joiner,
	agg *aggregate.Aggregator,
	arena *partition.Arena,
) (streamStats, error) {
	ctx, span := tracer.Start(ctx, "martbuild.streamSales")
	defer span.End()

	var st streamStats
	for _, uri := range r.job.Sources.Sales {
		local, err := r.stageSource(ctx, workdir, uri)
		if err != nil {
			return st, err
		}
		if err := r.streamOneSalesFile(ctx, local, uri, joiner, agg, arena, &st); err != nil {
			return st, err
		}
		st.files++
	}
	return st, nil
}

func (r *Runner) streamOneSalesFile(
	ctx context.Context,
	local, uri string,
	joiner *enrich.Joiner,
	agg *aggregate.Aggregator,
	arena *partition.Arena,
	st *streamStats,
) error {
	ll := logctx.FromContext(ctx)

	reader, err := filereader.ReaderForFile(local, r.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("opening %s: %w", uri, err)
	}
	defer func() {
		st.rowsReturned += reader.TotalRowsReturned()
		st.readerSkipped += reader.RowsSkipped()
		_ = reader.Close()
	}()

	for {
		batch, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", uri, err)
		}

		for i := range batch.Len() {
			rec, err := sales.TransactionFromRow(batch.Get(i))
			if err != nil {
				st.translateFailed++
				recordsMalformed.Add(ctx, 1)
				ll.Debug("dropping malformed transaction", slog.Any("error", err))
				continue
			}

			key, day, err := partition.DateParts(rec.Timestamp)
			if err != nil {
				st.badTimestamps++
				recordsBadTimestamp.Add(ctx, 1)
				ll.Debug("dropping transaction with bad timestamp",
					slog.String("transaction_id", rec.TransactionID),
					slog.Any("error", err))
				continue
			}

			enriched := joiner.Enrich(rec)
			enriched.Year = key.Year
			enriched.Month = key.Month
			enriched.Day = day

			if err := arena.Add(&enriched); err != nil {
				pipeline.ReturnBatch(batch)
				return err
			}
			agg.Add(&enriched)
			recordsEnriched.Add(ctx, 1)
		}
		// Records are copied out above; the batch goes back to the pool.
		pipeline.ReturnBatch(batch)
	}
}
