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
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/martrunner/internal/aggregate"
	"github.com/cardinalhq/martrunner/internal/catalog"
	"github.com/cardinalhq/martrunner/internal/enrich"
	"github.com/cardinalhq/martrunner/internal/helpers"
	"github.com/cardinalhq/martrunner/internal/idgen"
	"github.com/cardinalhq/martrunner/internal/logctx"
	"github.com/cardinalhq/martrunner/internal/martdb"
	"github.com/cardinalhq/martrunner/internal/partition"
)

// Run executes the job start to finish. The returned report is filled
// as far as the run got; err is non-nil when any part of the run
// failed, including single partitions whose siblings succeeded.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	ll := logctx.FromContext(ctx).With(
		slog.String("run_id", r.runID),
		slog.String("job", r.job.Name))
	ctx = logctx.WithLogger(ctx, ll)

	ctx, span := tracer.Start(ctx, "martbuild.Run")
	defer span.End()

	report := &RunReport{
		RunID:     r.runID,
		Job:       r.job.Name,
		Target:    r.job.Target,
		StartedAt: time.Now().UTC(),
	}

	if r.ledger != nil {
		if err := r.ledger.InsertRun(ctx, martdb.InsertRunParams{
			RunID:     r.runID,
			Job:       r.job.Name,
			StartedAt: report.StartedAt,
		}); err != nil {
			ll.Warn("could not record run start in ledger", slog.Any("error", err))
		}
	}

	runErr := r.run(ctx, report)

	report.FinishedAt = time.Now().UTC()
	report.ElapsedMS = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	report.Status = RunSucceeded
	if runErr != nil {
		report.Status = RunFailed
	}

	if r.ledger != nil {
		// The ledger row is the durable record of the run; write it
		// even when the run was cancelled.
		if err := r.ledger.FinishRun(context.WithoutCancel(ctx), martdb.FinishRunParams{
			RunID:               r.runID,
			Status:              report.Status,
			FinishedAt:          report.FinishedAt,
			InputRecords:        report.Input.RowsRead,
			OutputRecords:       report.Output.EnrichedRecords,
			MalformedRecords:    report.Input.Malformed,
			BadTimestampRecords: report.Input.BadTimestamps,
			UnmatchedRecords:    report.Join.Unmatched,
			TotalRevenue:        report.Output.TotalRevenue,
		}); err != nil {
			ll.Warn("could not record run finish in ledger", slog.Any("error", err))
		}
	}

	if runErr != nil {
		ll.Error("run failed",
			slog.Int64("elapsed_ms", report.ElapsedMS),
			slog.Any("error", runErr))
		return report, runErr
	}
	ll.Info("run complete",
		slog.Int64("elapsed_ms", report.ElapsedMS),
		slog.Int64("enriched", report.Output.EnrichedRecords),
		slog.Int("summary_groups", report.Output.SummaryGroups),
		slog.Int("partitions_written", report.Output.PartitionsWritten))
	return report, nil
}

func (r *Runner) run(ctx context.Context, report *RunReport) error {
	ll := logctx.FromContext(ctx)

	scratch := r.opts.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	workdir := filepath.Join(scratch, "martrun-"+idgen.GenerateShortBase32ID())
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return fmt.Errorf("creating run scratch %s: %w", workdir, err)
	}
	defer func() { _ = os.RemoveAll(workdir) }()

	if usage, err := helpers.DiskUsage(workdir); err == nil {
		ll.Info("run scratch ready",
			slog.String("workdir", workdir),
			slog.Uint64("free_bytes", usage.FreeBytes))
	}

	target, err := r.resolver.Resolve(r.job.Target)
	if err != nil {
		return fmt.Errorf("resolving target %s: %w", r.job.Target, err)
	}
	targetClient, err := r.provider.NewClient(ctx, target.Profile)
	if err != nil {
		return fmt.Errorf("storage client for target %s: %w", r.job.Target, err)
	}

	lookup, refStats, err := r.buildLookup(ctx, workdir)
	if err != nil {
		return err
	}
	report.Reference = ReferenceStats{
		CustomerFiles: len(r.job.Sources.Customers),
		Customers:     refStats.RowsLoaded,
		DuplicateKeys: refStats.DuplicateKeys,
		Malformed:     refStats.MalformedRows,
	}
	ll.Info("customer dictionary loaded",
		slog.Int64("customers", refStats.RowsLoaded),
		slog.Int64("duplicate_keys", refStats.DuplicateKeys),
		slog.Int64("malformed", refStats.MalformedRows))

	joiner := enrich.NewJoiner(lookup)
	agg := aggregate.New()
	arena, err := partition.NewArena(workdir)
	if err != nil {
		return err
	}
	defer func() { _ = arena.Close() }()

	st, streamErr := r.streamSales(ctx, workdir, joiner, agg, arena)
	report.Input = InputStats{
		SalesFiles:    st.files,
		RowsRead:      st.rowsRead(),
		Malformed:     st.malformed(),
		BadTimestamps: st.badTimestamps,
	}
	report.Join = joiner.Stats()
	if streamErr != nil {
		return streamErr
	}

	// Every row read must be enriched, counted malformed, or counted as
	// a bad timestamp, and the arena and the aggregator must have seen
	// the same records. Anything else is silent data loss.
	enriched := arena.TotalCount()
	if got := agg.TotalCount(); got != enriched {
		return fmt.Errorf("data loss detected: %d records partitioned but %d aggregated", enriched, got)
	}
	if got := enriched + report.Input.Malformed + report.Input.BadTimestamps; got != report.Input.RowsRead {
		return fmt.Errorf("data loss detected: read %d rows but accounted for %d", report.Input.RowsRead, got)
	}

	summaryRows := agg.Finalize()
	var summaryRevenue float64
	for _, row := range summaryRows {
		summaryRevenue += row.TotalRevenue
	}
	if !revenueMatches(summaryRevenue, agg.TotalRevenue()) {
		return fmt.Errorf("summary revenue %f diverges from streamed revenue %f", summaryRevenue, agg.TotalRevenue())
	}

	report.Output.EnrichedRecords = enriched
	report.Output.SummaryGroups = len(summaryRows)
	report.Output.TotalRevenue = agg.TotalRevenue()

	ll.Info("streaming pass complete",
		slog.Int64("enriched", enriched),
		slog.Int("partitions", len(arena.Partitions())),
		slog.Int("summary_groups", len(summaryRows)),
		slog.Int64("unmatched", report.Join.Unmatched))

	outcomes := r.flushPartitions(ctx, workdir, arena, target, targetClient)
	summaryOutcome := r.flushSummary(ctx, workdir, summaryRows, target, targetClient)

	return r.register(ctx, report, outcomes, summaryOutcome)
}

// register announces flushed output and records it in the ledger.
// Events go out only after every partition flush has finished, and only
// for partitions whose parts are all uploaded.
func (r *Runner) register(
	ctx context.Context,
	report *RunReport,
	outcomes []partitionOutcome,
	summary partitionOutcome,
) error {
	// Announcements and ledger rows describe uploads that already
	// happened, cancelled run or not.
	ctx = context.WithoutCancel(ctx)
	ll := logctx.FromContext(ctx)
	registrar := catalog.NewRegistrar(r.runID, r.notifier)

	var errs *multierror.Error

	enrichedSpec := catalog.EnrichedTableSpec(r.job.Tables.Enriched)
	report.Enriched = make([]PartitionReport, 0, len(outcomes))
	for _, out := range outcomes {
		if out.err == nil {
			if err := registrar.PartitionWritten(ctx, enrichedSpec, out.key.Year, out.key.Month, out.location, out.files); err != nil {
				out.err = fmt.Errorf("announcing partition %s: %w", out.key, err)
			}
		}
		if out.err == nil {
			partitionsFlushed.Add(ctx, 1)
			report.Output.PartitionsWritten++
		} else {
			partitionFlushFailed.Add(ctx, 1)
			report.Output.PartitionsFailed++
			errs = multierror.Append(errs, fmt.Errorf("partition %s: %w", out.label, out.err))
			ll.Error("partition failed",
				slog.String("partition", out.label),
				slog.Any("error", out.err))
		}
		year, month := out.key.Year, out.key.Month
		r.recordPartition(ctx, r.job.Tables.Enriched, &year, &month, out)
		report.Enriched = append(report.Enriched, out.toReport())
	}

	if summary.err == nil && len(summary.files) > 0 {
		if err := registrar.TableWritten(ctx, catalog.SummaryTableSpec(r.job.Tables.Summary), summary.location, summary.files); err != nil {
			summary.err = fmt.Errorf("announcing summary: %w", err)
		}
	}
	if summary.err != nil {
		errs = multierror.Append(errs, fmt.Errorf("summary: %w", summary.err))
		ll.Error("summary failed", slog.Any("error", summary.err))
	}
	r.recordPartition(ctx, r.job.Tables.Summary, nil, nil, summary)
	sr := summary.toReport()
	report.Summary = &sr

	return errs.ErrorOrNil()
}

// recordPartition upserts one ledger row for an output unit. Ledger
// trouble is logged, not fatal: the data is already in object storage.
func (r *Runner) recordPartition(ctx context.Context, tableName string, year, month *int32, out partitionOutcome) {
	if r.ledger == nil {
		return
	}

	label := tableName
	if year != nil {
		label = tableName + "/" + out.key.Path()
	}
	status := PartitionWritten
	if out.err != nil {
		status = PartitionFailed
	}

	var size, fingerprint int64
	for _, f := range out.files {
		size += f.FileSize
		fingerprint ^= f.Fingerprint
	}

	if err := r.ledger.UpsertPartition(ctx, martdb.UpsertPartitionParams{
		RunID:       r.runID,
		Label:       label,
		TableName:   tableName,
		Year:        year,
		Month:       month,
		Status:      status,
		Location:    out.location,
		RecordCount: out.records,
		FileSize:    size,
		FileCount:   int32(len(out.files)),
		Fingerprint: fingerprint,
	}); err != nil {
		logctx.FromContext(ctx).Warn("could not record partition in ledger",
			slog.String("label", label),
			slog.Any("error", err))
	}
}

// revenueMatches compares two revenue totals folded in different
// orders; float addition is not associative, so allow a relative slop.
func revenueMatches(a, b float64) bool {
	diff := math.Abs(a - b)
	return diff <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
