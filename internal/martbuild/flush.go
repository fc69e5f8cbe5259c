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
	"os"
	"path"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/martrunner/internal/catalog"
	"github.com/cardinalhq/martrunner/internal/cloudstorage"
	"github.com/cardinalhq/martrunner/internal/helpers"
	"github.com/cardinalhq/martrunner/internal/parquetwriter"
	"github.com/cardinalhq/martrunner/internal/partition"
	"github.com/cardinalhq/martrunner/internal/sales"
	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// partitionOutcome is the result of flushing one output unit. A nil err
// means the unit's data is fully uploaded and its stale leftovers are
// gone; only then may it be announced.
type partitionOutcome struct {
	key      partition.Key
	label    string
	location string
	records  int64
	files    []catalog.FileStat
	err      error
}

func (o partitionOutcome) toReport() PartitionReport {
	pr := PartitionReport{
		Label:    o.label,
		Status:   PartitionWritten,
		Location: o.location,
		Records:  o.records,
		Files:    o.files,
	}
	if o.err != nil {
		pr.Status = PartitionFailed
		pr.Error = o.err.Error()
	}
	return pr
}

// flushPartitions drains the arena into parquet and object storage,
// partitions in parallel. Workers never abort each other: each outcome
// carries its own error and the caller sorts announced from flagged.
func (r *Runner) flushPartitions(
	ctx context.Context,
	workdir string,
	arena *partition.Arena,
	target storageprofile.Location,
	client cloudstorage.Client,
) []partitionOutcome {
	ctx, span := tracer.Start(ctx, "martbuild.flushPartitions")
	defer span.End()

	keys := arena.Partitions()
	outcomes := make([]partitionOutcome, len(keys))

	var g errgroup.Group
	g.SetLimit(r.opts.PartitionWorkers)
	for i, key := range keys {
		g.Go(func() error {
			outcomes[i] = r.flushOnePartition(ctx, workdir, arena, key, target, client)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (r *Runner) flushOnePartition(
	ctx context.Context,
	workdir string,
	arena *partition.Arena,
	key partition.Key,
	target storageprofile.Location,
	client cloudstorage.Client,
) partitionOutcome {
	out := partitionOutcome{key: key, label: key.Path()}

	loc := target
	loc.Key = helpers.MakePartitionDir(target.Key, key.Year, key.Month)
	out.location = loc.URI() + "/"

	dir := filepath.Join(workdir, "out", filepath.FromSlash(key.Path()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		out.err = fmt.Errorf("creating partition scratch %s: %w", dir, err)
		return out
	}

	writer, err := parquetwriter.NewWriter[sales.EnrichedRecord](parquetwriter.WriterConfig{
		Dir:            dir,
		RecordsPerFile: r.opts.RecordsPerFile,
	})
	if err != nil {
		out.err = err
		return out
	}

	reader, err := arena.Reader(key)
	if err != nil {
		writer.Abort()
		out.err = err
		return out
	}

	for {
		var rec sales.EnrichedRecord
		err := reader.Next(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writer.Abort()
			out.err = fmt.Errorf("replaying partition %s: %w", key, err)
			return out
		}
		if err := writer.Write(rec); err != nil {
			writer.Abort()
			out.err = fmt.Errorf("writing partition %s: %w", key, err)
			return out
		}
	}

	results, err := writer.Close(ctx)
	if err != nil {
		out.err = fmt.Errorf("finishing partition %s: %w", key, err)
		return out
	}

	var written int64
	for _, res := range results {
		written += res.RecordCount
	}
	if want := arena.Count(key); written != want {
		out.err = fmt.Errorf("data loss detected in partition %s: wrote %d of %d records", key, written, want)
		return out
	}

	// The partition is flushed locally; finish the upload and cleanup
	// even if the run is being interrupted, so storage is never left
	// half-overwritten.
	upCtx := context.WithoutCancel(ctx)

	keep := mapset.NewThreadUnsafeSet[string]()
	out.files = make([]catalog.FileStat, 0, len(results))
	for part, res := range results {
		objectKey := helpers.MakePartitionObjectID(target.Key, key.Year, key.Month, part)
		if err := client.UploadObject(upCtx, target.Profile.Bucket, objectKey, res.FileName); err != nil {
			out.err = fmt.Errorf("uploading %s: %w", objectKey, err)
			return out
		}
		keep.Add(objectKey)
		out.files = append(out.files, catalog.FileStat{
			Key:         path.Base(objectKey),
			RecordCount: res.RecordCount,
			FileSize:    res.FileSize,
			Fingerprint: res.Fingerprint,
		})
		out.records += res.RecordCount
	}

	prefix := helpers.MakePartitionDir(target.Key, key.Year, key.Month) + "/"
	if err := deleteStaleObjects(upCtx, client, target.Profile.Bucket, prefix, keep); err != nil {
		out.err = err
		return out
	}

	return out
}

// flushSummary writes the whole summary mart as one unpartitioned
// table. An empty run still clears the summary prefix: the mart is
// fully recomputed, so leftovers from a previous run are stale by
// definition.
func (r *Runner) flushSummary(
	ctx context.Context,
	workdir string,
	rows []sales.SummaryRecord,
	target storageprofile.Location,
	client cloudstorage.Client,
) partitionOutcome {
	ctx, span := tracer.Start(ctx, "martbuild.flushSummary")
	defer span.End()

	out := partitionOutcome{label: helpers.SummaryPrefix}

	loc := target
	loc.Key = helpers.MakeSummaryDir(target.Key)
	out.location = loc.URI() + "/"

	dir := filepath.Join(workdir, "out", helpers.SummaryPrefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		out.err = fmt.Errorf("creating summary scratch %s: %w", dir, err)
		return out
	}

	writer, err := parquetwriter.NewWriter[sales.SummaryRecord](parquetwriter.WriterConfig{
		Dir:            dir,
		RecordsPerFile: r.opts.RecordsPerFile,
	})
	if err != nil {
		out.err = err
		return out
	}
	if err := writer.Write(rows...); err != nil {
		writer.Abort()
		out.err = fmt.Errorf("writing summary: %w", err)
		return out
	}
	results, err := writer.Close(ctx)
	if err != nil {
		out.err = fmt.Errorf("finishing summary: %w", err)
		return out
	}

	upCtx := context.WithoutCancel(ctx)

	keep := mapset.NewThreadUnsafeSet[string]()
	out.files = make([]catalog.FileStat, 0, len(results))
	for part, res := range results {
		objectKey := helpers.MakeSummaryObjectID(target.Key, part)
		if err := client.UploadObject(upCtx, target.Profile.Bucket, objectKey, res.FileName); err != nil {
			out.err = fmt.Errorf("uploading %s: %w", objectKey, err)
			return out
		}
		keep.Add(objectKey)
		out.files = append(out.files, catalog.FileStat{
			Key:         path.Base(objectKey),
			RecordCount: res.RecordCount,
			FileSize:    res.FileSize,
			Fingerprint: res.Fingerprint,
		})
		out.records += res.RecordCount
	}

	prefix := helpers.MakeSummaryDir(target.Key) + "/"
	if err := deleteStaleObjects(upCtx, client, target.Profile.Bucket, prefix, keep); err != nil {
		out.err = err
		return out
	}

	return out
}

// deleteStaleObjects removes objects under prefix that are not in keep.
// It runs after the new parts are uploaded, so a concurrent reader sees
// old parts or new parts, never an empty partition.
func deleteStaleObjects(
	ctx context.Context,
	client cloudstorage.Client,
	bucket, prefix string,
	keep mapset.Set[string],
) error {
	existing, err := client.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return fmt.Errorf("listing %s: %w", prefix, err)
	}

	stale := mapset.NewThreadUnsafeSet(existing...).Difference(keep)
	if stale.Cardinality() == 0 {
		return nil
	}

	failed, err := client.DeleteObjects(ctx, bucket, stale.ToSlice())
	if err != nil {
		return fmt.Errorf("deleting stale objects under %s: %w", prefix, err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d stale objects under %s could not be deleted", len(failed), prefix)
	}
	return nil
}
