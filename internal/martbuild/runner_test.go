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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/martrunner/internal/catalog"
	"github.com/cardinalhq/martrunner/internal/cloudstorage"
	"github.com/cardinalhq/martrunner/internal/jobfile"
	"github.com/cardinalhq/martrunner/internal/pipeline"
	"github.com/cardinalhq/martrunner/internal/sales"
)

const testCustomersNDJSON = `{"customer_id": "C1", "age_group": "26-35", "membership_tier": "Gold", "signup_date": "2023-04-01"}
`

// testSalesCSV is the worked example: two January transactions (one
// for an unknown customer) and one February transaction.
const testSalesCSV = `transaction_id,timestamp,customer_id,product,quantity,unit_price,region,total_amount
T1,2025-01-05 10:30:00.123456,C1,Laptop,1,100.00,North,100.00
T2,2025-01-20 14:00:00,C2,Mouse,2,25.00,South,50.00
T3,2025-02-01T09:15:30,C1,Keyboard,3,25.00,North,75.00
`

func writeSources(t *testing.T, salesCSV, customersNDJSON string) (salesPath, customersPath string) {
	t.Helper()
	dir := t.TempDir()
	salesPath = filepath.Join(dir, "sales.csv")
	customersPath = filepath.Join(dir, "customers.json")
	require.NoError(t, os.WriteFile(salesPath, []byte(salesCSV), 0o644))
	require.NoError(t, os.WriteFile(customersPath, []byte(customersNDJSON), 0o644))
	return salesPath, customersPath
}

func testJob(salesPath, customersPath, target string) jobfile.Job {
	return jobfile.Job{
		Version: 1,
		Name:    "test",
		Target:  target,
		Sources: jobfile.Sources{
			Sales:     []string{salesPath},
			Customers: []string{customersPath},
		},
		Tables: jobfile.Tables{
			Enriched: "sales_enriched",
			Summary:  "sales_summary",
		},
	}
}

func quietNotifier() catalog.Notifier {
	return catalog.NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func runTestJob(t *testing.T, job jobfile.Job, notifier catalog.Notifier, opts Options) (*RunReport, error) {
	t.Helper()
	if notifier == nil {
		notifier = quietNotifier()
	}
	opts.ScratchDir = t.TempDir()
	runner, err := NewRunner(job, "01TESTRUN", cloudstorage.NewFileClientProvider(""), notifier, nil, opts)
	require.NoError(t, err)
	return runner.Run(context.Background())
}

func readParquet[T any](t *testing.T, filename string) []T {
	t.Helper()
	fh, err := os.Open(filename)
	require.NoError(t, err)
	defer func() { _ = fh.Close() }()

	stat, err := fh.Stat()
	require.NoError(t, err)
	pf, err := parquet.OpenFile(fh, stat.Size())
	require.NoError(t, err)

	reader := parquet.NewGenericReader[T](pf)
	defer func() { _ = reader.Close() }()

	var out []T
	buf := make([]T, 64)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func listParts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRunWorkedExample(t *testing.T) {
	salesPath, customersPath := writeSources(t, testSalesCSV, testCustomersNDJSON)
	target := t.TempDir()

	report, err := runTestJob(t, testJob(salesPath, customersPath, target), nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, RunSucceeded, report.Status)
	assert.Equal(t, int64(3), report.Input.RowsRead)
	assert.Zero(t, report.Input.Malformed)
	assert.Zero(t, report.Input.BadTimestamps)
	assert.Equal(t, int64(3), report.Output.EnrichedRecords)
	assert.Equal(t, 2, report.Output.PartitionsWritten)
	assert.Zero(t, report.Output.PartitionsFailed)
	assert.Equal(t, int64(1), report.Join.Unmatched)
	assert.Equal(t, int64(2), report.Join.Matched)
	assert.InDelta(t, 225.0, report.Output.TotalRevenue, 1e-9)

	jan := readParquet[sales.EnrichedRecord](t,
		filepath.Join(target, "enriched", "year=2025", "month=1", "part-00000.snappy.parquet"))
	require.Len(t, jan, 2)

	byID := make(map[string]sales.EnrichedRecord, len(jan))
	for _, rec := range jan {
		byID[rec.TransactionID] = rec
	}

	t1 := byID["T1"]
	require.NotNil(t, t1.MembershipTier)
	assert.Equal(t, "Gold", *t1.MembershipTier)
	assert.Equal(t, "2025-01-05 10:30:00.123456", t1.Timestamp)
	assert.Equal(t, int32(5), t1.Day)

	// The unmatched transaction survives with nil customer fields.
	t2 := byID["T2"]
	assert.Equal(t, "C2", t2.CustomerID)
	assert.Nil(t, t2.AgeGroup)
	assert.Nil(t, t2.MembershipTier)
	assert.Nil(t, t2.SignupDate)

	feb := readParquet[sales.EnrichedRecord](t,
		filepath.Join(target, "enriched", "year=2025", "month=2", "part-00000.snappy.parquet"))
	require.Len(t, feb, 1)
	assert.Equal(t, "T3", feb[0].TransactionID)
	assert.Equal(t, "2025-02-01T09:15:30", feb[0].Timestamp)

	summary := readParquet[sales.SummaryRecord](t,
		filepath.Join(target, "summary", "part-00000.snappy.parquet"))
	require.Len(t, summary, 3)

	var revenue float64
	for _, row := range summary {
		revenue += row.TotalRevenue
	}
	assert.InDelta(t, 225.0, revenue, 1e-6)

	var janRevenue float64
	var janCount int64
	for _, row := range summary {
		if row.Year == 2025 && row.Month == 1 {
			janRevenue += row.TotalRevenue
			janCount += row.TransactionCount
		}
	}
	assert.InDelta(t, 150.0, janRevenue, 1e-6)
	assert.Equal(t, int64(2), janCount)
}

func TestRunCountsPerRecordErrors(t *testing.T) {
	salesCSV := testSalesCSV +
		"T4,not-a-date,C1,Monitor,1,10.00,East,10.00\n" + // bad timestamp
		"T5,2025-01-02 00:00:00,C1\n" // short row
	salesPath, customersPath := writeSources(t, salesCSV, testCustomersNDJSON)
	target := t.TempDir()

	report, err := runTestJob(t, testJob(salesPath, customersPath, target), nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(5), report.Input.RowsRead)
	assert.Equal(t, int64(1), report.Input.Malformed)
	assert.Equal(t, int64(1), report.Input.BadTimestamps)
	assert.Equal(t, int64(3), report.Output.EnrichedRecords)

	// Cardinality: every input row is enriched or counted.
	got := report.Output.EnrichedRecords + report.Input.Malformed + report.Input.BadTimestamps
	assert.Equal(t, report.Input.RowsRead, got)
}

func TestRunIdempotentOverwrite(t *testing.T) {
	salesPath, customersPath := writeSources(t, testSalesCSV, testCustomersNDJSON)
	target := t.TempDir()
	job := testJob(salesPath, customersPath, target)

	_, err := runTestJob(t, job, nil, Options{})
	require.NoError(t, err)

	janDir := filepath.Join(target, "enriched", "year=2025", "month=1")
	firstRun := listParts(t, janDir)
	require.Equal(t, []string{"part-00000.snappy.parquet"}, firstRun)

	// Plant a leftover from a hypothetical earlier, larger run.
	stale := filepath.Join(janDir, "part-00001.snappy.parquet")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	report, err := runTestJob(t, job, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Output.PartitionsWritten)

	// Same deterministic part set, stale part gone: overwrite, not append.
	assert.Equal(t, firstRun, listParts(t, janDir))

	jan := readParquet[sales.EnrichedRecord](t, filepath.Join(janDir, "part-00000.snappy.parquet"))
	assert.Len(t, jan, 2)
}

func TestRunOrderIndependentSummary(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(testSalesCSV), "\n")
	header, rows := lines[0], lines[1:]
	shuffled := []string{header, rows[2], rows[0], rows[1]}

	salesA, customersA := writeSources(t, testSalesCSV, testCustomersNDJSON)
	salesB, customersB := writeSources(t, strings.Join(shuffled, "\n")+"\n", testCustomersNDJSON)

	targetA, targetB := t.TempDir(), t.TempDir()
	_, err := runTestJob(t, testJob(salesA, customersA, targetA), nil, Options{})
	require.NoError(t, err)
	_, err = runTestJob(t, testJob(salesB, customersB, targetB), nil, Options{})
	require.NoError(t, err)

	summaryA := readParquet[sales.SummaryRecord](t, filepath.Join(targetA, "summary", "part-00000.snappy.parquet"))
	summaryB := readParquet[sales.SummaryRecord](t, filepath.Join(targetB, "summary", "part-00000.snappy.parquet"))
	assert.Equal(t, summaryA, summaryB)
}

func TestRunSplitsPartFiles(t *testing.T) {
	salesPath, customersPath := writeSources(t, testSalesCSV, testCustomersNDJSON)
	target := t.TempDir()

	report, err := runTestJob(t, testJob(salesPath, customersPath, target), nil, Options{RecordsPerFile: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Output.EnrichedRecords)

	janDir := filepath.Join(target, "enriched", "year=2025", "month=1")
	assert.Equal(t, []string{"part-00000.snappy.parquet", "part-00001.snappy.parquet"}, listParts(t, janDir))
}

func TestRunReturnsBatchesToPool(t *testing.T) {
	salesPath, customersPath := writeSources(t, testSalesCSV, testCustomersNDJSON)
	target := t.TempDir()

	before := pipeline.GlobalBatchPoolStats()
	_, err := runTestJob(t, testJob(salesPath, customersPath, target), nil, Options{})
	require.NoError(t, err)
	after := pipeline.GlobalBatchPoolStats()

	assert.Equal(t, before.Gets-before.Puts, after.Gets-after.Puts,
		"every batch handed out during the run must go back to the pool")
}

// failingNotifier rejects announcements for one partition label.
type failingNotifier struct {
	failLabel string
}

func (n *failingNotifier) Notify(_ context.Context, event catalog.PartitionEvent) error {
	if event.PartitionLabel() == n.failLabel {
		return fmt.Errorf("catalog rejected %s", event.PartitionLabel())
	}
	return nil
}

func (n *failingNotifier) Close() error { return nil }

func TestRunFailedAnnouncementFlagsPartition(t *testing.T) {
	salesPath, customersPath := writeSources(t, testSalesCSV, testCustomersNDJSON)
	target := t.TempDir()

	report, err := runTestJob(t, testJob(salesPath, customersPath, target),
		&failingNotifier{failLabel: "sales_enriched/year=2025/month=1"}, Options{})
	require.Error(t, err)

	assert.Equal(t, RunFailed, report.Status)
	assert.Equal(t, 1, report.Output.PartitionsWritten)
	assert.Equal(t, 1, report.Output.PartitionsFailed)

	statuses := make(map[string]string, len(report.Enriched))
	for _, pr := range report.Enriched {
		statuses[pr.Label] = pr.Status
	}
	assert.Equal(t, PartitionFailed, statuses["year=2025/month=1"])
	assert.Equal(t, PartitionWritten, statuses["year=2025/month=2"])
}
