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

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/martrunner/config"
	"github.com/cardinalhq/martrunner/internal/awsclient"
	"github.com/cardinalhq/martrunner/internal/catalog"
	"github.com/cardinalhq/martrunner/internal/cloudstorage"
	"github.com/cardinalhq/martrunner/internal/idgen"
	"github.com/cardinalhq/martrunner/internal/jobfile"
	"github.com/cardinalhq/martrunner/internal/logctx"
	"github.com/cardinalhq/martrunner/internal/martbuild"
	"github.com/cardinalhq/martrunner/internal/martdb"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run",
		Long: `Read the sales and customer feeds named by the job file, build the
enriched and summary marts, upload them, and announce the written
partitions. The run report is printed to stdout as JSON.`,
		RunE: func(c *cobra.Command, _ []string) error {
			jobPath, err := c.Flags().GetString("job")
			if err != nil {
				return fmt.Errorf("failed to get job flag: %w", err)
			}

			servicename := "martrunner-run"
			doneCtx, doneFx, err := setupTelemetry(servicename, nil)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			return runPipeline(doneCtx, jobPath)
		},
	}

	rootCmd.AddCommand(cmd)

	cmd.Flags().String("job", "", "Job file describing the run (YAML, or env:VAR)")
	if err := cmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Errorf("failed to mark job flag as required: %w", err))
	}
}

func runPipeline(ctx context.Context, jobPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	job, err := jobfile.Load(jobPath)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			slog.Warn("failed to close catalog notifier", slog.Any("error", err))
		}
	}()

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	runID := idgen.NewULIDGenerator().Make(time.Now())
	runner, err := martbuild.NewRunner(job, runID,
		cloudstorage.NewCloudManagers(ctx), notifier, ledgerOrNil(ledger),
		martbuild.Options{
			ScratchDir:       cfg.Run.ScratchDir,
			BatchSize:        cfg.Run.BatchSize,
			RecordsPerFile:   cfg.Run.RecordsPerFile,
			PartitionWorkers: cfg.Run.PartitionWorkers,
		})
	if err != nil {
		return err
	}

	ctx = logctx.WithLogger(ctx, slog.Default())
	report, runErr := runner.Run(ctx)
	if report != nil {
		runDuration.Record(context.Background(),
			float64(report.ElapsedMS)/1000,
			metric.WithAttributeSet(commonAttributes))
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal run report: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(out))
	}
	return runErr
}

// buildNotifier assembles the catalog announcement fan-out. The log
// backend is always present; Kafka, SQS, and Pub/Sub join it when
// configured.
func buildNotifier(ctx context.Context, cfg *config.Config) (catalog.Notifier, error) {
	notifiers := []catalog.Notifier{catalog.NewLogNotifier(slog.Default())}

	if cfg.Catalog.KafkaEnabled {
		n, err := catalog.NewKafkaNotifier(cfg.Catalog.Kafka)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	if cfg.Catalog.SQSEnabled {
		n, err := buildSQSNotifier(ctx, cfg.Catalog.SQS)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	if cfg.Catalog.PubSubEnabled {
		n, err := catalog.NewPubSubNotifier(ctx, cfg.Catalog.PubSub.ProjectID, cfg.Catalog.PubSub.TopicID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	if len(notifiers) == 1 {
		return notifiers[0], nil
	}
	return catalog.NewMultiNotifier(notifiers...), nil
}

func buildSQSNotifier(ctx context.Context, cfg config.SQSConfig) (catalog.Notifier, error) {
	mgr, err := awsclient.NewManager(ctx, awsclient.WithAssumeRoleSessionName("martrunner"))
	if err != nil {
		return nil, err
	}

	var opts []awsclient.SQSOption
	if cfg.Region != "" {
		opts = append(opts, awsclient.WithSQSRegion(cfg.Region))
	}
	if cfg.Role != "" {
		opts = append(opts, awsclient.WithSQSRole(cfg.Role))
	}
	client, err := mgr.GetSQS(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to get SQS client: %w", err)
	}
	return catalog.NewSQSNotifier(client, cfg.QueueURL)
}

// openLedger connects the optional Postgres run ledger. A ledger that
// is enabled but unconfigured is an error; a disabled ledger is nil.
func openLedger(ctx context.Context, cfg *config.Config) (*martdb.Store, error) {
	if !cfg.Run.LedgerEnabled {
		return nil, nil
	}
	store, err := martdb.Open(ctx)
	if err != nil {
		if errors.Is(err, martdb.ErrNotConfigured) {
			return nil, fmt.Errorf("run ledger is enabled but not configured: %w", err)
		}
		return nil, err
	}
	return store, nil
}

// ledgerOrNil keeps a typed-nil *Store out of the Ledger interface.
func ledgerOrNil(store *martdb.Store) martdb.Ledger {
	if store == nil {
		return nil
	}
	return store
}
