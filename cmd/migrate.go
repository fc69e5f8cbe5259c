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
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/martrunner/internal/martdb"
	"github.com/cardinalhq/martrunner/internal/martdb/migrations"
)

func init() {
	rootCmd.AddCommand(MigrateCmd)
}

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run ledger database migrations",
	Long:  "Apply the run-ledger schema migrations to the MARTDB database",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(5*time.Minute))
		defer cancel()

		pool, err := martdb.Connect(ctx, martdb.SkipMigrationCheck())
		if err != nil {
			return err
		}
		defer pool.Close()

		slog.Info("Running ledger migrations")
		if err := migrations.RunMigrationsUp(context.Background(), pool); err != nil {
			return err
		}
		slog.Info("Ledger migrations completed successfully")
		return nil
	},
}
