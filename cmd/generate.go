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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/martrunner/internal/datagen"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample input feeds",
		Long: `Write deterministic sample feeds in the formats the pipeline ingests:
sales transactions as CSV with a header row, customer reference data as
newline-delimited JSON. The same seed always produces the same bytes.`,
	}

	cmd.AddCommand(getGenerateSalesCmd())
	cmd.AddCommand(getGenerateCustomersCmd())

	rootCmd.AddCommand(cmd)
}

func getGenerateSalesCmd() *cobra.Command {
	var (
		out       string
		rows      int
		customers int
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Generate the sales transaction feed (CSV)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return writeGenerated(out, func(w io.Writer) (int, error) {
				return datagen.WriteSales(w, datagen.SalesConfig{
					Records:   rows,
					Customers: customers,
					Seed:      seed,
				})
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "-", "Output file ('-' for stdout)")
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of transactions to generate (0 for the default)")
	cmd.Flags().IntVar(&customers, "customers", 0, "Size of the customer id space (0 for the default)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 for the default)")

	return cmd
}

func getGenerateCustomersCmd() *cobra.Command {
	var (
		out   string
		count int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Generate the customer reference feed (NDJSON)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return writeGenerated(out, func(w io.Writer) (int, error) {
				return datagen.WriteCustomers(w, datagen.CustomersConfig{
					Count: count,
					Seed:  seed,
				})
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "-", "Output file ('-' for stdout)")
	cmd.Flags().IntVar(&count, "count", 0, "Number of customers to generate (0 for the default)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 for the default)")

	return cmd
}

func writeGenerated(out string, write func(io.Writer) (int, error)) error {
	if out == "" || out == "-" {
		_, err := write(os.Stdout)
		return err
	}

	fh, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}

	n, err := write(fh)
	if closeErr := fh.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Fprintf(os.Stderr, "wrote %d records to %s\n", n, out)
	return nil
}
