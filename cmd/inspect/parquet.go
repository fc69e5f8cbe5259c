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

// Package inspect holds the subcommands of `martrunner inspect`:
// debugging utilities over written mart output.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/martrunner/internal/filereader"
)

func GetParquetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parquet",
		Short: "Parquet file inspection utilities",
		Long:  `Various utilities for inspecting the parquet part files the pipeline writes.`,
	}

	cmd.AddCommand(getParquetCatSubCmd())
	cmd.AddCommand(getParquetSchemaSubCmd())
	cmd.AddCommand(getParquetSchemaRawSubCmd())
	cmd.AddCommand(getParquetArrowCatSubCmd())

	return cmd
}

func getParquetCatSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat",
		Short: "Output parquet file contents as JSON lines",
		Long:  `Reads a parquet file and outputs each row as a JSON line.`,
		RunE: func(c *cobra.Command, _ []string) error {
			filename, err := c.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}

			limit, err := c.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("failed to get limit flag: %w", err)
			}

			return runParquetCat(filename, limit)
		},
	}

	cmd.Flags().String("file", "", "Parquet file to read")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}

	cmd.Flags().Int("limit", 0, "Maximum number of rows to output (0 for unlimited)")

	return cmd
}

func getParquetSchemaSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Analyze parquet file data to determine actual column types",
		Long:  `Reads rows until every column has a non-nil value or EOF, then outputs a JSON schema with the types found.`,
		RunE: func(c *cobra.Command, _ []string) error {
			filename, err := c.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}

			return runParquetSchemaFromData(filename)
		},
	}

	cmd.Flags().String("file", "", "Parquet file to analyze")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}

	return cmd
}

func getParquetSchemaRawSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema-raw",
		Short: "Print out the raw metadata schema of a Parquet file",
		Long:  `Prints the raw parquet metadata schema structure as defined in the file headers.`,
		RunE: func(c *cobra.Command, _ []string) error {
			filename, err := c.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}

			return runParquetSchemaFromMetadata(filename)
		},
	}

	cmd.Flags().String("file", "", "Parquet file to read")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}

	return cmd
}

func getParquetArrowCatSubCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "arrow-cat",
		Short: "Read a parquet file using Apache Arrow and output as JSON",
		RunE: func(c *cobra.Command, _ []string) error {
			filename, _ := c.Flags().GetString("file")
			if filename == "" {
				return errors.New("file is required")
			}

			return runParquetArrowCat(filename, limit)
		},
	}

	cmd.Flags().String("file", "", "The parquet file to read")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit the number of rows to output (0 for no limit)")

	return cmd
}

func openParquetFile(filename string) (*parquet.File, *os.File, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}

	stat, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, nil, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	pf, err := parquet.OpenFile(fh, stat.Size())
	if err != nil {
		_ = fh.Close()
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return pf, fh, nil
}

func runParquetCat(filename string, limit int) error {
	pf, fh, err := openParquetFile(filename)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()

	reader := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer func() { _ = reader.Close() }()

	rowsOutput := 0
	batchSize := 1000
	if limit > 0 && limit < batchSize {
		batchSize = limit
	}

	for limit <= 0 || rowsOutput < limit {
		currentBatchSize := batchSize
		if limit > 0 && rowsOutput+batchSize > limit {
			currentBatchSize = limit - rowsOutput
		}

		rows := make([]map[string]any, currentBatchSize)
		for i := range rows {
			rows[i] = make(map[string]any)
		}

		n, err := reader.Read(rows)
		if err != nil && err != io.EOF {
			return fmt.Errorf("error reading parquet rows: %w", err)
		}

		if n == 0 {
			break
		}

		for i := 0; i < n; i++ {
			jsonBytes, err := json.Marshal(rows[i])
			if err != nil {
				return fmt.Errorf("error marshaling row to JSON: %w", err)
			}
			fmt.Println(string(jsonBytes))
			rowsOutput++

			if limit > 0 && rowsOutput >= limit {
				return nil
			}
		}

		if err == io.EOF {
			break
		}
	}

	return nil
}

func runParquetSchemaFromMetadata(filename string) error {
	pf, fh, err := openParquetFile(filename)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()

	fmt.Println(pf.Schema().String())
	return nil
}

type ColumnSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ParquetSchema struct {
	Columns []ColumnSchema `json:"columns"`
}

func runParquetSchemaFromData(filename string) error {
	pf, fh, err := openParquetFile(filename)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()

	reader := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer func() { _ = reader.Close() }()

	seenColumns := make(map[string]string)
	allColumns := make(map[string]bool)
	batchSize := 1000

	for {
		rows := make([]map[string]any, batchSize)
		for i := range rows {
			rows[i] = make(map[string]any)
		}

		n, err := reader.Read(rows)
		if err != nil && err != io.EOF {
			return fmt.Errorf("error reading parquet rows: %w", err)
		}

		if n == 0 {
			break
		}

		for i := 0; i < n; i++ {
			for columnName, value := range rows[i] {
				allColumns[columnName] = true
				if _, exists := seenColumns[columnName]; !exists && value != nil {
					seenColumns[columnName] = fmt.Sprintf("%T", value)
				}
			}
		}

		if err == io.EOF {
			break
		}
	}

	var columnNames []string
	for columnName := range allColumns {
		columnNames = append(columnNames, columnName)
	}
	sort.Strings(columnNames)

	schema := ParquetSchema{Columns: make([]ColumnSchema, 0, len(columnNames))}
	for _, columnName := range columnNames {
		typeName := seenColumns[columnName]
		if typeName == "" {
			typeName = "unknown"
		}
		schema.Columns = append(schema.Columns, ColumnSchema{Name: columnName, Type: typeName})
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling schema to JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runParquetArrowCat(filename string, limit int) error {
	fh, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer func() { _ = fh.Close() }()

	ctx := context.Background()
	ar, err := filereader.NewArrowParquetReader(ctx, fh, 1000)
	if err != nil {
		return fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer func() { _ = ar.Close() }()

	schema := ar.Schema()
	fmt.Fprintf(os.Stderr, "Schema has %d fields:\n", len(schema.Fields()))
	for i, field := range schema.Fields() {
		fmt.Fprintf(os.Stderr, "  [%d] %s: %s\n", i, field.Name, field.Type)
	}
	fmt.Fprintln(os.Stderr, "---")

	rowsOutput := 0
	for limit <= 0 || rowsOutput < limit {
		batch, err := ar.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("error reading batch: %w", err)
		}

		for i := 0; i < batch.Len(); i++ {
			if limit > 0 && rowsOutput >= limit {
				break
			}

			jsonBytes, err := json.Marshal(batch.Get(i))
			if err != nil {
				return fmt.Errorf("error marshaling row to JSON: %w", err)
			}
			fmt.Println(string(jsonBytes))
			rowsOutput++
		}
	}

	fmt.Fprintf(os.Stderr, "\nTotal rows read: %d\n", ar.TotalRowsReturned())
	return nil
}
