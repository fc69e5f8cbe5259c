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
	"github.com/spf13/cobra"

	"github.com/cardinalhq/martrunner/cmd/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspection utilities for written marts",
	Long:  `Utilities for looking at local and remote mart output: parquet contents, storage listings, and ad-hoc SQL.`,
}

func init() {
	inspectCmd.AddCommand(inspect.GetParquetCmd())
	inspectCmd.AddCommand(inspect.GetLSCmd())
	inspectCmd.AddCommand(inspect.GetSQLCmd())
}
