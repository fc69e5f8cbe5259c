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

package inspect

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/martrunner/internal/cloudstorage"
	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

func GetLSCmd() *cobra.Command {
	var (
		region string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "ls <uri>",
		Short: "List objects under a storage prefix",
		Long:  `Lists object keys under the given prefix URI (s3://, gs://, azure://, file://, or a bare path).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runLS(c.Context(), args[0], region, role)
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Cloud region for the bucket")
	cmd.Flags().StringVar(&role, "role", "", "IAM role to assume for access")

	return cmd
}

func runLS(ctx context.Context, uri, region, role string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := storageprofile.ParseURI(uri)
	if err != nil {
		return err
	}
	if region != "" {
		loc.Profile.Region = region
	}
	if role != "" {
		loc.Profile.Role = role
	}

	client, err := cloudstorage.NewCloudManagers(ctx).NewClient(ctx, loc.Profile)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	keys, err := client.ListObjects(ctx, loc.Profile.Bucket, loc.Key)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", uri, err)
	}

	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
