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

package cloudstorage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

func TestFileClientLifecycle(t *testing.T) {
	base := t.TempDir()
	provider := NewFileClientProvider(base)
	client, err := provider.NewClient(context.Background(), storageprofile.StorageProfile{})
	require.NoError(t, err)

	src := filepath.Join(base, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	require.NoError(t, client.UploadObject(context.Background(), "bucket", "path/file.txt", src))

	tmp := t.TempDir()
	dst, size, notFound, err := client.DownloadObject(context.Background(), tmp, "bucket", "path/file.txt")
	require.NoError(t, err)
	require.False(t, notFound)
	require.Equal(t, int64(5), size)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	require.NoError(t, client.DeleteObject(context.Background(), "bucket", "path/file.txt"))
	_, _, notFound, err = client.DownloadObject(context.Background(), tmp, "bucket", "path/file.txt")
	require.NoError(t, err)
	require.True(t, notFound)
}

func TestFileClientPreservesExtensions(t *testing.T) {
	base := t.TempDir()
	provider := NewFileClientProvider(base)
	client, err := provider.NewClient(context.Background(), storageprofile.StorageProfile{})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		key     string
		wantExt string
		content []byte
	}{
		{
			name:    "csv source",
			key:     "raw/sales_2025.csv",
			wantExt: ".csv",
			content: []byte("transaction_id,product\nTXN000001,Laptop"),
		},
		{
			name:    "gzipped csv source",
			key:     "raw/sales_2025.csv.gz",
			wantExt: ".csv.gz",
			content: []byte("not really gzip, extension is what matters"),
		},
		{
			name:    "ndjson reference",
			key:     "raw/customers.ndjson",
			wantExt: ".ndjson",
			content: []byte(`{"customer_id":"CUST0001"}`),
		},
		{
			name:    "nested parquet part",
			key:     "salesmart/enriched/year=2025/month=1/part-00000.snappy.parquet",
			wantExt: ".parquet",
			content: []byte("parquet bytes"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := filepath.Join(base, "test-src")
			require.NoError(t, os.WriteFile(src, tc.content, 0o644))

			require.NoError(t, client.UploadObject(context.Background(), "test-bucket", tc.key, src))

			tmp := t.TempDir()
			dst, size, notFound, err := client.DownloadObject(context.Background(), tmp, "test-bucket", tc.key)
			require.NoError(t, err)
			require.False(t, notFound)
			require.Equal(t, int64(len(tc.content)), size)

			require.True(t, strings.HasSuffix(filepath.Base(dst), tc.wantExt),
				"Downloaded file %q should end with extension %q", dst, tc.wantExt)

			data, err := os.ReadFile(dst)
			require.NoError(t, err)
			require.Equal(t, tc.content, data)

			require.NoError(t, client.DeleteObject(context.Background(), "test-bucket", tc.key))
		})
	}
}

func TestFileClientListObjects(t *testing.T) {
	base := t.TempDir()
	provider := NewFileClientProvider(base)
	client, err := provider.NewClient(context.Background(), storageprofile.StorageProfile{})
	require.NoError(t, err)

	src := filepath.Join(base, "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	ctx := context.Background()
	keys := []string{
		"salesmart/enriched/year=2025/month=1/part-00000.snappy.parquet",
		"salesmart/enriched/year=2025/month=1/part-00001.snappy.parquet",
		"salesmart/enriched/year=2025/month=2/part-00000.snappy.parquet",
		"salesmart/summary/part-00000.snappy.parquet",
	}
	for _, key := range keys {
		require.NoError(t, client.UploadObject(ctx, "bucket", key, src))
	}

	got, err := client.ListObjects(ctx, "bucket", "salesmart/enriched/year=2025/month=1/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"salesmart/enriched/year=2025/month=1/part-00000.snappy.parquet",
		"salesmart/enriched/year=2025/month=1/part-00001.snappy.parquet",
	}, got)

	got, err = client.ListObjects(ctx, "bucket", "")
	require.NoError(t, err)
	require.Len(t, got, len(keys))

	got, err = client.ListObjects(ctx, "bucket", "salesmart/enriched/year=2024/")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = client.ListObjects(ctx, "missing-bucket", "")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFileClientDeleteObjects(t *testing.T) {
	base := t.TempDir()
	provider := NewFileClientProvider(base)
	client, err := provider.NewClient(context.Background(), storageprofile.StorageProfile{})
	require.NoError(t, err)

	src := filepath.Join(base, "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	ctx := context.Background()
	require.NoError(t, client.UploadObject(ctx, "bucket", "a/one", src))
	require.NoError(t, client.UploadObject(ctx, "bucket", "a/two", src))

	failed, err := client.DeleteObjects(ctx, "bucket", []string{"a/one", "a/two", "a/never-existed"})
	require.NoError(t, err)
	require.Empty(t, failed)

	got, err := client.ListObjects(ctx, "bucket", "a/")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFileClientBucketIsPath(t *testing.T) {
	// With no base the bucket carries the directory, which is how
	// file:// locations address local data.
	dir := t.TempDir()
	client, err := NewCloudManagers(context.Background()).NewClient(context.Background(),
		storageprofile.StorageProfile{CloudProvider: storageprofile.CloudFile, Bucket: dir})
	require.NoError(t, err)

	src := filepath.Join(dir, "src.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b"), 0o644))

	ctx := context.Background()
	require.NoError(t, client.UploadObject(ctx, dir, "out/data.csv", src))
	require.FileExists(t, filepath.Join(dir, "out", "data.csv"))

	keys, err := client.ListObjects(ctx, dir, "out/")
	require.NoError(t, err)
	require.Equal(t, []string{"out/data.csv"}, keys)
}
