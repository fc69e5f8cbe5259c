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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/martrunner/internal/azureclient"
)

// azureClient implements Client for Azure Blob Storage. Buckets are
// container names.
type azureClient struct {
	blobClient *azureclient.BlobClient
}

func newAzureClientFromManager(blobClient *azureclient.BlobClient) Client {
	return &azureClient{blobClient: blobClient}
}

func (c *azureClient) DownloadObject(ctx context.Context, tmpdir, bucket, key string) (string, int64, bool, error) {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureDownloadObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	// Keep the blob's base name so format detection sees the extension.
	filename := filepath.Base(key)
	f, err := os.CreateTemp(tmpdir, "*-"+filename)
	if err != nil {
		return "", 0, false, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	resp, err := c.blobClient.Client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		_ = os.Remove(f.Name())

		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			downloadErrors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("bucket", bucket),
				attribute.String("reason", "not_found"),
			))
			return "", 0, true, nil
		}
		downloadErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("reason", "unknown"),
		))
		return "", 0, false, fmt.Errorf("download blob %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	size, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = os.Remove(f.Name())
		downloadErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("reason", "copy_failed"),
		))
		return "", 0, false, fmt.Errorf("copy blob content: %w", err)
	}

	downloadCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bucket", bucket),
	))
	downloadBytes.Add(ctx, size, metric.WithAttributes(
		attribute.String("bucket", bucket),
	))

	return f.Name(), size, false, nil
}

func (c *azureClient) UploadObject(ctx context.Context, bucket, key, sourceFilename string) error {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureUploadObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	file, err := os.Open(sourceFilename)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourceFilename, err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat source file: %w", err)
	}

	_, err = c.blobClient.Client.UploadStream(ctx, bucket, key, file, &azblob.UploadStreamOptions{
		Metadata: map[string]*string{
			"writer": to.Ptr("martrunner-go"),
		},
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("application/vnd.apache.parquet"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", bucket, key, err)
	}

	uploadCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bucket", bucket),
	))
	uploadBytes.Add(ctx, stat.Size(), metric.WithAttributes(
		attribute.String("bucket", bucket),
	))

	return nil
}

func (c *azureClient) DeleteObject(ctx context.Context, bucket, key string) error {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureDeleteObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	_, err := c.blobClient.Client.DeleteBlob(ctx, bucket, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete blob %s/%s: %w", bucket, key, err)
	}
	return nil
}

// DeleteObjects deletes blobs one at a time; the service has no batch
// delete in this SDK surface.
func (c *azureClient) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureDeleteObjects",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.Int("object_count", len(keys)),
		),
	)
	defer span.End()

	var failed []string
	for _, key := range keys {
		_, err := c.blobClient.Client.DeleteBlob(ctx, bucket, key, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
			failed = append(failed, key)
			span.RecordError(fmt.Errorf("failed to delete blob %s/%s: %w", bucket, key, err))
		}
	}

	if len(failed) > 0 {
		span.SetAttributes(attribute.Int("failed_object_count", len(failed)))
	}

	return failed, nil
}

func (c *azureClient) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureListObjects",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("prefix", prefix),
		),
	)
	defer span.End()

	var keys []string
	pager := c.blobClient.Client.NewListBlobsFlatPager(bucket, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs %s/%s: %w", bucket, prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}

	return keys, nil
}
