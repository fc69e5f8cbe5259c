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
	"strings"

	"github.com/cardinalhq/martrunner/internal/awsclient"
	"github.com/cardinalhq/martrunner/internal/helpers"
)

// s3Client serves AWS buckets and GCP buckets spoken to through the
// S3 interop endpoint.
type s3Client struct {
	awsS3Client *awsclient.S3Client
	isGCP       bool
}

// DownloadObject downloads an object to a temp file. GCP may
// transparently decompress .gz objects; when that happens the .gz
// suffix is dropped so readers do not try to decompress plain bytes.
func (c *s3Client) DownloadObject(ctx context.Context, tmpdir, bucket, key string) (string, int64, bool, error) {
	filename, size, notFound, err := downloadS3Object(ctx, tmpdir, c.awsS3Client, bucket, key)
	if err != nil || notFound {
		return filename, size, notFound, err
	}

	if c.isGCP && strings.HasSuffix(filename, ".gz") {
		isGzip, checkErr := helpers.IsGzipFile(filename)
		if checkErr == nil && !isGzip {
			newFilename := strings.TrimSuffix(filename, ".gz")
			if renameErr := os.Rename(filename, newFilename); renameErr != nil {
				return "", 0, false, renameErr
			}
			filename = newFilename
		}
	}

	return filename, size, notFound, nil
}

func (c *s3Client) UploadObject(ctx context.Context, bucket, key, sourceFilename string) error {
	return uploadS3Object(ctx, c.awsS3Client, bucket, key, sourceFilename)
}

func (c *s3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	return deleteS3Object(ctx, c.awsS3Client, bucket, key)
}

func (c *s3Client) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]string, error) {
	return deleteS3Objects(ctx, c.awsS3Client, bucket, keys)
}

func (c *s3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	return listS3Objects(ctx, c.awsS3Client, bucket, prefix)
}
