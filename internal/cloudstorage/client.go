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

// Package cloudstorage provides one object-store interface over S3,
// GCS, Azure Blob Storage, and the local filesystem. Buckets map to
// containers on Azure and to directories for the file backend.
package cloudstorage

import (
	"context"

	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// Client provides a unified interface for object storage operations
// across providers.
type Client interface {
	// DownloadObject downloads an object to a temp file under tmpdir.
	// Returns the temp filename, size, whether the object was not
	// found, and error. Not-found is not an error.
	DownloadObject(ctx context.Context, tmpdir, bucket, key string) (filename string, size int64, notFound bool, err error)

	// UploadObject uploads a local file to object storage.
	UploadObject(ctx context.Context, bucket, key, sourceFilename string) error

	// DeleteObject deletes an object. Deleting a missing object is not
	// an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects deletes multiple objects, batching where the
	// provider supports it. Returns the keys that could not be deleted.
	DeleteObjects(ctx context.Context, bucket string, keys []string) ([]string, error)

	// ListObjects returns the keys under prefix. An empty listing is
	// not an error.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// ClientProvider creates storage clients for profiles. CloudManagers
// implements it for real providers; tests substitute the file-backed
// provider.
type ClientProvider interface {
	NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error)
}
