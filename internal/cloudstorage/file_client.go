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
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// FileClientProvider creates clients that operate on the local
// filesystem. With an empty base the bucket IS the directory path,
// which is how file:// locations resolve; tests root it at a temp dir
// to stand in for real providers.
type FileClientProvider struct {
	base string
}

// NewFileClientProvider returns a new provider rooted at base.
func NewFileClientProvider(base string) ClientProvider {
	return &FileClientProvider{base: base}
}

// NewClient returns a client that reads and writes files under the base path.
func (p *FileClientProvider) NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error) {
	return &fileClient{base: p.base}, nil
}

type fileClient struct {
	base string
}

func (c *fileClient) path(bucket, key string) string {
	return filepath.Join(c.base, bucket, filepath.FromSlash(key))
}

// DownloadObject copies the requested object to a temp file and returns the filename.
func (c *fileClient) DownloadObject(ctx context.Context, tmpdir, bucket, key string) (string, int64, bool, error) {
	src := c.path(bucket, key)
	fi, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, true, nil
		}
		return "", 0, false, err
	}
	// Keep the source's base name so format detection sees the extension.
	filename := filepath.Base(src)
	dst, err := os.CreateTemp(tmpdir, "*-"+filename)
	if err != nil {
		return "", 0, false, err
	}
	defer func() { _ = dst.Close() }()

	f, err := os.Open(src)
	if err != nil {
		return "", 0, false, err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(dst, f); err != nil {
		return "", 0, false, err
	}
	return dst.Name(), fi.Size(), false, nil
}

// UploadObject copies a local file into the bucket/key location.
func (c *fileClient) UploadObject(ctx context.Context, bucket, key, sourceFilename string) error {
	dst := c.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	src, err := os.Open(sourceFilename)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, src)
	return err
}

// DeleteObject removes the file at bucket/key if it exists.
func (c *fileClient) DeleteObject(ctx context.Context, bucket, key string) error {
	path := c.path(bucket, key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteObjects removes files one at a time, continuing past failures.
func (c *fileClient) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]string, error) {
	var failed []string

	for _, key := range keys {
		if err := c.DeleteObject(ctx, bucket, key); err != nil {
			failed = append(failed, key)
		}
	}

	return failed, nil
}

// ListObjects walks the bucket directory and returns slash-separated
// keys under prefix, sorted. A missing bucket directory is an empty
// listing.
func (c *fileClient) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	root := filepath.Join(c.base, bucket)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
