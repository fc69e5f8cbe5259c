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

package helpers

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsGzipFile(t *testing.T) {
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "data.csv.gz")
	fh, err := os.Create(gzPath)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte("a,b,c\n1,2,3\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	isGzip, err := IsGzipFile(gzPath)
	require.NoError(t, err)
	assert.True(t, isGzip)

	// A plain file wearing a .gz name: the bytes win.
	plainPath := filepath.Join(dir, "plain.csv.gz")
	require.NoError(t, os.WriteFile(plainPath, []byte("a,b,c\n"), 0o644))
	isGzip, err = IsGzipFile(plainPath)
	require.NoError(t, err)
	assert.False(t, isGzip)

	emptyPath := filepath.Join(dir, "empty.gz")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o644))
	isGzip, err = IsGzipFile(emptyPath)
	require.NoError(t, err)
	assert.False(t, isGzip)

	_, err = IsGzipFile(filepath.Join(dir, "missing.gz"))
	assert.Error(t, err)
}
