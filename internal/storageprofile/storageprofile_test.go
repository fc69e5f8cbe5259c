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

package storageprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		provider string
		bucket   string
		key      string
		wantErr  bool
	}{
		{"s3", "s3://mart-raw/sales/2025-08.csv", CloudAWS, "mart-raw", "sales/2025-08.csv", false},
		{"s3 bucket only", "s3://mart-raw", CloudAWS, "mart-raw", "", false},
		{"s3 trailing slash", "s3://mart-raw/prefix/", CloudAWS, "mart-raw", "prefix", false},
		{"gs", "gs://mart-raw/sales.csv", CloudGCP, "mart-raw", "sales.csv", false},
		{"gcs alias", "gcs://mart-raw/sales.csv", CloudGCP, "mart-raw", "sales.csv", false},
		{"azure", "azure://marts/sales/input.json", CloudAzure, "marts", "sales/input.json", false},
		{"file absolute", "file:///var/data/sales.csv", CloudFile, "/var/data/sales.csv", "", false},
		{"file relative", "file://testdata/sales.csv", CloudFile, "testdata/sales.csv", "", false},
		{"bare absolute path", "/var/data/sales.csv", CloudFile, "/var/data/sales.csv", "", false},
		{"bare relative path", "testdata/sales.csv", CloudFile, "testdata/sales.csv", "", false},
		{"whitespace trimmed", "  s3://b/k  ", CloudAWS, "b", "k", false},
		{"empty", "", "", "", "", true},
		{"empty file path", "file://", "", "", "", true},
		{"no bucket", "s3://", "", "", "", true},
		{"unknown scheme", "ftp://host/file", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, loc.Profile.CloudProvider)
			assert.Equal(t, tt.bucket, loc.Profile.Bucket)
			assert.Equal(t, tt.key, loc.Key)
		})
	}
}

func TestResolverMergesProfile(t *testing.T) {
	r, err := NewResolver([]StorageProfile{
		{
			CloudProvider: CloudAWS,
			Bucket:        "mart-curated",
			Region:        "us-east-2",
			Role:          "arn:aws:iam::123456789012:role/mart",
			UsePathStyle:  true,
		},
	})
	require.NoError(t, err)

	loc, err := r.Resolve("s3://mart-curated/salesmart")
	require.NoError(t, err)
	assert.Equal(t, "mart-curated", loc.Profile.Bucket)
	assert.Equal(t, "us-east-2", loc.Profile.Region)
	assert.Equal(t, "arn:aws:iam::123456789012:role/mart", loc.Profile.Role)
	assert.True(t, loc.Profile.UsePathStyle)
	assert.Equal(t, "salesmart", loc.Key)
}

func TestResolverProviderDefault(t *testing.T) {
	r, err := NewResolver([]StorageProfile{
		{CloudProvider: CloudAWS, Bucket: "other", Region: "eu-west-1"},
		{CloudProvider: CloudAWS, Region: "us-west-2", Endpoint: "http://minio:9000"},
	})
	require.NoError(t, err)

	loc, err := r.Resolve("s3://unlisted-bucket/key")
	require.NoError(t, err)
	assert.Equal(t, "unlisted-bucket", loc.Profile.Bucket)
	assert.Equal(t, "us-west-2", loc.Profile.Region)
	assert.Equal(t, "http://minio:9000", loc.Profile.Endpoint)
}

func TestResolverNoMatchPassesThrough(t *testing.T) {
	r, err := NewResolver(nil)
	require.NoError(t, err)

	loc, err := r.Resolve("azure://marts/prefix")
	require.NoError(t, err)
	assert.Equal(t, CloudAzure, loc.Profile.CloudProvider)
	assert.Equal(t, "marts", loc.Profile.Bucket)
	assert.Empty(t, loc.Profile.StorageAccount)
}

func TestResolverFileIgnoresProfiles(t *testing.T) {
	r, err := NewResolver([]StorageProfile{
		{CloudProvider: CloudFile, Region: "should-not-apply"},
	})
	require.NoError(t, err)

	loc, err := r.Resolve("/tmp/out")
	require.NoError(t, err)
	assert.Equal(t, CloudFile, loc.Profile.CloudProvider)
	assert.Empty(t, loc.Profile.Region)
}

func TestNewResolverValidates(t *testing.T) {
	_, err := NewResolver([]StorageProfile{{Bucket: "b"}})
	assert.Error(t, err)

	_, err = NewResolver([]StorageProfile{{CloudProvider: "rackspace", Bucket: "b"}})
	assert.Error(t, err)
}

func TestLocationURI(t *testing.T) {
	loc, err := ParseURI("s3://bucket/some/key")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/some/key", loc.URI())

	loc, err = ParseURI("/var/data/out")
	require.NoError(t, err)
	assert.Equal(t, "/var/data/out", loc.URI())

	loc.Key = "enriched/year=2025/month=1"
	assert.Equal(t, "/var/data/out/enriched/year=2025/month=1", loc.URI())
}
