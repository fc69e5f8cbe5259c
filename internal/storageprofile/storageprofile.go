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

// Package storageprofile resolves object URIs to a storage backend and
// the settings needed to reach it. A profile carries per-bucket
// credentials and endpoint overrides; a Location is a profile plus the
// object key (or key prefix) inside it.
package storageprofile

import (
	"fmt"
	"strings"
)

// Cloud provider names as they appear in profiles and job files.
const (
	CloudAWS   = "aws"
	CloudGCP   = "gcp"
	CloudAzure = "azure"
	CloudFile  = "file"
)

// StorageProfile describes how to reach one bucket (or container, or
// local directory). Zero-value fields fall back to ambient defaults:
// SDK credential chain, base region, public endpoints.
type StorageProfile struct {
	CloudProvider  string `json:"cloud_provider" yaml:"cloud_provider"`
	Bucket         string `json:"bucket" yaml:"bucket"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty"`
	Role           string `json:"role,omitempty" yaml:"role,omitempty"`
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	StorageAccount string `json:"storage_account,omitempty" yaml:"storage_account,omitempty"`
	InsecureTLS    bool   `json:"insecure_tls,omitempty" yaml:"insecure_tls,omitempty"`
	UsePathStyle   bool   `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`

	// GCP buckets default to the S3 interop endpoint, which wants HMAC
	// keys. Set this to use the native client with ADC instead.
	UseNativeGCS bool `json:"use_native_gcs,omitempty" yaml:"use_native_gcs,omitempty"`
}

// Location is a resolved object address: the profile for the bucket it
// lives in plus the key within that bucket. For file locations the
// Bucket holds the filesystem path and Key is empty.
type Location struct {
	Profile StorageProfile
	Key     string
}

// URI renders the location back into the scheme form ParseURI accepts.
func (l Location) URI() string {
	switch l.Profile.CloudProvider {
	case CloudAWS:
		return "s3://" + l.Profile.Bucket + "/" + l.Key
	case CloudGCP:
		return "gs://" + l.Profile.Bucket + "/" + l.Key
	case CloudAzure:
		return "azure://" + l.Profile.Bucket + "/" + l.Key
	default:
		if l.Key == "" {
			return l.Profile.Bucket
		}
		return l.Profile.Bucket + "/" + l.Key
	}
}

// ParseURI splits an object URI into its provider, bucket, and key.
// Supported forms:
//
//	s3://bucket/key        AWS S3
//	gs://bucket/key        GCP Cloud Storage, spoken through the S3 API
//	azure://container/key  Azure Blob Storage
//	file:///path, /path    local filesystem
//
// A path with no scheme is a local path. File locations keep the whole
// path in Bucket so relative paths survive untouched.
func ParseURI(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("empty storage URI")
	}

	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return Location{Profile: StorageProfile{CloudProvider: CloudFile, Bucket: uri}}, nil
	}

	switch scheme {
	case "s3":
		return splitBucketKey(CloudAWS, uri, rest)
	case "gs", "gcs":
		return splitBucketKey(CloudGCP, uri, rest)
	case "azure", "abfs", "wasb":
		return splitBucketKey(CloudAzure, uri, rest)
	case "file":
		if rest == "" {
			return Location{}, fmt.Errorf("storage URI %q has no path", uri)
		}
		// file:///abs/path keeps the leading slash; file://relative/path
		// keeps the host segment as the path head.
		return Location{Profile: StorageProfile{CloudProvider: CloudFile, Bucket: rest}}, nil
	default:
		return Location{}, fmt.Errorf("unsupported storage scheme %q in %q", scheme, uri)
	}
}

func splitBucketKey(provider, uri, rest string) (Location, error) {
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("storage URI %q has no bucket", uri)
	}
	return Location{
		Profile: StorageProfile{CloudProvider: provider, Bucket: bucket},
		Key:     strings.Trim(key, "/"),
	}, nil
}

// Resolver merges parsed URIs with configured profiles. Profiles match
// by provider and bucket; a profile with an empty bucket acts as the
// provider-wide default. URIs with no matching profile still resolve,
// carrying only what the URI itself says.
type Resolver struct {
	profiles []StorageProfile
}

func NewResolver(profiles []StorageProfile) (*Resolver, error) {
	for i, p := range profiles {
		switch p.CloudProvider {
		case CloudAWS, CloudGCP, CloudAzure, CloudFile:
		case "":
			return nil, fmt.Errorf("storage profile %d: cloud_provider is required", i)
		default:
			return nil, fmt.Errorf("storage profile %d: unknown cloud_provider %q", i, p.CloudProvider)
		}
	}
	return &Resolver{profiles: profiles}, nil
}

// Resolve parses uri and overlays the best matching profile. The URI's
// bucket always wins over the profile's.
func (r *Resolver) Resolve(uri string) (Location, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return Location{}, err
	}
	if loc.Profile.CloudProvider == CloudFile {
		return loc, nil
	}

	match, ok := r.lookup(loc.Profile.CloudProvider, loc.Profile.Bucket)
	if !ok {
		return loc, nil
	}
	bucket := loc.Profile.Bucket
	loc.Profile = match
	loc.Profile.Bucket = bucket
	return loc, nil
}

func (r *Resolver) lookup(provider, bucket string) (StorageProfile, bool) {
	var fallback *StorageProfile
	for i, p := range r.profiles {
		if p.CloudProvider != provider {
			continue
		}
		if p.Bucket == bucket {
			return p, true
		}
		if p.Bucket == "" && fallback == nil {
			fallback = &r.profiles[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return StorageProfile{}, false
}
