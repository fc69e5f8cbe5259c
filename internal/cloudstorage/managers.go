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
	"sync"

	"github.com/cardinalhq/martrunner/internal/awsclient"
	"github.com/cardinalhq/martrunner/internal/azureclient"
	"github.com/cardinalhq/martrunner/internal/gcpclient"
	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// CloudManagers holds the per-provider managers behind one
// ClientProvider. Managers are built lazily: a run that only touches
// local files never loads a cloud credential chain.
type CloudManagers struct {
	sync.Mutex
	aws   *awsclient.Manager
	azure *azureclient.Manager
	gcp   *gcpclient.Manager
}

var _ ClientProvider = (*CloudManagers)(nil)

// NewCloudManagers creates the provider. Per-cloud managers come up on
// first use.
func NewCloudManagers(ctx context.Context) *CloudManagers {
	return &CloudManagers{}
}

func (m *CloudManagers) awsManager(ctx context.Context) (*awsclient.Manager, error) {
	m.Lock()
	defer m.Unlock()
	if m.aws == nil {
		mgr, err := awsclient.NewManager(ctx, awsclient.WithAssumeRoleSessionName("martrunner"))
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS manager: %w", err)
		}
		m.aws = mgr
	}
	return m.aws, nil
}

func (m *CloudManagers) azureManager(ctx context.Context) (*azureclient.Manager, error) {
	m.Lock()
	defer m.Unlock()
	if m.azure == nil {
		mgr, err := azureclient.NewManager(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure manager: %w", err)
		}
		m.azure = mgr
	}
	return m.azure, nil
}

func (m *CloudManagers) gcpManager(ctx context.Context) (*gcpclient.Manager, error) {
	m.Lock()
	defer m.Unlock()
	if m.gcp == nil {
		mgr, err := gcpclient.NewManager(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP manager: %w", err)
		}
		m.gcp = mgr
	}
	return m.gcp, nil
}

// NewClient creates a storage Client for the given profile.
func (m *CloudManagers) NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error) {
	switch profile.CloudProvider {
	case storageprofile.CloudAWS, "":
		mgr, err := m.awsManager(ctx)
		if err != nil {
			return nil, err
		}
		awsS3Client, err := mgr.GetS3ForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return &s3Client{awsS3Client: awsS3Client}, nil
	case storageprofile.CloudGCP:
		if profile.UseNativeGCS {
			mgr, err := m.gcpManager(ctx)
			if err != nil {
				return nil, err
			}
			gcsStorageClient, err := mgr.GetStorageForProfile(ctx, profile)
			if err != nil {
				return nil, fmt.Errorf("failed to create GCS client: %w", err)
			}
			return newGCSClientFromManager(gcsStorageClient), nil
		}
		mgr, err := m.awsManager(ctx)
		if err != nil {
			return nil, err
		}
		awsS3Client, err := mgr.GetS3ForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return &s3Client{awsS3Client: awsS3Client, isGCP: true}, nil
	case storageprofile.CloudAzure:
		mgr, err := m.azureManager(ctx)
		if err != nil {
			return nil, err
		}
		azureBlobClient, err := mgr.GetBlobForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
		}
		return newAzureClientFromManager(azureBlobClient), nil
	case storageprofile.CloudFile:
		return &fileClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported cloud provider: %s", profile.CloudProvider)
	}
}
