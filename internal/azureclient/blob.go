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

package azureclient

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

type BlobClient struct {
	ServiceClient *service.Client
	Client        *azblob.Client
	Tracer        trace.Tracer
}

type blobConfig struct {
	StorageAccount string
	Endpoint       string
}

type BlobOption func(*blobConfig)

func WithBlobStorageAccount(storageAccount string) BlobOption {
	return func(c *blobConfig) {
		c.StorageAccount = storageAccount
	}
}

// WithBlobEndpoint overrides the service endpoint (eg Azurite).
func WithBlobEndpoint(endpoint string) BlobOption {
	return func(c *blobConfig) {
		c.Endpoint = endpoint
	}
}

type blobClientKey struct {
	Endpoint string
}

func (m *Manager) GetBlob(ctx context.Context, opts ...BlobOption) (*BlobClient, error) {
	bc := blobConfig{}
	for _, o := range opts {
		o(&bc)
	}

	if bc.Endpoint == "" {
		if bc.StorageAccount == "" {
			return nil, fmt.Errorf("storage account or endpoint is required")
		}
		bc.Endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", bc.StorageAccount)
	}

	key := blobClientKey{Endpoint: bc.Endpoint}
	m.RLock()
	client, ok := m.blobClients[key]
	m.RUnlock()
	if !ok {
		m.Lock()
		if client, ok = m.blobClients[key]; !ok {
			serviceClient, err := service.NewClient(bc.Endpoint, m.baseCred, nil)
			if err != nil {
				m.Unlock()
				return nil, fmt.Errorf("failed to create blob service client: %w", err)
			}

			blobClient, err := azblob.NewClient(bc.Endpoint, m.baseCred, nil)
			if err != nil {
				m.Unlock()
				return nil, fmt.Errorf("failed to create blob client: %w", err)
			}

			client = &BlobClient{
				ServiceClient: serviceClient,
				Client:        blobClient,
				Tracer:        m.tracer,
			}
			m.blobClients[key] = client
		}
		m.Unlock()
	}

	return client, nil
}

// GetBlobForProfile maps a storage profile onto the option set. The
// endpoint falls back to the account's public blob endpoint.
func (m *Manager) GetBlobForProfile(ctx context.Context, p storageprofile.StorageProfile) (*BlobClient, error) {
	var opts []BlobOption
	if p.StorageAccount != "" {
		opts = append(opts, WithBlobStorageAccount(p.StorageAccount))
	}
	if p.Endpoint != "" {
		opts = append(opts, WithBlobEndpoint(p.Endpoint))
	}
	return m.GetBlob(ctx, opts...)
}
