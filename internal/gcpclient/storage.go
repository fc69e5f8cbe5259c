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

package gcpclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"

	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// StorageClient wraps a GCS client with the manager's tracer.
type StorageClient struct {
	Client *storage.Client
	Tracer trace.Tracer
}

type storageClientKey struct {
	ServiceAccountEmail string
}

type storageConfig struct {
	ServiceAccountEmail string
}

// StorageOption is a functional option for GetStorage.
type StorageOption func(*storageConfig)

// WithImpersonateServiceAccount sets the service account email to impersonate.
func WithImpersonateServiceAccount(email string) StorageOption {
	return func(c *storageConfig) {
		c.ServiceAccountEmail = email
	}
}

func (m *Manager) GetStorage(ctx context.Context, opts ...StorageOption) (*StorageClient, error) {
	cfg := storageConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	key := storageClientKey(cfg)
	m.RLock()
	client, ok := m.storageClients[key]
	m.RUnlock()
	if ok {
		return client, nil
	}

	m.Lock()
	defer m.Unlock()

	if client, ok = m.storageClients[key]; ok {
		return client, nil
	}

	var clientOpts []option.ClientOption

	if cfg.ServiceAccountEmail != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: cfg.ServiceAccountEmail,
			Scopes:          []string{storage.ScopeFullControl},
		})
		if err != nil {
			return nil, fmt.Errorf("creating impersonated token source: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}

	storageClient, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCP storage client: %w", err)
	}

	client = &StorageClient{
		Client: storageClient,
		Tracer: m.tracer,
	}
	m.storageClients[key] = client

	return client, nil
}

// GetStorageForProfile maps a storage profile onto the option set. The
// Role field carries the service account to impersonate, mirroring the
// AWS assume-role convention.
func (m *Manager) GetStorageForProfile(ctx context.Context, p storageprofile.StorageProfile) (*StorageClient, error) {
	var opts []StorageOption
	if p.Role != "" {
		opts = append(opts, WithImpersonateServiceAccount(p.Role))
	}
	return m.GetStorage(ctx, opts...)
}
