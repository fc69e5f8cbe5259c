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

// Package azureclient hands out Azure Blob Storage clients built from
// the default credential chain, cached per storage account.
package azureclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Manager struct {
	baseCred *azidentity.DefaultAzureCredential

	sync.RWMutex
	blobClients map[blobClientKey]*BlobClient
	tracer      trace.Tracer
}

// NewManager initializes Azure credential management.
func NewManager(ctx context.Context) (*Manager, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("loading Azure credentials: %w", err)
	}

	tracer := otel.Tracer("github.com/cardinalhq/martrunner/internal/azureclient")
	mgr := &Manager{
		baseCred:    cred,
		blobClients: make(map[blobClientKey]*BlobClient),
		tracer:      tracer,
	}

	return mgr, nil
}
