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

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/otel/trace"
)

type SQSClient struct {
	Client *sqs.Client
	Tracer trace.Tracer
}

type sqsConfig struct {
	RoleARN   string
	Region    string
	applySQSs []func(*sqs.Options)
}

// SQSOption is a functional option for GetSQS.
type SQSOption func(*sqsConfig)

// WithSQSRole sets the IAM Role ARN to assume (empty = no assume).
func WithSQSRole(roleARN string) SQSOption {
	return func(c *sqsConfig) {
		c.RoleARN = roleARN
	}
}

// WithSQSRegion overrides the AWS region for this call.
func WithSQSRegion(region string) SQSOption {
	return func(c *sqsConfig) {
		c.Region = region
	}
}

func (m *Manager) GetSQS(ctx context.Context, opts ...SQSOption) (*SQSClient, error) {
	sc := sqsConfig{
		Region: m.baseCfg.Region,
	}
	for _, o := range opts {
		o(&sc)
	}

	provider := m.credentialsFor(sc.Region, sc.RoleARN)

	cfg := m.baseCfg.Copy()
	cfg.Region = sc.Region
	cfg.Credentials = provider

	client := sqs.NewFromConfig(cfg, sc.applySQSs...)

	return &SQSClient{Client: client, Tracer: m.tracer}, nil
}
