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

package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/martrunner/internal/awsclient"
)

// SQSNotifier publishes events to one queue.
type SQSNotifier struct {
	client   *awsclient.SQSClient
	queueURL string
}

func NewSQSNotifier(client *awsclient.SQSClient, queueURL string) (*SQSNotifier, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs notifier: no queue URL configured")
	}
	return &SQSNotifier{client: client, queueURL: queueURL}, nil
}

func (n *SQSNotifier) Notify(ctx context.Context, event PartitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal partition event: %w", err)
	}

	ctx, span := n.client.Tracer.Start(ctx, "catalog.sqsNotify")
	defer span.End()

	_, err = n.client.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"run_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.RunID),
			},
			"partition": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.PartitionLabel()),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish partition event for %s: %w", event.PartitionLabel(), err)
	}

	eventsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", "sqs")))
	return nil
}

func (n *SQSNotifier) Close() error { return nil }
