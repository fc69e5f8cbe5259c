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
	"os"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/api/option"
)

// PubSubNotifier publishes events to one GCP Pub/Sub topic.
type PubSubNotifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubNotifier(ctx context.Context, projectID, topicID string) (*PubSubNotifier, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub notifier: no project configured")
	}
	if topicID == "" {
		return nil, fmt.Errorf("pubsub notifier: no topic configured")
	}

	// ADC handles GCE and Cloud Run; only set credentials when
	// explicitly provided.
	var opts []option.ClientOption
	if keyFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); keyFile != "" {
		opts = append(opts, option.WithCredentialsFile(keyFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub notifier: create client: %w", err)
	}

	return &PubSubNotifier{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, event PartitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal partition event: %w", err)
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"run_id":    event.RunID,
			"partition": event.PartitionLabel(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish partition event for %s: %w", event.PartitionLabel(), err)
	}

	eventsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", "pubsub")))
	return nil
}

func (n *PubSubNotifier) Close() error {
	n.topic.Stop()
	return n.client.Close()
}
