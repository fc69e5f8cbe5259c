//go:build kafkatest

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
	"testing"
	"time"

	"github.com/orlangure/gnomock"
	kafkapreset "github.com/orlangure/gnomock/preset/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaNotifierRoundTrip(t *testing.T) {
	const topic = "martrunner.partitions"

	container, err := gnomock.Start(kafkapreset.Preset(kafkapreset.WithTopics(topic)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gnomock.Stop(container) })

	broker := container.Address(kafkapreset.BrokerPort)

	notifier, err := NewKafkaNotifier(KafkaConfig{
		Brokers: []string{broker},
		Topic:   topic,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = notifier.Close() })

	reg := NewRegistrar("01K2ZX8G9WX2M4Y7QD3V5B6N7P", notifier)
	require.NoError(t, reg.PartitionWritten(context.Background(),
		EnrichedTableSpec("sales_enriched"), 2025, 1,
		"s3://mart-curated/salesmart/enriched/year=2025/month=1/",
		[]FileStat{{Key: "part-00000.snappy.parquet", RecordCount: 2, FileSize: 1431, Fingerprint: 42}}))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     "catalog-roundtrip",
		StartOffset: kafka.FirstOffset,
	})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, "sales_enriched/year=2025/month=1", string(msg.Key))

	var event PartitionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "01K2ZX8G9WX2M4Y7QD3V5B6N7P", event.RunID)
	require.NotNil(t, event.Year)
	assert.Equal(t, int32(2025), *event.Year)
	assert.Equal(t, int64(2), event.RecordCount())
}

func TestKafkaNotifierConfigValidation(t *testing.T) {
	_, err := NewKafkaNotifier(KafkaConfig{Topic: "t"})
	require.Error(t, err)

	_, err = NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
}
