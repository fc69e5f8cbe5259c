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

package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/martrunner/internal/catalog"
)

// Config aggregates configuration for the application. Each section is
// owned by the package that consumes it. The per-run inputs (sources,
// target, tables) come from the job file, not from here.
type Config struct {
	Run     RunConfig     `mapstructure:"run"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	DuckDB  DuckDBConfig  `mapstructure:"duckdb"`
}

// RunConfig tunes pipeline execution.
type RunConfig struct {
	// ScratchDir is where staged inputs, spill buffers, and local
	// parquet parts live during a run. Empty means the system temp dir.
	ScratchDir string `mapstructure:"scratch_dir"`

	// BatchSize is the reader batch size in rows.
	BatchSize int `mapstructure:"batch_size"`

	// RecordsPerFile caps rows per parquet part file.
	RecordsPerFile int64 `mapstructure:"records_per_file"`

	// PartitionWorkers bounds parallel partition flushes. Zero means
	// min(4, GOMAXPROCS).
	PartitionWorkers int `mapstructure:"partition_workers"`

	// LedgerEnabled turns on the Postgres run ledger. The connection
	// itself comes from the MARTDB_* environment.
	LedgerEnabled bool `mapstructure:"ledger_enabled"`
}

// CatalogConfig selects and configures the catalog notifier backends.
// The log backend is always on; the others are opt-in and fan out.
type CatalogConfig struct {
	KafkaEnabled  bool                `mapstructure:"kafka_enabled"`
	Kafka         catalog.KafkaConfig `mapstructure:"kafka"`
	SQSEnabled    bool                `mapstructure:"sqs_enabled"`
	SQS           SQSConfig           `mapstructure:"sqs"`
	PubSubEnabled bool                `mapstructure:"pubsub_enabled"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
}

// SQSConfig points the SQS notifier at a queue.
type SQSConfig struct {
	QueueURL string `mapstructure:"queue_url"`
	Region   string `mapstructure:"region"`
	Role     string `mapstructure:"role"`
}

// PubSubConfig points the Pub/Sub notifier at a topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// DuckDBConfig bounds the inspect shell's embedded DuckDB.
type DuckDBConfig struct {
	MemoryLimitMB int64 `mapstructure:"memory_limit_mb"`
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "MARTRUNNER" and the dot
// character in keys is replaced by an underscore. For example,
// "catalog.kafka.brokers" becomes "MARTRUNNER_CATALOG_KAFKA_BROKERS".
func Load() (*Config, error) {
	cfg := &Config{}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("MARTRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("run.batch_size", 1000)
	v.SetDefault("run.records_per_file", int64(1_000_000))

	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if b := v.GetString("catalog.kafka.brokers"); b != "" {
		cfg.Catalog.Kafka.Brokers = strings.Split(b, ",")
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
