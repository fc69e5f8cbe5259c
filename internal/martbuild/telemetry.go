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

package martbuild

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	tracer oteltrace.Tracer

	recordsEnriched      otelmetric.Int64Counter
	recordsMalformed     otelmetric.Int64Counter
	recordsBadTimestamp  otelmetric.Int64Counter
	partitionsFlushed    otelmetric.Int64Counter
	partitionFlushFailed otelmetric.Int64Counter
)

func init() {
	tracer = otel.Tracer("github.com/cardinalhq/martrunner/internal/martbuild")
	meter := otel.Meter("github.com/cardinalhq/martrunner/internal/martbuild")

	var err error
	recordsEnriched, err = meter.Int64Counter(
		"martrunner.run.records.enriched",
		otelmetric.WithDescription("Number of transactions enriched and handed to the partition arena"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records.enriched counter: %w", err))
	}

	recordsMalformed, err = meter.Int64Counter(
		"martrunner.run.records.malformed",
		otelmetric.WithDescription("Number of transaction rows dropped for missing or mistyped fields"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records.malformed counter: %w", err))
	}

	recordsBadTimestamp, err = meter.Int64Counter(
		"martrunner.run.records.bad_timestamp",
		otelmetric.WithDescription("Number of transaction rows dropped for unparseable timestamps"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records.bad_timestamp counter: %w", err))
	}

	partitionsFlushed, err = meter.Int64Counter(
		"martrunner.run.partitions.flushed",
		otelmetric.WithDescription("Number of partitions fully written and uploaded"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create partitions.flushed counter: %w", err))
	}

	partitionFlushFailed, err = meter.Int64Counter(
		"martrunner.run.partitions.failed",
		otelmetric.WithDescription("Number of partitions that failed to serialize or upload"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create partitions.failed counter: %w", err))
	}
}
