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
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Notifier delivers partition events to one catalog backend.
type Notifier interface {
	Notify(ctx context.Context, event PartitionEvent) error
	Close() error
}

// LogNotifier writes events to the structured log. It is the default
// backend so a bare run still leaves an announcement trail.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event PartitionEvent) error {
	n.logger.InfoContext(ctx, "partition written",
		slog.String("event_id", event.EventID.String()),
		slog.String("run_id", event.RunID),
		slog.String("partition", event.PartitionLabel()),
		slog.String("location", event.Location),
		slog.Int("files", len(event.Files)),
		slog.Int64("records", event.RecordCount()),
	)
	eventsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", "log")))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// MultiNotifier fans one event out to several backends. Every backend
// sees the event even when an earlier one fails; failures are joined.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (n *MultiNotifier) Notify(ctx context.Context, event PartitionEvent) error {
	var errs *multierror.Error
	for _, backend := range n.notifiers {
		if err := backend.Notify(ctx, event); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (n *MultiNotifier) Close() error {
	var errs *multierror.Error
	for _, backend := range n.notifiers {
		if err := backend.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
