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
	"time"

	"github.com/google/uuid"
)

// Registrar builds partition events for one run and hands them to the
// notifier. Callers announce only partitions whose data is fully
// uploaded; there is no announce-then-verify flow to unwind.
type Registrar struct {
	runID    string
	notifier Notifier
}

func NewRegistrar(runID string, notifier Notifier) *Registrar {
	return &Registrar{runID: runID, notifier: notifier}
}

// PartitionWritten announces one year/month partition of table.
func (r *Registrar) PartitionWritten(ctx context.Context, table TableSpec, year, month int32, location string, files []FileStat) error {
	event := r.newEvent(table, location, files)
	event.Year = &year
	event.Month = &month
	return r.notifier.Notify(ctx, event)
}

// TableWritten announces an unpartitioned table, the summary being the
// one we write.
func (r *Registrar) TableWritten(ctx context.Context, table TableSpec, location string, files []FileStat) error {
	return r.notifier.Notify(ctx, r.newEvent(table, location, files))
}

func (r *Registrar) newEvent(table TableSpec, location string, files []FileStat) PartitionEvent {
	return PartitionEvent{
		EventID:   uuid.New(),
		EmittedAt: time.Now().UTC(),
		RunID:     r.runID,
		Table:     table,
		Location:  location,
		Files:     files,
	}
}
