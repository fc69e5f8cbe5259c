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

package martdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/martrunner/internal/martdb/migrations"
)

// ErrNotConfigured marks the absence of ledger configuration, which
// callers treat as "run without a ledger" rather than a failure.
var ErrNotConfigured = errors.New("ledger database configuration is unavailable")

// Options configures database connection behavior.
type Options struct {
	SkipMigrationCheck bool
}

// SkipMigrationCheck returns Options that skip the schema version
// check. The migrate command uses it; everything else should not.
func SkipMigrationCheck() Options {
	return Options{SkipMigrationCheck: true}
}

// Connect opens a pool against the MARTDB_* environment configuration
// and verifies the schema is at the version this binary expects.
func Connect(ctx context.Context, opts ...Options) (*pgxpool.Pool, error) {
	connectionString, err := databaseURLFromEnv()
	if err != nil {
		return nil, errors.Join(ErrNotConfigured, fmt.Errorf("failed to get MARTDB connection string: %w", err))
	}

	pool, err := NewConnectionPool(ctx, connectionString)
	if err != nil {
		return nil, err
	}

	skipCheck := false
	if len(opts) > 0 {
		skipCheck = opts[0].SkipMigrationCheck
	}

	if !skipCheck {
		if err := checkExpectedVersion(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("MARTDB migration version check failed: %w", err)
		}
	}

	return pool, nil
}

// Open connects and wraps the pool in a Store.
func Open(ctx context.Context, opts ...Options) (*Store, error) {
	pool, err := Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// checkExpectedVersion compares the database schema version against
// the latest embedded migration. A batch job has no migration runner
// racing alongside it, so a mismatch fails immediately instead of
// waiting.
func checkExpectedVersion(ctx context.Context, pool *pgxpool.Pool) error {
	expected, err := migrations.LatestVersion()
	if err != nil {
		return fmt.Errorf("failed to extract expected migration version: %w", err)
	}

	current, dirty, err := migrations.CurrentVersion(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		return errors.New("migration is in dirty state, please fix before proceeding")
	}

	switch {
	case current == expected:
		return nil
	case current > expected:
		return fmt.Errorf("database version %d is newer than expected version %d - you may need to update the application",
			current, expected)
	default:
		return fmt.Errorf("database version %d is behind expected version %d - run `martrunner migrate`",
			current, expected)
	}
}
