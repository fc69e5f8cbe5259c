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

// Package migrations holds the ledger schema as embedded SQL applied
// with golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed *.sql
var migrationFiles embed.FS

const migrationsTable = "gomigrate_martdb"

// RunMigrationsUp applies all up migrations using the embedded
// migration files.
func RunMigrationsUp(ctx context.Context, pool *pgxpool.Pool) error {
	m, cleanup, err := newMigrator(pool)
	if err != nil {
		return err
	}
	defer cleanup()

	_, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return errors.New("migration is dirty, please fix it before proceeding")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// CurrentVersion reports the schema version the database is at and
// whether a migration was left dirty. A database with no migrations
// applied reports version 0.
func CurrentVersion(ctx context.Context, pool *pgxpool.Pool) (uint, bool, error) {
	m, cleanup, err := newMigrator(pool)
	if err != nil {
		return 0, false, err
	}
	defer cleanup()

	version, dirty, err := m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}

	return version, dirty, nil
}

// LatestVersion extracts the highest migration version from the
// embedded files, named like "1755216000_initial.up.sql".
func LatestVersion() (uint, error) {
	entries, err := migrationFiles.ReadDir(".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var maxVersion uint
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		version, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}

		if uint(version) > maxVersion {
			maxVersion = uint(version)
		}
	}

	if maxVersion == 0 {
		return 0, errors.New("no valid migration files found")
	}

	return maxVersion, nil
}

func newMigrator(pool *pgxpool.Pool) (*migrate.Migrate, func(), error) {
	sourceDriver, err := iofs.New(migrationFiles, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)

	dbDriver, err := pgx.WithInstance(sqlDB, &pgx.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create pgx driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		_ = dbDriver.Close()
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	cleanup := func() {
		_ = dbDriver.Close()
		_ = sqlDB.Close()
	}
	return m, cleanup, nil
}
