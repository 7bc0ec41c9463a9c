/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrator lists and applies pending schema migrations.
type Migrator interface {
	PendingMigrations(ctx context.Context) ([]string, error)
	ApplyMigrations(ctx context.Context) error
}

// MigrationManager applies SQL migrations discovered in a file system, named
// like 20240101120000_create_users.up.sql, with bun/migrate.
type MigrationManager struct {
	db       *bun.DB
	logger   Logger
	migrator *migrate.Migrator
}

var _ Migrator = (*MigrationManager)(nil)

// NewMigrationManager discovers the migrations in fsys.
func NewMigrationManager(db *bun.DB, fsys fs.FS, logger Logger) (*MigrationManager, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if logger == nil {
		logger = GetLogger()
	}
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, fmt.Errorf("failed to discover migrations: %w", err)
	}
	return &MigrationManager{
		db:       db,
		logger:   logger,
		migrator: migrate.NewMigrator(db, migrations),
	}, nil
}

// PendingMigrations returns the names of migrations not yet applied, in
// application order.
func (mm *MigrationManager) PendingMigrations(ctx context.Context) ([]string, error) {
	if err := mm.migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migration tables: %w", err)
	}
	ms, err := mm.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	unapplied := ms.Unapplied()
	names := make([]string, len(unapplied))
	for i, m := range unapplied {
		names[i] = m.String()
	}
	return names, nil
}

// ApplyMigrations runs every pending migration as one group while holding
// the migration lock.
func (mm *MigrationManager) ApplyMigrations(ctx context.Context) error {
	if err := mm.migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to create migration tables: %w", err)
	}
	if err := mm.migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := mm.migrator.Unlock(ctx); err != nil {
			mm.logger.Error("Failed to release migration lock", "error", err)
		}
	}()

	group, err := mm.migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if group.IsZero() {
		mm.logger.Info("No new migrations to run")
		return nil
	}
	mm.logger.Info("Migrated", "group", group.String())
	return nil
}

// CreateRegisteredTables creates a table for every registered model, in
// priority order, skipping tables that already exist.
func CreateRegisteredTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}
