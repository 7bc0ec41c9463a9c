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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	pending    []string
	pendingErr error
	applyErr   error
	applied    int
}

func (m *fakeMigrator) PendingMigrations(ctx context.Context) ([]string, error) {
	return m.pending, m.pendingErr
}

func (m *fakeMigrator) ApplyMigrations(ctx context.Context) error {
	m.applied++
	return m.applyErr
}

func TestLoaderExecute(t *testing.T) {
	tests := []struct {
		name           string
		migrator       *fakeMigrator
		allowMigration bool
		wantApplied    int
		wantInfo       []string
		wantErr        string
	}{
		{
			name:           "no pending migrations",
			migrator:       &fakeMigrator{},
			allowMigration: true,
			wantInfo:       []string{"Checking migration status", "There are no pending migrations"},
		},
		{
			name:           "pending migrations applied",
			migrator:       &fakeMigrator{pending: []string{"20240101000000_init"}},
			allowMigration: true,
			wantApplied:    1,
			wantInfo: []string{"Checking migration status", "Discovered pending migrations",
				"All migrations have been applied"},
		},
		{
			name:     "migration disabled",
			migrator: &fakeMigrator{pending: []string{"20240101000000_init"}},
		},
		{
			name:           "apply failure propagates",
			migrator:       &fakeMigrator{pending: []string{"x"}, applyErr: errors.New("locked")},
			allowMigration: true,
			wantApplied:    1,
			wantErr:        "failed to migrate database app: locked",
		},
		{
			name:           "pending failure propagates",
			migrator:       &fakeMigrator{pendingErr: errors.New("offline")},
			allowMigration: true,
			wantErr:        "offline",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			seeded := false
			loader := NewLoader("app", tt.migrator, WithLoaderLogger(logger), WithSeed(func(ctx context.Context) error {
				seeded = true
				return nil
			}))

			err := loader.Execute(context.Background(), tt.allowMigration)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.False(t, seeded)
			} else {
				require.NoError(t, err)
				assert.True(t, seeded)
				assert.Equal(t, tt.wantInfo, logger.messages("info"))
			}
			assert.Equal(t, tt.wantApplied, tt.migrator.applied)
		})
	}
}

func TestMigrationManager(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	fsys := fstest.MapFS{
		"20240101000000_create_gadgets.up.sql": {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY, label TEXT)")},
		"20240101000000_create_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets")},
	}

	mm, err := NewMigrationManager(db, fsys, &recordingLogger{})
	require.NoError(t, err)

	pending, err := mm.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101000000_create_gadgets"}, pending)

	require.NoError(t, NewLoader("gadgets", mm).Execute(ctx, true))

	pending, err = mm.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = db.ExecContext(ctx, "INSERT INTO gadgets (id, label) VALUES ('g1', 'lamp')")
	assert.NoError(t, err)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
connection:
  type: sqlite
  dbname: ":memory:"
  slow_query_time: 250ms
migration:
  allow_migration: false
log:
  level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Connection.Type)
	assert.Equal(t, ":memory:", cfg.Name)
	assert.Equal(t, 250*time.Millisecond, cfg.Connection.SlowQueryTime)
	assert.Equal(t, 100, cfg.Connection.MaxOpenConns)
	assert.False(t, cfg.Migration.AllowMigration)
	assert.Equal(t, "migrations", cfg.Migration.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: main\nconnection:\n  type: postgres\n  port: 5432\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Name)
	assert.Equal(t, 5432, cfg.Connection.Port)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInitDBWithSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240102000000_create_parts.up.sql"),
		[]byte("CREATE TABLE parts (id TEXT PRIMARY KEY)"), 0o600))

	cfg := DefaultConfig()
	cfg.Name = "parts"
	cfg.Connection.Type = "sqlite"
	cfg.Connection.DBName = "file:initdb?mode=memory&cache=shared"
	cfg.Migration.Dir = dir

	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	_, err = db.ExecContext(ctx, "INSERT INTO parts (id) VALUES ('p1')")
	require.NoError(t, err)

	session, err := NewSession()
	require.NoError(t, err)
	assert.Equal(t, "file:initdb?mode=memory&cache=shared", session.Name())
	assert.True(t, GetHealthStatus(ctx).Healthy)
}
