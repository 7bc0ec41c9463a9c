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
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConnectionConfig()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"DB_TYPE":              "postgres",
		"DB_PORT":              "6543",
		"DB_CONN_MAX_LIFETIME": "30",
		"DB_ENABLE_QUERY_LOG":  "true",
		"DB_HOST":              "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ConnMaxLifetime)
	assert.True(t, cfg.EnableQueryLog)
	assert.Equal(t, DefaultConnectionConfig().Host, cfg.Host)

	err = ApplyEnv(cfg, envMap(map[string]string{"DB_PORT": "five"}))
	assert.ErrorContains(t, err, "invalid DB_PORT")
}

func TestFactoryRejectsUnsupportedType(t *testing.T) {
	f := NewDatabaseFactory()
	f.lookup = envMap(nil)

	cfg := DefaultConfig()
	cfg.Connection.Type = "oracle"
	_, err := f.CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type: oracle")

	_, err = f.CreateFromConfig(nil)
	assert.Error(t, err)
}

func TestFactoryInitialize(t *testing.T) {
	ctx := context.Background()
	f := NewDatabaseFactory()
	f.lookup = envMap(nil)
	f.SetLogger(&recordingLogger{})

	cfg := DefaultConfig()
	cfg.Name = ""
	cfg.Connection.Type = "sqlite"
	cfg.Connection.DBName = "file:factoryinit?mode=memory&cache=shared"
	cfg.Migration.AllowMigration = false

	_, err := f.CreateFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Connection.DBName, cfg.Name)

	seeded := false
	db, err := f.Initialize(ctx, WithSeed(func(ctx context.Context) error {
		seeded = true
		return nil
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	assert.True(t, seeded)
	assert.Same(t, db, f.GetDB())

	mm, err := f.Migrator(fstest.MapFS{
		"20240103000000_create_bins.up.sql": {Data: []byte("CREATE TABLE bins (id TEXT PRIMARY KEY)")},
	})
	require.NoError(t, err)
	pending, err := mm.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240103000000_create_bins"}, pending)
}
