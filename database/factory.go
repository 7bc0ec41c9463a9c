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
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// envOverride maps an environment variable onto the connection config.
type envOverride struct {
	name  string
	apply func(cfg *ConnectionConfig, value string) error
}

var envOverrides = []envOverride{
	{"DB_TYPE", func(c *ConnectionConfig, v string) error { c.Type = v; return nil }},
	{"DB_HOST", func(c *ConnectionConfig, v string) error { c.Host = v; return nil }},
	{"DB_PORT", intEnv(func(c *ConnectionConfig, n int) { c.Port = n })},
	{"DB_USERNAME", func(c *ConnectionConfig, v string) error { c.Username = v; return nil }},
	{"DB_PASSWORD", func(c *ConnectionConfig, v string) error { c.Password = v; return nil }},
	{"DB_NAME", func(c *ConnectionConfig, v string) error { c.DBName = v; return nil }},
	{"DB_SSLMODE", func(c *ConnectionConfig, v string) error { c.SSLMode = v; return nil }},
	{"DB_MAX_IDLE_CONNS", intEnv(func(c *ConnectionConfig, n int) { c.MaxIdleConns = n })},
	{"DB_MAX_OPEN_CONNS", intEnv(func(c *ConnectionConfig, n int) { c.MaxOpenConns = n })},
	{"DB_CONN_MAX_LIFETIME", intEnv(func(c *ConnectionConfig, n int) { c.ConnMaxLifetime = time.Duration(n) * time.Second })},
	{"DB_ENABLE_QUERY_LOG", func(c *ConnectionConfig, v string) error {
		b, err := strconv.ParseBool(v)
		c.EnableQueryLog = b
		return err
	}},
}

func intEnv(set func(*ConnectionConfig, int)) func(*ConnectionConfig, string) error {
	return func(c *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

// ApplyEnv overrides cfg from DB_* environment variables. A malformed value
// is reported instead of being ignored.
func ApplyEnv(cfg *ConnectionConfig, lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		v, ok := lookup(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", o.name, v, err)
		}
	}
	return nil
}

// BaseDatabaseFactory turns a Config into a connected manager, the
// migrator for its migration directory and the startup loader.
type BaseDatabaseFactory struct {
	cfg     *Config
	manager AbstractDatabaseManager
	logger  Logger
	lookup  func(string) (string, bool)
}

// NewDatabaseFactory returns a factory using the global logger and the
// process environment.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger(), lookup: os.LookupEnv}
}

// CreateFromConfig applies environment overrides to cfg and creates the
// manager for its connection. It does not connect.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := ApplyEnv(&cfg.Connection, f.lookup); err != nil {
		return nil, err
	}
	if !slices.Contains(supportedTypes, cfg.Connection.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Connection.Type, supportedTypes)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Connection.DBName
	}
	manager := NewDatabaseManager(&cfg.Connection)
	manager.SetLogger(f.logger)
	f.cfg = cfg
	f.manager = manager
	return manager, nil
}

// Connect opens the manager's connection.
func (f *BaseDatabaseFactory) Connect(ctx context.Context) (*bun.DB, error) {
	if f.manager == nil {
		return nil, fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", f.cfg.Name, err)
	}
	return f.manager.GetDB(), nil
}

// Migrator returns a MigrationManager over fsys, or over the configured
// migration directory when fsys is nil.
func (f *BaseDatabaseFactory) Migrator(fsys fs.FS) (*MigrationManager, error) {
	db := f.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database %s is not connected", f.cfg.Name)
	}
	if fsys == nil {
		fsys = os.DirFS(f.cfg.Migration.Dir)
	}
	return NewMigrationManager(db, fsys, f.logger)
}

// NewLoader builds the startup loader for the configured database. The
// loader only migrates when migrations are allowed and a directory is set.
func (f *BaseDatabaseFactory) NewLoader(opts ...LoaderOption) (*Loader, bool, error) {
	var migrator Migrator
	allow := f.cfg.Migration.AllowMigration && f.cfg.Migration.Dir != ""
	if allow {
		mm, err := f.Migrator(nil)
		if err != nil {
			return nil, false, err
		}
		migrator = mm
	}
	opts = append([]LoaderOption{WithLoaderLogger(f.logger)}, opts...)
	return NewLoader(f.cfg.Name, migrator, opts...), allow, nil
}

// Initialize connects, creates registered tables when configured and runs
// the startup loader.
func (f *BaseDatabaseFactory) Initialize(ctx context.Context, opts ...LoaderOption) (*bun.DB, error) {
	db, err := f.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if f.cfg.Migration.CreateTables {
		if err := CreateRegisteredTables(ctx, db); err != nil {
			return nil, err
		}
	}
	loader, allow, err := f.NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	if err := loader.Execute(ctx, allow); err != nil {
		return nil, fmt.Errorf("failed to initialize database %s: %w", f.cfg.Name, err)
	}
	f.logger.Info("Database initialization completed", "database", f.cfg.Name)
	return db, nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager { return f.manager }

// GetDB returns the Bun database instance, or nil if not connected.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "Database manager not initialized", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
