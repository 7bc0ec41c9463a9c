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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/utils"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	configPath    string
	migrationsDir string
	createTables  bool
)

var log = utils.GetLogger("CLI")

func main() {
	rootCmd := &cobra.Command{
		Use:           "unitwork",
		Short:         "unitwork - database migration and status tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (defaults to DB_* environment variables)")
	rootCmd.PersistentFlags().StringVarP(&migrationsDir, "dir", "d", "", "Directory holding *.up.sql / *.down.sql migrations")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().BoolVar(&createTables, "create-tables", false, "Create tables for registered models before migrating")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show connection health and pending migrations",
			RunE:  runStatus,
		},
		migrateCmd,
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("unitwork %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("Command failed")
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*database.Config, error) {
	cfg := database.DefaultConfig()
	if configPath != "" {
		loaded, err := database.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if migrationsDir != "" {
		cfg.Migration.Dir = migrationsDir
	}
	cfg.ApplyLogging()
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Migration.AllowMigration = true
	cfg.Migration.CreateTables = cfg.Migration.CreateTables || createTables

	log.WithField("database", cfg.Name).WithField("dir", cfg.Migration.Dir).Info("Migrating database")
	defer func() { _ = database.CloseDB() }()
	_, err = database.InitDB(cmd.Context(), cfg)
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = factory.Close() }()
	if _, err := factory.Connect(ctx); err != nil {
		return err
	}

	health := manager.HealthCheck(ctx)
	fmt.Printf("database:  %s (%s)\n", cfg.Name, cfg.Connection.Type)
	fmt.Printf("healthy:   %t\n", health.Healthy)
	if stats := manager.GetStats(); stats != nil {
		fmt.Printf("open:      %d (in use %d, idle %d)\n", stats.OpenConns, stats.InUse, stats.Idle)
	}

	mm, err := factory.Migrator(nil)
	if err != nil {
		return err
	}
	pending, err := mm.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("pending:   %d\n", len(pending))
	for _, name := range pending {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
