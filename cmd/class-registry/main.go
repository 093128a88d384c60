// Package main is the entry point for the class registry.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphops/class-registry/internal/api"
	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/compatibility"
	"github.com/graphops/class-registry/internal/config"
	"github.com/graphops/class-registry/internal/logging"
	"github.com/graphops/class-registry/internal/registry"
	"github.com/graphops/class-registry/internal/seed"
	"github.com/graphops/class-registry/internal/storage"
	"github.com/graphops/class-registry/internal/storage/cached"
	"github.com/graphops/class-registry/internal/storage/memory"
	"github.com/graphops/class-registry/internal/storage/mysql"
	"github.com/graphops/class-registry/internal/storage/postgres"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "class-registry",
		Short: "Graph class registry and class-switch engine",
		Long:  `A registry of graph entity classes with property validation, compatibility analysis, and safe class switching.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the class registry server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("class-registry %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting class registry",
		slog.String("version", version),
		slog.String("storage", cfg.Storage.Type),
		slog.String("address", cfg.Address()),
	)

	store, err := createStorage(cfg, logger)
	if err != nil {
		logger.Error("failed to create storage backend", slog.String("error", err.Error()))
		return err
	}
	if cfg.Storage.Cache.Enabled && cfg.Storage.Type != "memory" {
		logger.Info("class definition caching enabled",
			slog.Int("capacity", cfg.Storage.Cache.Capacity),
			slog.Int("ttl_seconds", cfg.Storage.Cache.TTLSeconds),
		)
		store = cached.NewStore(store, cfg.Storage.Cache.Capacity,
			time.Duration(cfg.Storage.Cache.TTLSeconds)*time.Second)
	}

	analyzer := compatibility.NewAnalyzer()
	analyzer.Register(class.KindRelationship, compatibility.RelationshipChecks())

	reg := registry.New(store, store, analyzer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Seed.Dir != "" {
		loader := seed.NewLoader(cfg.Seed.Dir, reg, logger)
		if err := loader.LoadDir(ctx); err != nil {
			logger.Error("failed to load seed classes", slog.String("error", err.Error()))
			return err
		}
		if cfg.Seed.Watch {
			go func() {
				if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
					logger.Error("seed watcher stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	server := api.NewServer(cfg, reg, logger)

	// Handle shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return err
		}
	case sig := <-shutdown:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
		if err := store.Close(); err != nil {
			logger.Error("storage close error", slog.String("error", err.Error()))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// createStorage creates the appropriate storage backend based on configuration.
func createStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "memory":
		logger.Info("using in-memory storage")
		return memory.NewStore(), nil

	case "postgresql", "postgres":
		logger.Info("connecting to PostgreSQL",
			slog.String("host", cfg.Storage.PostgreSQL.Host),
			slog.Int("port", cfg.Storage.PostgreSQL.Port),
			slog.String("database", cfg.Storage.PostgreSQL.Database),
		)
		pgCfg := postgres.DefaultConfig()
		if cfg.Storage.PostgreSQL.Host != "" {
			pgCfg.Host = cfg.Storage.PostgreSQL.Host
		}
		if cfg.Storage.PostgreSQL.Port != 0 {
			pgCfg.Port = cfg.Storage.PostgreSQL.Port
		}
		if cfg.Storage.PostgreSQL.Database != "" {
			pgCfg.Database = cfg.Storage.PostgreSQL.Database
		}
		if cfg.Storage.PostgreSQL.User != "" {
			pgCfg.Username = cfg.Storage.PostgreSQL.User
		}
		pgCfg.Password = cfg.Storage.PostgreSQL.Password
		if cfg.Storage.PostgreSQL.SSLMode != "" {
			pgCfg.SSLMode = cfg.Storage.PostgreSQL.SSLMode
		}
		if cfg.Storage.PostgreSQL.MaxOpenConns != 0 {
			pgCfg.MaxOpenConns = cfg.Storage.PostgreSQL.MaxOpenConns
		}
		if cfg.Storage.PostgreSQL.MaxIdleConns != 0 {
			pgCfg.MaxIdleConns = cfg.Storage.PostgreSQL.MaxIdleConns
		}
		if cfg.Storage.PostgreSQL.ConnMaxLifetime != 0 {
			pgCfg.ConnMaxLifetime = time.Duration(cfg.Storage.PostgreSQL.ConnMaxLifetime) * time.Second
		}
		return postgres.NewStore(pgCfg)

	case "mysql":
		logger.Info("connecting to MySQL",
			slog.String("host", cfg.Storage.MySQL.Host),
			slog.Int("port", cfg.Storage.MySQL.Port),
			slog.String("database", cfg.Storage.MySQL.Database),
		)
		mysqlCfg := mysql.DefaultConfig()
		if cfg.Storage.MySQL.Host != "" {
			mysqlCfg.Host = cfg.Storage.MySQL.Host
		}
		if cfg.Storage.MySQL.Port != 0 {
			mysqlCfg.Port = cfg.Storage.MySQL.Port
		}
		if cfg.Storage.MySQL.Database != "" {
			mysqlCfg.Database = cfg.Storage.MySQL.Database
		}
		if cfg.Storage.MySQL.User != "" {
			mysqlCfg.Username = cfg.Storage.MySQL.User
		}
		mysqlCfg.Password = cfg.Storage.MySQL.Password
		if cfg.Storage.MySQL.TLS != "" {
			mysqlCfg.TLS = cfg.Storage.MySQL.TLS
		}
		if cfg.Storage.MySQL.MaxOpenConns != 0 {
			mysqlCfg.MaxOpenConns = cfg.Storage.MySQL.MaxOpenConns
		}
		if cfg.Storage.MySQL.MaxIdleConns != 0 {
			mysqlCfg.MaxIdleConns = cfg.Storage.MySQL.MaxIdleConns
		}
		if cfg.Storage.MySQL.ConnMaxLifetime != 0 {
			mysqlCfg.ConnMaxLifetime = time.Duration(cfg.Storage.MySQL.ConnMaxLifetime) * time.Second
		}
		return mysql.NewStore(mysqlCfg)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
