package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/adapters/catalog"
	service "github.com/okian/squadron/internal/app"
	"github.com/okian/squadron/internal/config"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// env is what every subcommand needs once configuration is loaded.
type env struct {
	cfg     *config.Config
	scoring *scoring.Config
	catalog *catalog.Catalog
	svc     *service.Service
	log     logger.Logger
	metrics *metricsServer
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		catalogPath string
		e           env
	)

	root := &cobra.Command{
		Use:           "squadron",
		Short:         "Team composition scoring and search",
		Long:          "squadron ranks fixed-size teams drawn from a catalog of builds by how well they cover weighted buffs and roles.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx, configPath)
			if err != nil {
				return err
			}
			if catalogPath != "" {
				cfg.CatalogPath = catalogPath
			}

			if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.log = logger.Get().Named("cli")

			sc, err := cfg.ScoringConfig()
			if err != nil {
				return err
			}
			cat, err := catalog.Load(ctx, cfg.CatalogPath)
			if err != nil {
				return err
			}

			e.cfg = cfg
			e.scoring = sc
			e.catalog = cat
			e.svc = service.New(
				service.WithLogger(logger.Get().Named("service")),
				service.WithWorkerCount(cfg.WorkerCount),
				service.WithQueueSize(cfg.QueueSize),
				service.WithScoreCacheSize(cfg.ScoreCacheSize),
				service.WithLeaderboardCapacity(cfg.LeaderboardCapacity),
			)

			if cfg.MetricsAddr != "" {
				e.metrics = startMetricsServer(ctx, cfg.MetricsAddr, e.log)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if e.metrics == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.metrics.Shutdown(ctx)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (default $SQUADRON_CONFIG)")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Path to the build catalog (overrides catalog_path)")

	root.AddCommand(newSearchCmd(&e), newScoreCmd(&e), newBatchCmd(&e))
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
