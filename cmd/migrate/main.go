package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/splax/cornerstone/internal/app/migrate"
	"github.com/splax/cornerstone/pkg/config"
	"github.com/splax/cornerstone/pkg/logger"
)

func main() {
	var timeout time.Duration
	var target int64

	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", cfg.LogLevel)

	// withRunner opens the pool, runs fn and releases everything afterwards.
	withRunner := func(cmd *cobra.Command, fn func(context.Context, migrate.Runner) error) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		runner, err := migrate.New(pool, cfg.MigrationsDir, log)
		if err != nil {
			return err
		}
		if err := fn(ctx, runner); err != nil {
			return err
		}
		log.Info("migration command completed", "command", cmd.Name())
		return nil
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the CRM database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "command timeout")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, func(ctx context.Context, r migrate.Runner) error { return r.Ensure(ctx) })
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, func(ctx context.Context, r migrate.Runner) error { return r.Status(ctx) })
		},
	})
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or down to --target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, func(ctx context.Context, r migrate.Runner) error { return r.Down(ctx, target) })
		},
	}
	down.Flags().Int64Var(&target, "target", 0, "target version (optional)")
	root.AddCommand(down)

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error("migration command failed", "error", err)
		os.Exit(1)
	}
}
