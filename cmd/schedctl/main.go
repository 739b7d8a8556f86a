package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/hackgods/provider-availability-booking/internal/config"
	"github.com/hackgods/provider-availability-booking/internal/db"
	"github.com/hackgods/provider-availability-booking/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schedctl",
		Short: "Operational tooling for the availability and booking service",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect loads config the same way the server does and opens a small pool.
func connect(ctx context.Context) (config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN, 4)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	run := func(action func(ctx context.Context, m *db.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			m, err := db.NewMigrator(pool)
			if err != nil {
				return err
			}
			defer m.Close()
			return action(ctx, m)
		}
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: run(func(ctx context.Context, m *db.Migrator) error {
			if err := m.Up(ctx); err != nil {
				return err
			}
			v, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("schema at version %d\n", v)
			return nil
		}),
	})

	// migrate down
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: run(func(ctx context.Context, m *db.Migrator) error {
			return m.Down(ctx)
		}),
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print applied and pending migrations",
		RunE: run(func(ctx context.Context, m *db.Migrator) error {
			return m.Status(ctx)
		}),
	})

	return cmd
}

func seedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake providers, patients and weekly availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := logging.New(cfg.Env, cfg.LogLevel)
			return seed(ctx, pool, logger, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Providers, "providers", 20, "number of providers to create")
	cmd.Flags().IntVar(&opts.Patients, "patients", 500, "number of patients to create")
	cmd.Flags().IntVar(&opts.Weeks, "weeks", 4, "weeks of recurring availability per provider")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "faker seed; 0 picks a random one")

	return cmd
}
