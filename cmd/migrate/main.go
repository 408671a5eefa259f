package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	loadEnvFunc = godotenv.Load
	openDBFunc  = func(ctx context.Context, dsn string) (database, func(), error) {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
)

func main() {
	_ = loadEnvFunc()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the Postgres schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "database-url", "", "Postgres DSN (defaults to DATABASE_URL)")

	withMigrator := func(run func(ctx context.Context, m *migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url := dsn
			if url == "" {
				url = os.Getenv("DATABASE_URL")
			}
			if strings.TrimSpace(url) == "" {
				return errors.New("DATABASE_URL is required")
			}
			migrations, err := loadMigrations(migrationsFS)
			if err != nil {
				return fmt.Errorf("load migrations: %w", err)
			}

			ctx := cmd.Context()
			db, closeDB, err := openDBFunc(ctx, url)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer closeDB()

			m := &migrator{db: db, migrations: migrations}
			if err := m.ensureTable(ctx); err != nil {
				return fmt.Errorf("ensure schema_migrations table: %w", err)
			}
			return run(ctx, m, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *migrator, _ []string) error {
				n, err := m.up(ctx)
				if err != nil {
					return err
				}
				log.Printf("migrations up complete (%d applied)", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back the newest migrations (default 1)",
			Args:  parseSteps,
			RunE: withMigrator(func(ctx context.Context, m *migrator, args []string) error {
				steps, _ := stepsArg(args)
				n, err := m.down(ctx, steps)
				if err != nil {
					return err
				}
				log.Printf("migrations down complete (%d rolled back)", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *migrator, _ []string) error {
				applied, err := m.applied(ctx)
				if err != nil {
					return fmt.Errorf("read applied versions: %w", err)
				}
				for _, line := range statusLines(m.migrations, applied) {
					log.Println(line)
				}
				return nil
			}),
		},
	)
	return root
}

func parseSteps(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New("down takes at most one argument")
	}
	_, err := stepsArg(args)
	return err
}

func stepsArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid down steps: %q", args[0])
	}
	return n, nil
}
