package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"khata/db/migrations"
	"khata/internal/config"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|steps N|version]",
		Short:     "Apply or revert the embedded SQL migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "steps", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.Storage.Driver == config.DriverMemory {
				return errors.New("migrate requires the postgres storage driver")
			}

			src, err := iofs.New(migrations.FS, ".")
			if err != nil {
				return fmt.Errorf("opening embedded migrations: %w", err)
			}
			m, err := migrate.NewWithSourceInstance("iofs", src, cfg.DB.DSN())
			if err != nil {
				return fmt.Errorf("creating migrate instance: %w", err)
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "up":
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migration up failed: %w", err)
				}
				fmt.Fprintln(out, "migrations applied")
			case "down":
				if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migration down failed: %w", err)
				}
				fmt.Fprintln(out, "migrations reverted")
			case "steps":
				if len(args) < 2 {
					return errors.New("steps requires a number argument")
				}
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid steps argument: %w", err)
				}
				if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migration steps failed: %w", err)
				}
				fmt.Fprintf(out, "applied %d migration steps\n", n)
			case "version":
				version, dirty, err := m.Version()
				if err != nil {
					return fmt.Errorf("reading version: %w", err)
				}
				fmt.Fprintf(out, "version: %d, dirty: %v\n", version, dirty)
			default:
				return fmt.Errorf("unknown migrate command %q", args[0])
			}
			return nil
		},
	}
}
