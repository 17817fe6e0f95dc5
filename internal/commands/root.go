// Package commands implements the khatactl operations CLI.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"khata/internal/app"
	"khata/internal/config"
	"khata/internal/logging"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "khatactl",
		Short: "Operate the khata bookkeeping engine",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newBootstrapCommand(),
		newGenerateDueCommand(),
		newImportStatementCommand(),
		newAutoReconcileCommand(),
		newRebalanceCommand(),
	)
	return rootCmd
}

// runWithApp loads configuration, wires the application and runs fn.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, logger *slog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	ctx := logging.WithContext(cmd.Context(), logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseUUIDFlag(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("--%s must be a non-nil UUID", name)
	}
	return id, nil
}
