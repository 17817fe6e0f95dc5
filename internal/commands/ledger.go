package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"khata/internal/app"
)

func newBootstrapCommand() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the default chart of accounts and role mappings for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseUUIDFlag("tenant", tenant)
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.App, logger *slog.Logger) error {
				result, err := a.Accounts.BootstrapTenant(ctx, tenantID)
				if err != nil {
					return err
				}
				logger.Info("tenant bootstrapped",
					slog.String("tenant_id", tenantID.String()),
					slog.Int("created", result.AccountsCreated),
					slog.Int("existing", result.AccountsExisted),
				)
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newRebalanceCommand() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Recompute stored account balances from posted lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseUUIDFlag("tenant", tenant)
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.App, logger *slog.Logger) error {
				drifts, err := a.Ledger.RecalculateBalances(ctx, tenantID)
				if err != nil {
					return err
				}
				logger.Info("balances recalculated", slog.Int("corrected", len(drifts)))
				return printJSON(cmd.OutOrStdout(), drifts)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
