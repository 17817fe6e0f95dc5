package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"khata/internal/app"
	"khata/internal/domain"
	"khata/internal/service"
)

func newGenerateDueCommand() *cobra.Command {
	var asOf string
	var kind string

	cmd := &cobra.Command{
		Use:   "generate-due",
		Short: "Materialize due recurring journals and invoices across all tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != "all" && kind != string(domain.ScheduleKindJournal) && kind != string(domain.ScheduleKindInvoice) {
				return errors.New("--kind must be all, journal or invoice")
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.App, logger *slog.Logger) error {
				day := a.Today()
				if asOf != "" {
					parsed, err := domain.ParseDate(asOf)
					if err != nil {
						return err
					}
					day = parsed
				}

				var results []*service.BatchResult
				if kind != string(domain.ScheduleKindInvoice) {
					res, err := a.Schedules.GenerateDueJournals(ctx, day)
					if err != nil {
						return err
					}
					results = append(results, res)
				}
				if kind != string(domain.ScheduleKindJournal) {
					res, err := a.Schedules.GenerateDueInvoices(ctx, day)
					if err != nil {
						return err
					}
					results = append(results, res)
				}
				for _, r := range results {
					logger.Info("batch complete",
						slog.String("kind", string(r.Kind)),
						slog.Int("generated", r.Generated),
						slog.Int("failed", len(r.Failures)),
					)
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "run date YYYY-MM-DD (default: today in the scheduler timezone)")
	cmd.Flags().StringVar(&kind, "kind", "all", "schedule kind: all, journal or invoice")
	return cmd
}
