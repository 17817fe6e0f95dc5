package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"khata/internal/app"
	"khata/internal/service"
)

func newImportStatementCommand() *cobra.Command {
	var tenant, user, bankAccount, file, archiveKey string

	cmd := &cobra.Command{
		Use:   "import-statement",
		Short: "Import a CSV or XLSX bank statement from disk or the statement archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseUUIDFlag("tenant", tenant)
			if err != nil {
				return err
			}
			userID, err := parseUUIDFlag("user", user)
			if err != nil {
				return err
			}
			bankAccountID, err := parseUUIDFlag("bank-account", bankAccount)
			if err != nil {
				return err
			}
			if (file == "") == (archiveKey == "") {
				return errors.New("exactly one of --file or --archive-key is required")
			}

			return runWithApp(cmd, func(ctx context.Context, a *app.App, logger *slog.Logger) error {
				var data []byte
				name := filepath.Base(file)
				if archiveKey != "" {
					if a.Storage == nil {
						return errors.New("--archive-key needs KHATA_S3_BUCKET to be set")
					}
					data, err = a.Storage.Download(ctx, "", archiveKey)
					name = filepath.Base(archiveKey)
				} else {
					data, err = os.ReadFile(file)
				}
				if err != nil {
					return fmt.Errorf("reading statement: %w", err)
				}

				summary, err := a.Bank.ImportBankStatement(ctx, tenantID, userID, bankAccountID, service.ImportStatementInput{
					Filename: name,
					Body:     bytes.NewReader(data),
					Size:     int64(len(data)),
				})
				if err != nil {
					return err
				}
				logger.Info("statement imported",
					slog.Int("imported", summary.ImportedRows),
					slog.Int("skipped", summary.SkippedRows),
				)
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&user, "user", "", "acting user id (required)")
	cmd.Flags().StringVar(&bankAccount, "bank-account", "", "bank account id (required)")
	cmd.Flags().StringVar(&file, "file", "", "path to a .csv or .xlsx statement")
	cmd.Flags().StringVar(&archiveKey, "archive-key", "", "object key of an archived statement to re-import")
	for _, f := range []string{"tenant", "user", "bank-account"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newAutoReconcileCommand() *cobra.Command {
	var tenant, user, bankAccount string

	cmd := &cobra.Command{
		Use:   "auto-reconcile",
		Short: "Link unreconciled bank rows to exactly matching ledger transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseUUIDFlag("tenant", tenant)
			if err != nil {
				return err
			}
			userID, err := parseUUIDFlag("user", user)
			if err != nil {
				return err
			}
			bankAccountID, err := parseUUIDFlag("bank-account", bankAccount)
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.App, logger *slog.Logger) error {
				result, err := a.Bank.AutoReconcile(ctx, tenantID, userID, bankAccountID)
				if err != nil {
					return err
				}
				logger.Info("auto-reconcile complete",
					slog.Int("examined", result.Examined),
					slog.Int("matched", result.Matched),
				)
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&user, "user", "", "acting user id (required)")
	cmd.Flags().StringVar(&bankAccount, "bank-account", "", "bank account id (required)")
	for _, f := range []string{"tenant", "user", "bank-account"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
