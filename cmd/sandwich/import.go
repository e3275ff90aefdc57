package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"solana-sandwich-lab/internal/ingestion"
	pgstore "solana-sandwich-lab/internal/storage/postgres"
)

func importCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a trade file into the Postgres trade_events table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Input.Path == "" {
				return errors.New("--input is required")
			}
			if a.cfg.Postgres.DSN == "" {
				return errors.New("import needs --postgres-dsn")
			}

			ds, err := ingestion.LoadFile(a.cfg.Input.Path, a.loadOptions())
			if err != nil {
				return err
			}

			pool, err := pgstore.NewPool(cmd.Context(), a.cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgstore.NewTradeEventStore(pool).InsertBulk(cmd.Context(), ds.Events); err != nil {
				return fmt.Errorf("insert trade events: %w", err)
			}

			a.metrics.RecordEventsLoaded("file", len(ds.Events))
			a.metrics.RecordSkipped(ds.Report.SkipReasons)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events (%d filtered, %d skipped)\n",
				ds.Report.Loaded, ds.Report.Filtered, ds.Report.Skipped)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.String("input", "", "trade file (.csv, .jsonl)")
	fs.String("kind", "TRADE", "keep rows whose kind column equals this value")
	fs.Bool("strict-addresses", false, "skip rows whose signer is not a valid ed25519 public key")

	return cmd
}
