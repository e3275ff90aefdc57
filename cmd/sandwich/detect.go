package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-sandwich-lab/internal/config"
	"solana-sandwich-lab/internal/orchestrator"
	pgstore "solana-sandwich-lab/internal/storage/postgres"
)

func detectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run detection over a trade file or the trade_events table",
		Example: `  sandwich detect --input trades.csv --out out/
  sandwich detect --source postgres --postgres-dsn postgres://... --baseline 1200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateInput(); err != nil {
				return err
			}

			switch a.cfg.Input.Source {
			case config.SourceCSV, config.SourceJSONL:
				return a.runPipeline(cmd, &orchestrator.FileSource{
					Path:    a.cfg.Input.Path,
					Options: a.loadOptions(),
				})

			case config.SourcePostgres:
				pool, err := pgstore.NewPool(cmd.Context(), a.cfg.Postgres.DSN)
				if err != nil {
					return err
				}
				defer pool.Close()

				startMs, _ := cmd.Flags().GetInt64("start-ms")
				endMs, _ := cmd.Flags().GetInt64("end-ms")
				return a.runPipeline(cmd, &orchestrator.StoreSource{
					Store:    pgstore.NewTradeEventStore(pool),
					Database: "postgres",
					StartMs:  startMs,
					EndMs:    endMs,
					Metrics:  a.metrics,
				})

			default:
				return fmt.Errorf("detect does not read from %q; use the stream command", a.cfg.Input.Source)
			}
		},
	}

	fs := cmd.Flags()
	fs.String("source", "csv", "input source: csv, jsonl or postgres")
	fs.String("input", "", "trade file (.csv, .jsonl)")
	fs.String("kind", "TRADE", "keep rows whose kind column equals this value")
	fs.Bool("strict-addresses", false, "skip rows whose signer is not a valid ed25519 public key")
	fs.Int64("start-ms", 0, "postgres source: first timestamp_ms (inclusive)")
	fs.Int64("end-ms", 0, "postgres source: last timestamp_ms (inclusive)")
	addDetectionFlags(fs)
	addOutputFlags(fs)

	return cmd
}
