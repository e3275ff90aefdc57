package main

import (
	"time"

	"github.com/spf13/cobra"

	"solana-sandwich-lab/internal/config"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/orchestrator"
)

func streamCmd(a *app) *cobra.Command {
	var (
		duration  time.Duration
		maxTrades int
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Collect trades from a live feed, then run detection over them",
		Example: `  sandwich stream --ws-endpoint wss://feed.example/trades --duration 5m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg.Input.Source = config.SourceWS
			if err := a.cfg.ValidateInput(); err != nil {
				return err
			}

			feed := ingestion.NewWSTradeSource(a.cfg.Solana.WSEndpoint,
				ingestion.WithWSLoadOptions(a.loadOptions()),
				ingestion.WithWSLogger(a.log.With().Str("component", "trade_feed").Logger()),
				ingestion.WithWSMetrics(a.metrics),
			)

			a.log.Info().
				Str("endpoint", a.cfg.Solana.WSEndpoint).
				Dur("duration", duration).
				Int("max", maxTrades).
				Msg("collecting trades")

			return a.runPipeline(cmd, &orchestrator.FeedSource{
				Feed:     feed,
				Duration: duration,
				Max:      maxTrades,
			})
		},
	}

	fs := cmd.Flags()
	fs.DurationVar(&duration, "duration", 5*time.Minute, "how long to collect trades")
	fs.IntVar(&maxTrades, "max", 0, "stop after this many trades (0 = no limit)")
	fs.String("ws-endpoint", "", "trade feed websocket URL")
	fs.String("kind", "TRADE", "keep messages whose kind field equals this value")
	fs.Bool("strict-addresses", false, "drop messages whose signer is not a valid ed25519 public key")
	addDetectionFlags(fs)
	addOutputFlags(fs)

	return cmd
}
