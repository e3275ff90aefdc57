package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagKeys maps command-line flags to the config keys they override.
// Several subcommands define the same flag, so binding happens per
// invocation for the command that actually runs.
var flagKeys = map[string]string{
	"log-level":      "log.level",
	"log-format":     "log.format",
	"metrics-addr":   "metrics.addr",
	"postgres-dsn":   "postgres.dsn",
	"clickhouse-dsn": "clickhouse.dsn",

	"window-seconds":      "detection.window_seconds",
	"min-trades":          "detection.min_trades",
	"max-victim-ratio":    "detection.max_victim_ratio",
	"min-attacker-trades": "detection.min_attacker_trades",
	"token-pair-policy":   "detection.token_pair_policy",
	"strict-wash-filter":  "detection.strict_wash_filter",
	"workers":             "detection.workers",
	"deadline":            "detection.deadline",
	"verbose":             "detection.verbose",
	"top-k":               "detection.top_k",

	"source":           "input.source",
	"input":            "input.path",
	"kind":             "input.kind",
	"strict-addresses": "input.strict_addresses",

	"out":          "output.dir",
	"write-csv":    "output.write_csv",
	"write-report": "output.write_report",

	"kafka-brokers": "kafka.brokers",
	"kafka-topic":   "kafka.topic",
	"rpc-endpoint":  "solana.rpc_endpoint",
	"ws-endpoint":   "solana.ws_endpoint",
}

// bindFlags binds every known flag of cmd into the app's viper instance.
func (a *app) bindFlags(cmd *cobra.Command) error {
	var err error
	visit := func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := a.v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	}
	cmd.Flags().VisitAll(visit)
	cmd.InheritedFlags().VisitAll(visit)
	return err
}

func addDetectionFlags(fs *pflag.FlagSet) {
	fs.IntSlice("window-seconds", []int{1, 2, 5, 10}, "window sizes in seconds")
	fs.Int("min-trades", 5, "minimum trades per window")
	fs.Float64("max-victim-ratio", 0.8, "maximum victim share of window trades")
	fs.Int("min-attacker-trades", 2, "minimum attacker trades per window")
	fs.String("token-pair-policy", "soft", "token pair mismatch policy: soft or hard")
	fs.Bool("strict-wash-filter", true, "reject windows where the attacker also trades between its brackets")
	fs.Int("workers", 4, "concurrent partitions")
	fs.Duration("deadline", 0, "stop scanning after this long and report a partial result")
	fs.Bool("verbose", false, "log per-partition progress at info level")
	fs.Int("top-k", 10, "rows in attacker, validator and venue tables")
}

func addOutputFlags(fs *pflag.FlagSet) {
	fs.String("out", "out", "output directory")
	fs.Bool("write-csv", true, "write detections.csv")
	fs.Bool("write-report", true, "write report.md")
	fs.StringSlice("kafka-brokers", nil, "publish detections to these Kafka brokers")
	fs.String("kafka-topic", "sandwich-detections", "Kafka topic for detections")
	fs.String("rpc-endpoint", "", "Solana RPC endpoint for validator resolution")
	fs.Int("baseline", 0, "baseline detection count for method comparison")
	fs.Bool("persist", true, "store detections in ClickHouse when a DSN is configured")
	fs.String("run-id", "", "run identifier (generated when empty)")
}
