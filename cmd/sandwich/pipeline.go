package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"solana-sandwich-lab/internal/detection"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/orchestrator"
	"solana-sandwich-lab/internal/publish"
	"solana-sandwich-lab/internal/solana"
	chstore "solana-sandwich-lab/internal/storage/clickhouse"
)

func (a *app) loadOptions() ingestion.LoadOptions {
	return ingestion.LoadOptions{
		Kind:            a.cfg.Input.Kind,
		StrictAddresses: a.cfg.Input.StrictAddresses,
	}
}

func (a *app) newDetector() (*detection.Detector, error) {
	return detection.NewDetector(a.cfg.DetectorConfig(),
		detection.WithLogger(a.log.With().Str("component", "detector").Logger()),
		detection.WithMetrics(a.metrics),
	)
}

// runPipeline wires optional stages from config and runs one detection.
func (a *app) runPipeline(cmd *cobra.Command, source orchestrator.EventSource) error {
	ctx := cmd.Context()

	detector, err := a.newDetector()
	if err != nil {
		return err
	}

	baseline, _ := cmd.Flags().GetInt("baseline")
	persist, _ := cmd.Flags().GetBool("persist")
	runID, _ := cmd.Flags().GetString("run-id")

	opts := orchestrator.Options{
		Source:   source,
		Detector: detector,
		Output: orchestrator.OutputOptions{
			Dir:         a.cfg.Output.Dir,
			WriteCSV:    a.cfg.Output.WriteCSV,
			WriteReport: a.cfg.Output.WriteReport,
		},
		Baseline: baseline,
		TopK:     a.cfg.Detection.TopK,
		RunID:    runID,
		Logger:   a.log,
		Metrics:  a.metrics,
	}

	if endpoint := a.cfg.Solana.RPCEndpoint; endpoint != "" {
		rpc := solana.NewHTTPClient(endpoint, solana.WithMetrics(a.metrics))
		opts.Enricher = ingestion.NewValidatorResolver(rpc, a.log.With().Str("component", "validator_resolver").Logger())
	}

	if persist && a.cfg.ClickHouse.DSN != "" {
		conn, err := chstore.NewConn(ctx, a.cfg.ClickHouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		opts.DetectionStore = chstore.NewDetectionStore(conn)
		opts.StoreName = "clickhouse"
	}

	if len(a.cfg.Kafka.Brokers) > 0 {
		pub, err := publish.NewKafkaPublisher(publish.Config{
			Brokers: a.cfg.Kafka.Brokers,
			Topic:   a.cfg.Kafka.Topic,
		}, publish.WithLogger(a.log), publish.WithMetrics(a.metrics))
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				a.log.Warn().Err(err).Msg("close kafka publisher")
			}
		}()
		opts.Publisher = pub
	}

	orch, err := orchestrator.New(opts)
	if err != nil {
		return err
	}

	res, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	printRunSummary(cmd.OutOrStdout(), res)
	return nil
}

func printRunSummary(w io.Writer, res *orchestrator.RunResult) {
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "  events:     %d loaded, %d filtered, %d skipped\n", res.Input.Loaded, res.Input.Filtered, res.Input.Skipped)
	fmt.Fprintf(w, "  detections: %d\n", len(res.Result.Detections))
	if res.Result.Partial {
		fmt.Fprintf(w, "  partial:    %d partitions skipped\n", len(res.Result.SkippedPartitions))
	}
	if c := res.Report.Comparison; c != nil {
		fmt.Fprintf(w, "  comparison: %d -> %d (%.1f%% reduction, %s)\n", c.BaselineCount, c.NewCount, c.ReductionPct, c.Quality)
	}
	if res.Files.DetectionsCSV != "" {
		fmt.Fprintf(w, "  csv:        %s\n", res.Files.DetectionsCSV)
	}
	if res.Files.Report != "" {
		fmt.Fprintf(w, "  report:     %s\n", res.Files.Report)
	}
	if res.Persisted {
		fmt.Fprintln(w, "  persisted:  clickhouse")
	}
	if res.Published > 0 {
		fmt.Fprintf(w, "  published:  %d\n", res.Published)
	}
}
