package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"solana-sandwich-lab/internal/metrics"
	"solana-sandwich-lab/internal/reporting"
	chstore "solana-sandwich-lab/internal/storage/clickhouse"
)

func compareCmd(a *app) *cobra.Command {
	var (
		baseline      int
		detections    string
		baselineRunID string
		runID         string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a detection result against a baseline count or run",
		Example: `  sandwich compare --baseline 1200 --detections out/detections.csv
  sandwich compare --baseline-run-id <id> --run-id <id> --clickhouse-dsn clickhouse://...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var c *metrics.Comparison

			switch {
			case detections != "":
				ds, err := reporting.ReadDetectionsFile(detections)
				if err != nil {
					return err
				}
				c = metrics.CompareMethods(baseline, ds)

			case baselineRunID != "" && runID != "":
				if a.cfg.ClickHouse.DSN == "" {
					return errors.New("comparing stored runs needs --clickhouse-dsn")
				}
				conn, err := chstore.NewConn(cmd.Context(), a.cfg.ClickHouse.DSN)
				if err != nil {
					return err
				}
				defer conn.Close()

				c, err = metrics.NewAggregator(chstore.NewDetectionStore(conn)).CompareRuns(cmd.Context(), baselineRunID, runID)
				if err != nil {
					return err
				}

			default:
				return errors.New("either --detections or both --baseline-run-id and --run-id are required")
			}

			printComparison(cmd.OutOrStdout(), c)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&baseline, "baseline", 0, "baseline detection count")
	fs.StringVar(&detections, "detections", "", "detections CSV written by detect")
	fs.StringVar(&baselineRunID, "baseline-run-id", "", "stored run used as the baseline")
	fs.StringVar(&runID, "run-id", "", "stored run to compare")

	return cmd
}

func printComparison(w io.Writer, c *metrics.Comparison) {
	fmt.Fprintf(w, "Baseline:   %d\n", c.BaselineCount)
	fmt.Fprintf(w, "New:        %d\n", c.NewCount)
	fmt.Fprintf(w, "Reduction:  %d (%.1f%%)\n", c.Reduction, c.ReductionPct)
	fmt.Fprintf(w, "Quality:    %s\n", c.Quality)
	fmt.Fprintf(w, "Mean span:  %.3fs\n", c.MeanSpanSeconds)
	fmt.Fprintf(w, "Max span:   %.3fs\n", c.MaxSpanSeconds)
}
