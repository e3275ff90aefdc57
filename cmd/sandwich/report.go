package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solana-sandwich-lab/internal/reporting"
	chstore "solana-sandwich-lab/internal/storage/clickhouse"
)

func reportCmd(a *app) *cobra.Command {
	var (
		runID  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the Markdown summary of a stored run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID == "" {
				return errors.New("--run-id is required")
			}
			if a.cfg.ClickHouse.DSN == "" {
				return errors.New("report needs --clickhouse-dsn")
			}

			conn, err := chstore.NewConn(cmd.Context(), a.cfg.ClickHouse.DSN)
			if err != nil {
				return err
			}
			defer conn.Close()

			gen := reporting.NewGenerator(a.cfg.DetectorConfig(), a.cfg.Detection.TopK)
			r, err := gen.FromStore(cmd.Context(), chstore.NewDetectionStore(conn), runID)
			if err != nil {
				return err
			}

			md := reporting.RenderMarkdown(r)
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}
			if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			a.log.Info().Str("path", output).Msg("report written")
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "stored run to report on")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}
