package main

import (
	"errors"

	"github.com/spf13/cobra"

	chstore "solana-sandwich-lab/internal/storage/clickhouse"
	"solana-sandwich-lab/internal/storage/migrations"
	pgstore "solana-sandwich-lab/internal/storage/postgres"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the trade_events (Postgres) and sandwich_detections (ClickHouse) schemas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if a.cfg.Postgres.DSN == "" && a.cfg.ClickHouse.DSN == "" {
				return errors.New("nothing to migrate: set --postgres-dsn and/or --clickhouse-dsn")
			}

			if dsn := a.cfg.Postgres.DSN; dsn != "" {
				pool, err := pgstore.NewPool(ctx, dsn)
				if err != nil {
					return err
				}
				defer pool.Close()
				applied, err := migrations.ApplyPostgres(ctx, pool.Pool)
				if err != nil {
					return err
				}
				a.log.Info().Strs("applied", applied).Msg("postgres migrations applied")
			}

			if dsn := a.cfg.ClickHouse.DSN; dsn != "" {
				if err := chstore.EnsureDatabase(ctx, dsn); err != nil {
					return err
				}
				conn, err := chstore.NewConn(ctx, dsn)
				if err != nil {
					return err
				}
				defer conn.Close()
				if err := migrations.ApplyClickHouse(ctx, conn); err != nil {
					return err
				}
				a.log.Info().Msg("clickhouse migrations applied")
			}

			return nil
		},
	}
}
