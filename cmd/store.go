package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "crate.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DSN, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Store administration",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		zap.L().Info("schema up to date",
			zap.String("driver", cfg.Store.Driver),
			zap.String("dsn", cfg.Store.DSN),
		)
		return nil
	},
}

var storePruneCacheCmd = &cobra.Command{
	Use:   "prune-cache",
	Short: "Delete expired paid-call cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		deleted, err := st.DeleteExpiredCache(ctx)
		if err != nil {
			return eris.Wrap(err, "prune cache")
		}

		zap.L().Info("cache pruned", zap.Int("deleted", deleted))
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storePruneCacheCmd)
	rootCmd.AddCommand(storeCmd)
}
