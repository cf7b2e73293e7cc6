package postgres

import (
	"context"

	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/logger"
	sentryService "github.com/flexprice/paysync/internal/sentry"
	"go.uber.org/fx"
)

// IClient is the transaction boundary used by the service layer. Repositories
// pick up the transaction from the context passed to fn.
type IClient interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// Module provides the connection pool and the transaction client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewClient,
		),
		fx.Invoke(registerHooks),
	)
}

// NewClient returns the sentry instrumented transaction client for db
func NewClient(db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return NewSentryClient(db, sentry, logger)
}

func registerHooks(lc fx.Lifecycle, db *DB, cfg *config.Configuration, logger *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				logger.Errorw("failed to ping postgres", "host", cfg.Postgres.Host, "error", err)
				return err
			}
			logger.Infow("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}
