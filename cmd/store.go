package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/store"
)

// outcomeStore is the slice of the history store the commands use.
type outcomeStore interface {
	Migrate(ctx context.Context) error
	RecordOutcome(ctx context.Context, o *schemas.ScenarioOutcome) error
	RecentRuns(ctx context.Context, scenario string, limit int) ([]store.RunSummary, error)
}

// storeProvider defines an interface for creating a store instance, allowing mocks in tests.
type storeProvider interface {
	Create(ctx context.Context, cfg *config.Config) (outcomeStore, func(), error)
}

// defaultStoreProvider connects to PostgreSQL with a connection pool.
type defaultStoreProvider struct{}

func (defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (outcomeStore, func(), error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (UIVERIFY_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, observability.GetLogger())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return s, pool.Close, nil
}
