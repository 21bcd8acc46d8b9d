package cli

import (
	"context"
	"fmt"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/database"
	"narrative-workers/internal/retrieval"
)

// openRetriever returns the record source for ask: the fixture when one is
// given, otherwise the sqlite store.
func (a *App) openRetriever(ctx context.Context) (retrieval.Retriever, func(), error) {
	if a.Fixture != "" {
		r, err := retrieval.LoadFixture(a.Fixture)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {}, nil
	}
	return a.openStore(ctx)
}

// openStore opens the sqlite record store and creates its table if needed.
func (a *App) openStore(ctx context.Context) (*retrieval.SQLRetriever, func(), error) {
	client, err := database.NewSQLite(config.SQLiteConfig{Path: a.DBPath})
	if err != nil {
		return nil, nil, err
	}
	closer := func() { _ = client.Close() }

	store, err := retrieval.NewSQLRetriever(client.DB, a.Config.Retrieval.Table, retrieval.DialectSQLite, a.Config.Retrieval.MaxRecords, a.Logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		closer()
		return nil, nil, fmt.Errorf("prepare %s: %w", a.DBPath, err)
	}
	return store, closer, nil
}
