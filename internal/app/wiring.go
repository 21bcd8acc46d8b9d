// Package app assembles the pipeline from configuration. Both the worker
// manager and narrative-cli build their retriever and orchestrator here.
package app

import (
	"context"
	"fmt"
	"time"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/database"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/observability"
	"narrative-workers/internal/intelligence/orchestrator"
	"narrative-workers/internal/intelligence/tagger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/render"
	"narrative-workers/internal/retrieval"
)

// Stores holds the connections opened for the configured backends. Nil
// fields were not configured.
type Stores struct {
	Postgres      *database.PostgresClient
	Elasticsearch *database.ElasticsearchClient
	Redis         *database.RedisClient
	SQLite        *database.SQLiteClient
}

func (s *Stores) Close() {
	if s == nil {
		return
	}
	if s.Postgres != nil {
		s.Postgres.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.SQLite != nil {
		s.SQLite.Close()
	}
}

// RetryWithBackoff runs operation up to maxRetries times, doubling the delay
// after each failure.
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// ConnectStores opens the stores the retrieval section needs, retrying each
// connection. Redis is opened only when the record cache is enabled.
func ConnectStores(ctx context.Context, cfg *config.Config, attempts int, delay time.Duration, log logger.Logger) (*Stores, error) {
	stores := &Stores{}

	if cfg.Retrieval.HasBackend(config.BackendPostgres) {
		err := RetryWithBackoff(ctx, func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			stores.Postgres = pg
			return nil
		}, attempts, delay, log, "PostgreSQL connection")
		if err != nil {
			stores.Close()
			return nil, err
		}
		log.Info("PostgreSQL connected", nil)
	}

	if cfg.Retrieval.HasBackend(config.BackendElasticsearch) {
		err := RetryWithBackoff(ctx, func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			stores.Elasticsearch = es
			return nil
		}, attempts, delay, log, "Elasticsearch connection")
		if err != nil {
			stores.Close()
			return nil, err
		}
		log.Info("Elasticsearch connected", nil)
	}

	if cfg.Retrieval.HasBackend(config.BackendSQLite) {
		sq, err := database.NewSQLite(cfg.Database.SQLite)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.SQLite = sq
	}

	if cfg.Retrieval.CacheEnabled {
		err := RetryWithBackoff(ctx, func() error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			stores.Redis = rc
			return nil
		}, attempts, delay, log, "Redis connection")
		if err != nil {
			stores.Close()
			return nil, err
		}
		log.Info("Redis connected", nil)
	}

	return stores, nil
}

// NewRetriever fans out over every configured backend that has an open
// store and wraps the result in the redis cache when one is connected.
func NewRetriever(ctx context.Context, cfg *config.Config, stores *Stores, log logger.Logger) (retrieval.Retriever, error) {
	var backends []retrieval.Backend
	limit := cfg.Retrieval.MaxRecords

	for _, name := range cfg.Retrieval.Backends {
		switch name {
		case config.BackendElasticsearch:
			if stores.Elasticsearch == nil {
				continue
			}
			backends = append(backends, retrieval.Backend{
				Name:      name,
				Retriever: retrieval.NewElasticsearchRetriever(stores.Elasticsearch.Client, cfg.Retrieval.Index, limit, log),
			})
		case config.BackendPostgres:
			if stores.Postgres == nil {
				continue
			}
			r, err := retrieval.NewSQLRetriever(stores.Postgres.DB, cfg.Retrieval.Table, retrieval.DialectPostgres, limit, log)
			if err != nil {
				return nil, err
			}
			backends = append(backends, retrieval.Backend{Name: name, Retriever: r})
		case config.BackendSQLite:
			if stores.SQLite == nil {
				continue
			}
			r, err := retrieval.NewSQLRetriever(stores.SQLite.DB, cfg.Retrieval.Table, retrieval.DialectSQLite, limit, log)
			if err != nil {
				return nil, err
			}
			if err := r.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			backends = append(backends, retrieval.Backend{Name: name, Retriever: r})
		}
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no retrieval backend available for %v", cfg.Retrieval.Backends)
	}

	var r retrieval.Retriever = retrieval.NewFanOut(log, backends...)
	if stores.Redis != nil {
		r = retrieval.NewCachedRetriever(r, stores.Redis.Client,
			time.Duration(cfg.Retrieval.CacheTTL)*time.Second, cfg.Retrieval.CachePrefix, log)
	}
	return r, nil
}

// NewTagger uses the GenAI classifier when a base URL is configured and the
// keyword tagger otherwise.
func NewTagger(cfg config.APIsConfig, vocab *vocabulary.Vocabulary, log logger.Logger) tagger.Tagger {
	if cfg.GenAI.BaseURL != "" {
		return tagger.NewHTTPClassifier(cfg.GenAI, vocab, log)
	}
	return tagger.NewKeywordTagger(vocab)
}

// NewOrchestrator builds the vocabulary from the intelligence section and the
// orchestrator around retriever. engine and obs may be nil.
func NewOrchestrator(cfg *config.Config, retriever retrieval.Retriever, engine *render.Engine, obs *observability.Observability, log logger.Logger) (*orchestrator.Orchestrator, error) {
	vocab, err := vocabulary.FromConfig(cfg.Intelligence)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	opts := []orchestrator.Option{
		orchestrator.WithTagger(NewTagger(cfg.APIs, vocab, log)),
		orchestrator.WithRetrievalTimeout(config.GetDuration(cfg.Retrieval.Timeout)),
		orchestrator.WithMaxRecords(cfg.Retrieval.MaxRecords),
		orchestrator.WithSeparateImages(cfg.Template.SeparateImages),
	}
	if engine != nil {
		opts = append(opts, orchestrator.WithRenderEngine(engine))
	}
	if obs != nil {
		opts = append(opts, orchestrator.WithObservability(obs))
	}
	return orchestrator.New(vocab, retriever, log, opts...), nil
}
