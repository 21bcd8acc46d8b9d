// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"narrative-workers/internal/app"
	"narrative-workers/internal/common/camunda"
	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/observability"
	"narrative-workers/internal/render"
	"narrative-workers/internal/server"

	ri "narrative-workers/internal/workers/data-access/retrieve-records"
	br "narrative-workers/internal/workers/infrastructure/build-response"
	st "narrative-workers/internal/workers/infrastructure/select-template"
	aq "narrative-workers/internal/workers/intelligence/analyze-query"
	gi "narrative-workers/internal/workers/intelligence/generate-insight"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("starting worker manager", map[string]interface{}{"environment": cfg.App.Environment})

	var obsOpts []observability.Option
	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint != "" {
		obsOpts = append(obsOpts, observability.WithJaeger(cfg.Tracing.JaegerEndpoint))
	}
	obs := observability.New(cfg.App.Name, obsOpts...)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = app.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- Record stores ---
	stores, err := app.ConnectStores(ctx, cfg, 15, 2*time.Second, log)
	if err != nil {
		zapLog.Fatal("record stores unavailable", zap.Error(err))
	}
	defer stores.Close()

	retriever, err := app.NewRetriever(ctx, cfg, stores, log)
	if err != nil {
		zapLog.Fatal("retriever setup failed", zap.Error(err))
	}

	// --- Rendering ---
	registry, err := render.LoadRegistry(cfg.Template.RegistryPath)
	if err != nil {
		zapLog.Fatal("template registry load failed", zap.Error(err))
	}
	dispatcher, closeDispatcher, err := render.NewDispatcher(ctx, cfg.Render, log)
	if err != nil {
		zapLog.Fatal("render dispatcher setup failed", zap.Error(err))
	}
	defer closeDispatcher()
	engine := render.NewEngine(registry, dispatcher, log)

	pipeline, err := app.NewOrchestrator(cfg, retriever, engine, obs, log)
	if err != nil {
		zapLog.Fatal("pipeline setup failed", zap.Error(err))
	}

	// --- Workers ---
	if err := zeebe.WaitForBroker(ctx); err != nil {
		zapLog.Fatal("zeebe broker not ready", zap.Error(err))
	}
	client := zeebe.GetClient()
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}
	var workers []*camunda.Worker

	aqHandler := aq.NewHandler(&aq.Config{Timeout: timeout(aq.TaskType)}, pipeline.Analyzer(), log)
	workers = append(workers, camunda.StartWorker(client, aq.TaskType, config.GetWorkerConfig(cfg, aq.TaskType), aqHandler.Handle, log))

	giHandler := gi.NewHandler(&gi.Config{
		Timeout:        timeout(gi.TaskType),
		SeparateImages: cfg.Template.SeparateImages,
	}, pipeline, log)
	workers = append(workers, camunda.StartWorker(client, gi.TaskType, config.GetWorkerConfig(cfg, gi.TaskType), giHandler.Handle, log))

	riHandler := ri.NewHandler(&ri.Config{
		Timeout:    timeout(ri.TaskType),
		MaxRecords: cfg.Retrieval.MaxRecords,
	}, retriever, log)
	workers = append(workers, camunda.StartWorker(client, ri.TaskType, config.GetWorkerConfig(cfg, ri.TaskType), riHandler.Handle, log))

	stHandler := st.NewHandler(&st.Config{
		Overrides:      cfg.Template.Overrides,
		SeparateImages: cfg.Template.SeparateImages,
		Timeout:        timeout(st.TaskType),
	}, registry, log)
	workers = append(workers, camunda.StartWorker(client, st.TaskType, config.GetWorkerConfig(cfg, st.TaskType), stHandler.Handle, log))

	brHandler := br.NewHandler(&br.Config{
		TemplateRegistry: cfg.Template.RegistryPath,
		CacheTTL:         time.Duration(cfg.Template.CacheTTL) * time.Second,
		AppVersion:       cfg.App.Version,
		Timeout:          timeout(br.TaskType),
	}, registry, renderDispatcher(cfg, dispatcher), log)
	workers = append(workers, camunda.StartWorker(client, br.TaskType, config.GetWorkerConfig(cfg, br.TaskType), brHandler.Handle, log))

	log.Info("workers registered", map[string]interface{}{"count": countStarted(workers)})

	// --- Ops server ---
	ops := server.NewOpsServer(cfg.Server, readinessChecks(zeebe, stores), log)
	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, w := range workers {
		w.Close(shutdownTimeout)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("worker manager stopped", nil)
}

// renderDispatcher returns nil when no renderer is configured so that
// build-response skips image requests instead of dropping them silently.
func renderDispatcher(cfg *config.Config, d render.Dispatcher) render.Dispatcher {
	if cfg.Render.Dispatcher == config.DispatcherNone {
		return nil
	}
	return d
}

func readinessChecks(zeebe *camunda.Client, stores *app.Stores) map[string]server.Check {
	checks := map[string]server.Check{"zeebe": zeebe.HealthCheck}
	if stores.Postgres != nil {
		checks["postgres"] = stores.Postgres.Ping
	}
	if stores.Elasticsearch != nil {
		checks["elasticsearch"] = stores.Elasticsearch.Ping
	}
	if stores.Redis != nil {
		checks["redis"] = stores.Redis.Ping
	}
	if stores.SQLite != nil {
		checks["sqlite"] = stores.SQLite.Ping
	}
	return checks
}

func countStarted(workers []*camunda.Worker) int {
	n := 0
	for _, w := range workers {
		if w != nil {
			n++
		}
	}
	return n
}
