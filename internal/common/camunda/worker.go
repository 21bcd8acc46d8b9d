// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Worker is an open job subscription for one task type.
type Worker struct {
	worker   worker.JobWorker
	taskType string
	logger   logger.Logger
}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in configuration.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, recoverHandler(taskType, handler, log))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})

	return &Worker{worker: jobWorker, taskType: taskType, logger: log}
}

// instrument tracks in-flight jobs and job duration per task type.
func instrument(taskType string, next worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer func() {
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}()
		next(client, job)
	}
}

// recoverHandler keeps a panicking handler from taking the poller down; the
// job is failed without consuming the remaining retries.
func recoverHandler(taskType string, next worker.JobHandler, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.WorkerJobsFailed.WithLabelValues(taskType, "PANIC").Inc()
			log.Error("handler panicked", map[string]interface{}{
				"jobKey": job.Key,
				"panic":  fmt.Sprint(r),
			})
			_, _ = client.NewFailJobCommand().
				JobKey(job.Key).
				Retries(job.Retries).
				ErrorMessage(fmt.Sprintf("handler panic: %v", r)).
				Send(context.Background())
		}()
		next(client, job)
	}
}

func (w *Worker) TaskType() string {
	return w.taskType
}

// Close stops polling and waits for in-flight jobs up to the worker timeout.
func (w *Worker) Close(timeout time.Duration) {
	if w == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.worker.Close()

	done := make(chan struct{})
	go func() {
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		w.logger.Warn("worker did not stop in time", map[string]interface{}{"timeout": timeout.String()})
	}
}
