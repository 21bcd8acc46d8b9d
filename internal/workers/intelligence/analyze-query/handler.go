package analyzequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "narrative-workers/internal/common/errors"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/intelligence/analyzer"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "analyze-query"

type Handler struct {
	config   *Config
	analyzer *analyzer.Analyzer
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, a *analyzer.Analyzer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		analyzer: a,
		errors:   commonerrors.NewErrorHandler(log).WithClassifier(classify),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, commonerrors.NewInvalidQueryError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute reads the question into a QueryAnalysis. A blank query fails with
// analyzer.ErrEmptyQuery.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis, err := h.analyzer.Analyze(input.Query, input.DomainHint)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("query analyzed", map[string]interface{}{
		"intent":     analysis.Intent,
		"topics":     analysis.Topics,
		"locations":  analysis.Locations,
		"domainHint": analysis.DomainHint,
	})
	return &Output{Analysis: analysis}, nil
}

func classify(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, analyzer.ErrEmptyQuery):
		return commonerrors.NewEmptyQueryError()
	case errors.Is(err, context.DeadlineExceeded):
		return commonerrors.NewTimeoutError(TaskType, err)
	}
	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}
