package retrieverecords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "narrative-workers/internal/common/errors"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/models"
	"narrative-workers/internal/retrieval"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "retrieve-records"

// ErrNoCriteria is returned when the input names neither keywords nor
// locations nor an analysis.
var ErrNoCriteria = errors.New("INVALID_QUERY")

type Handler struct {
	config    *Config
	retriever retrieval.Retriever
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, r retrieval.Retriever, log logger.Logger) *Handler {
	h := &Handler{
		config:    config,
		retriever: r,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
	h.errors = commonerrors.NewErrorHandler(h.logger).WithClassifier(h.classify)
	return h
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	q, err := h.buildQuery(input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := h.retriever.Query(ctx, q)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	if records == nil {
		records = []models.DataRecord{}
	}

	sources := retrieval.Sources(records)
	if sources == nil {
		sources = []string{}
	}

	h.logger.Info("records retrieved", map[string]interface{}{
		"keywords":  q.Keywords,
		"locations": q.Locations,
		"count":     len(records),
	})

	return &Output{
		Records:   records,
		Sources:   sources,
		TotalHits: len(records),
		Took:      time.Since(start).Milliseconds(),
	}, nil
}

func (h *Handler) buildQuery(input *Input) (retrieval.Query, error) {
	limit := h.config.MaxRecords
	if input.Limit > 0 && (limit == 0 || input.Limit < limit) {
		limit = input.Limit
	}

	if input.Analysis != nil {
		return retrieval.QueryFromAnalysis(input.Analysis, limit), nil
	}
	if len(input.Keywords) == 0 && len(input.Locations) == 0 {
		return retrieval.Query{}, ErrNoCriteria
	}
	return retrieval.Query{
		Keywords:  input.Keywords,
		Domain:    input.Domain,
		Locations: input.Locations,
		TimeRange: input.TimeRange,
		Limit:     limit,
	}, nil
}

func (h *Handler) classify(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrNoCriteria):
		return commonerrors.NewInvalidQueryError("keywords, locations or analysis required")
	case errors.Is(err, context.DeadlineExceeded):
		return commonerrors.NewRetrieverTimeoutError(h.config.Timeout)
	case errors.Is(err, retrieval.ErrUnavailable):
		return commonerrors.NewRetrieverUnavailableError(err)
	case errors.Is(err, retrieval.ErrSearchQueryFailed):
		return commonerrors.NewSearchQueryFailedError("records", err)
	case errors.Is(err, retrieval.ErrQueryExecutionFailed):
		return commonerrors.NewQueryExecutionFailedError("records", err)
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
