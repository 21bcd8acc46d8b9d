package selecttemplate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "narrative-workers/internal/common/errors"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/intelligence/orchestrator"
	"narrative-workers/internal/models"
	"narrative-workers/internal/render"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "select-template"

var ErrInvalidOutputMode = errors.New("INVALID_OUTPUT_MODE")

type Handler struct {
	config   *Config
	registry *render.Registry
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler builds the handler. Overrides naming a template the registry
// does not know are dropped at construction.
func NewHandler(config *Config, registry *render.Registry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	h := &Handler{
		config:   config,
		registry: registry,
		errors:   commonerrors.NewErrorHandler(log).WithClassifier(classify),
		logger:   log,
	}
	h.pruneOverrides()
	return h
}

func (h *Handler) pruneOverrides() {
	if h.registry == nil {
		return
	}
	valid := make(map[string]string, len(h.config.Overrides))
	for key, id := range h.config.Overrides {
		if !h.registry.Has(id) {
			h.logger.Warn("ignoring override for unknown template", map[string]interface{}{
				"key":        key,
				"templateId": id,
			})
			continue
		}
		valid[key] = id
	}
	h.config.Overrides = valid
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

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	mode, ok := models.ParseOutputMode(input.OutputMode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutputMode, input.OutputMode)
	}

	if id, ok := h.override(input); ok {
		return &Output{SelectedTemplateId: id, Overridden: true}, nil
	}

	separate := h.config.SeparateImages
	if input.SeparateImages != nil {
		separate = *input.SeparateImages
	}
	id := orchestrator.SelectTemplate(mode, models.Intent(input.Intent), models.InsightType(input.InsightType), separate)

	h.logger.Debug("template selected", map[string]interface{}{
		"outputMode": mode,
		"intent":     input.Intent,
		"insight":    input.InsightType,
		"templateId": id,
	})
	return &Output{SelectedTemplateId: id}, nil
}

// override looks up the most specific configured key for the input.
func (h *Handler) override(input *Input) (string, bool) {
	if len(h.config.Overrides) == 0 {
		return "", false
	}
	keys := []string{
		input.OutputMode + ":" + input.Intent + ":" + input.InsightType,
		input.OutputMode + ":" + input.Intent,
		input.OutputMode,
	}
	for _, k := range keys {
		if id, ok := h.config.Overrides[k]; ok {
			return id, true
		}
	}
	return "", false
}

func classify(err error) *commonerrors.StandardError {
	if errors.Is(err, ErrInvalidOutputMode) {
		return commonerrors.NewInvalidQueryError(err.Error())
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
