package buildresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	commonerrors "narrative-workers/internal/common/errors"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/render"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "build-response"

var ErrMissingTemplateID = errors.New("MISSING_TEMPLATE_ID")

type Handler struct {
	config     *Config
	dispatcher render.Dispatcher
	errors     *commonerrors.ErrorHandler
	logger     logger.Logger

	mu       sync.RWMutex
	registry *render.Registry
	loadedAt time.Time
	load     func(path string) (*render.Registry, error)
}

// NewHandler validates payloads against registry. dispatcher receives render
// requests for jobs asking for an image; nil means images are not rendered.
func NewHandler(config *Config, registry *render.Registry, dispatcher render.Dispatcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		dispatcher: dispatcher,
		errors:     commonerrors.NewErrorHandler(log).WithClassifier(classify),
		logger:     log,
		registry:   registry,
		loadedAt:   time.Now(),
		load:       render.LoadRegistry,
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

// Execute stamps the template and request ids onto the payload, validates it
// against the template schema and wraps it in the response envelope.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if strings.TrimSpace(input.TemplateId) == "" {
		return nil, ErrMissingTemplateID
	}

	reg := h.currentRegistry()
	tmpl, ok := reg.Get(input.TemplateId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", render.ErrTemplateNotFound, input.TemplateId)
	}

	ids := map[string]interface{}{"template_id": input.TemplateId}
	if input.RequestId != "" {
		ids["request_id"] = input.RequestId
	}
	data := h.deepMerge(input.Data, ids)

	if _, err := reg.Validate(input.TemplateId, data); err != nil {
		return nil, err
	}

	payload := ResponsePayload{
		RequestId:  input.RequestId,
		Status:     "success",
		TemplateId: input.TemplateId,
		Data:       data,
		Metadata: ResponseMetadata{
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			Version:         h.config.AppVersion,
			TemplateVersion: tmpl.Version,
			Extra:           input.Metadata,
		},
	}

	if input.RenderImage {
		if h.dispatcher == nil {
			h.logger.Warn("image requested but no renderer is configured", map[string]interface{}{
				"templateId": input.TemplateId,
			})
		} else {
			imageID, err := render.NewEngine(reg, h.dispatcher, h.logger).Render(ctx, input.TemplateId, data)
			if err != nil {
				return nil, err
			}
			payload.ImageId = imageID
		}
	}

	return &Output{Response: payload}, nil
}

// currentRegistry reloads the registry file once the cached copy is older
// than CacheTTL. A failed reload keeps the previous registry.
func (h *Handler) currentRegistry() *render.Registry {
	h.mu.RLock()
	reg, loadedAt := h.registry, h.loadedAt
	h.mu.RUnlock()

	if h.config.TemplateRegistry == "" || h.config.CacheTTL <= 0 || time.Since(loadedAt) < h.config.CacheTTL {
		return reg
	}

	fresh, err := h.load(h.config.TemplateRegistry)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadedAt = time.Now()
	if err != nil {
		h.logger.Warn("template registry reload failed, keeping previous", map[string]interface{}{
			"path":  h.config.TemplateRegistry,
			"error": err.Error(),
		})
		return h.registry
	}
	h.registry = fresh
	return fresh
}

func (h *Handler) deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		result[k] = v
	}
	for k, v := range src {
		result[k] = v
	}
	return result
}

func classify(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrMissingTemplateID):
		return commonerrors.NewTemplateNotFoundError("")
	case errors.Is(err, render.ErrTemplateNotFound):
		return commonerrors.NewTemplateNotFoundError(strings.TrimPrefix(err.Error(), render.ErrTemplateNotFound.Error()+": "))
	case errors.Is(err, render.ErrTemplateValidationFailed):
		return commonerrors.NewTemplateValidationFailedError(err.Error())
	case errors.Is(err, render.ErrRenderDispatchFailed):
		return commonerrors.NewRenderDispatchFailedError("", err)
	}
	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}
