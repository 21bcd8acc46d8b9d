package render

import (
	"context"
	"fmt"
	"time"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"

	"github.com/google/uuid"
)

// Request is the message a dispatcher hands to the image renderer.
type Request struct {
	ImageID     string                 `json:"image_id"`
	TemplateID  string                 `json:"template_id"`
	Payload     map[string]interface{} `json:"payload"`
	RequestedAt string                 `json:"requested_at"`
}

// Dispatcher delivers render requests to the rendering layer.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Engine validates payloads and dispatches render requests. The returned
// image id is assigned here; the renderer stores the image under it.
type Engine struct {
	registry   *Registry
	dispatcher Dispatcher
	logger     logger.Logger
	newID      func() string
}

func NewEngine(registry *Registry, dispatcher Dispatcher, log logger.Logger) *Engine {
	if dispatcher == nil {
		dispatcher = NoopDispatcher{}
	}
	return &Engine{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger.ForComponent(log, "render"),
		newID:      uuid.NewString,
	}
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) Render(ctx context.Context, templateID string, payload map[string]interface{}) (string, error) {
	if _, err := e.registry.Validate(templateID, payload); err != nil {
		metrics.RenderDispatches.WithLabelValues(templateID, "invalid").Inc()
		return "", err
	}

	req := Request{
		ImageID:     e.newID(),
		TemplateID:  templateID,
		Payload:     payload,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := e.dispatcher.Dispatch(ctx, req); err != nil {
		metrics.RenderDispatches.WithLabelValues(templateID, "failed").Inc()
		e.logger.Error("render dispatch failed", map[string]interface{}{
			"templateId": templateID,
			"imageId":    req.ImageID,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrRenderDispatchFailed, err)
	}

	metrics.RenderDispatches.WithLabelValues(templateID, "dispatched").Inc()
	e.logger.Debug("render dispatched", map[string]interface{}{
		"templateId": templateID,
		"imageId":    req.ImageID,
	})
	return req.ImageID, nil
}

// NoopDispatcher accepts every request. Used when no renderer is configured.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(context.Context, Request) error { return nil }
