package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/models"
)

// Backend names a retriever for logs and metrics.
type Backend struct {
	Name      string
	Retriever Retriever
}

// FanOut queries every backend in parallel and merges the results. The
// query fails only when every backend fails.
type FanOut struct {
	backends []Backend
	logger   logger.Logger
}

func NewFanOut(log logger.Logger, backends ...Backend) *FanOut {
	return &FanOut{backends: backends, logger: logger.ForComponent(log, "retriever.fanout")}
}

func (f *FanOut) Backends() []string {
	names := make([]string, len(f.backends))
	for i, b := range f.backends {
		names[i] = b.Name
	}
	return names
}

type backendResult struct {
	name    string
	records []models.DataRecord
	err     error
}

func (f *FanOut) Query(ctx context.Context, q Query) ([]models.DataRecord, error) {
	if len(f.backends) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", ErrUnavailable)
	}

	results := make([]backendResult, len(f.backends))
	var wg sync.WaitGroup
	for i, b := range f.backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			start := time.Now()
			records, err := b.Retriever.Query(ctx, q)
			metrics.RetrieverDuration.WithLabelValues(b.Name).Observe(time.Since(start).Seconds())
			results[i] = backendResult{name: b.Name, records: records, err: err}
		}(i, b)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []models.DataRecord
	var errs []error
	for _, r := range results {
		if r.err != nil {
			reason := "error"
			if errors.Is(r.err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			metrics.RetrieverFailures.WithLabelValues(r.name, reason).Inc()
			f.logger.Warn("backend query failed", map[string]interface{}{
				"backend": r.name,
				"error":   r.err.Error(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		merged = append(merged, r.records...)
	}

	if len(errs) == len(f.backends) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}

	merged = Dedupe(merged)
	SortRecords(merged)
	return limitRecords(merged, q.Limit), nil
}
