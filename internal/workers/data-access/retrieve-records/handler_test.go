// internal/workers/data-access/retrieve-records/handler_test.go
package retrieverecords

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	commonerrors "narrative-workers/internal/common/errors"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/models"
	"narrative-workers/internal/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func rec(metric, region string, year int, value float64, source string) models.DataRecord {
	return models.DataRecord{MetricName: metric, Region: region, Year: models.YearOf(year), Value: value, Source: source}
}

func createTestRecords() []models.DataRecord {
	return []models.DataRecord{
		rec("literacy_rate", "Telangana", 2015, 66.5, "census"),
		rec("literacy_rate", "Telangana", 2019, 78.4, "census"),
		rec("literacy_rate", "Telangana", 2023, 89.5, "nfhs"),
		rec("literacy_rate", "Kerala", 2023, 96.2, "census"),
		rec("vaccination_coverage", "Telangana", 2021, 91.0, "hmis"),
	}
}

func createTestConfig() *Config {
	return &Config{Timeout: time.Second, MaxRecords: 100}
}

func createTestHandler(t *testing.T, config *Config, r retrieval.Retriever) *Handler {
	if config == nil {
		config = createTestConfig()
	}
	if r == nil {
		r = retrieval.NewMemoryRetriever(createTestRecords())
	}
	return NewHandler(config, r, logger.NewTestLogger(t))
}

type stubRetriever struct {
	err   error
	block bool
	last  retrieval.Query
}

func (s *stubRetriever) Query(ctx context.Context, q retrieval.Query) ([]models.DataRecord, error) {
	s.last = q
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, s.err
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name    string
		input   *Input
		count   int
		sources []string
	}{
		{
			name:    "keyword and location",
			input:   &Input{Keywords: []string{"literacy"}, Locations: []string{"Telangana"}},
			count:   3,
			sources: []string{"census", "nfhs"},
		},
		{
			name:    "time range",
			input:   &Input{Keywords: []string{"literacy"}, TimeRange: &retrieval.TimeRange{From: 2020}},
			count:   2,
			sources: []string{"census", "nfhs"},
		},
		{
			name:    "location only",
			input:   &Input{Locations: []string{"Kerala"}},
			count:   1,
			sources: []string{"census"},
		},
		{
			name:    "input limit",
			input:   &Input{Keywords: []string{"literacy"}, Limit: 2},
			count:   2,
			sources: []string{"census"},
		},
		{
			name:    "nothing matches",
			input:   &Input{Keywords: []string{"rainfall"}},
			count:   0,
			sources: []string{},
		},
	}

	h := createTestHandler(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Len(t, out.Records, tt.count)
			assert.Equal(t, tt.count, out.TotalHits)
			assert.Equal(t, tt.sources, out.Sources)
			assert.NotNil(t, out.Records)
		})
	}
}

func TestHandler_Execute_RecordsSortedByYear(t *testing.T) {
	h := createTestHandler(t, nil, nil)

	out, err := h.Execute(context.Background(), &Input{Keywords: []string{"literacy"}, Locations: []string{"Telangana"}})
	require.NoError(t, err)

	var years []int
	for _, r := range out.Records {
		years = append(years, r.YearValue())
	}
	assert.Equal(t, []int{2015, 2019, 2023}, years)
}

func TestHandler_BuildQuery(t *testing.T) {
	stub := &stubRetriever{}
	h := createTestHandler(t, &Config{Timeout: time.Second, MaxRecords: 50}, stub)

	t.Run("analysis wins over explicit criteria", func(t *testing.T) {
		_, err := h.Execute(context.Background(), &Input{
			Analysis: &models.QueryAnalysis{
				Intent:         models.IntentTrend,
				Topics:         []string{"literacy"},
				Locations:      []string{"Telangana"},
				TimeReferences: []string{"2015"},
				DomainHint:     "education",
			},
			Keywords: []string{"ignored"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"literacy"}, stub.last.Keywords)
		assert.Equal(t, []string{"Telangana"}, stub.last.Locations)
		assert.Equal(t, "education", stub.last.Domain)
		require.NotNil(t, stub.last.TimeRange)
		assert.Equal(t, 2015, stub.last.TimeRange.From)
		assert.Equal(t, 0, stub.last.TimeRange.To)
		assert.Equal(t, 50, stub.last.Limit)
	})

	t.Run("limit capped by config", func(t *testing.T) {
		_, err := h.Execute(context.Background(), &Input{Keywords: []string{"literacy"}, Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 50, stub.last.Limit)
	})

	t.Run("smaller input limit kept", func(t *testing.T) {
		_, err := h.Execute(context.Background(), &Input{Keywords: []string{"literacy"}, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 10, stub.last.Limit)
	})
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("no criteria", func(t *testing.T) {
		h := createTestHandler(t, nil, nil)
		_, err := h.Execute(context.Background(), &Input{Domain: "education"})
		assert.ErrorIs(t, err, ErrNoCriteria)
	})

	t.Run("nil input", func(t *testing.T) {
		h := createTestHandler(t, nil, nil)
		_, err := h.Execute(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("deadline", func(t *testing.T) {
		h := createTestHandler(t, nil, &stubRetriever{block: true})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := h.Execute(ctx, &Input{Keywords: []string{"literacy"}})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("backend failure passes through", func(t *testing.T) {
		h := createTestHandler(t, nil, &stubRetriever{err: fmt.Errorf("%w: all backends down", retrieval.ErrUnavailable)})
		_, err := h.Execute(context.Background(), &Input{Keywords: []string{"literacy"}})
		assert.ErrorIs(t, err, retrieval.ErrUnavailable)
	})
}

func TestHandler_Classify(t *testing.T) {
	h := createTestHandler(t, nil, nil)

	tests := []struct {
		name     string
		err      error
		code     commonerrors.ErrorCode
		bpmnCode string
		retries  int
	}{
		{"no criteria", ErrNoCriteria, commonerrors.ErrCodeInvalidQuery, "INVALID_QUERY", 0},
		{"timeout", context.DeadlineExceeded, commonerrors.ErrCodeRetrieverTimeout, "RETRIEVER_TIMEOUT", 2},
		{"unavailable", retrieval.ErrUnavailable, commonerrors.ErrCodeRetrieverUnavailable, "RETRIEVER_UNAVAILABLE", 3},
		{"search failed", fmt.Errorf("%w: status 500", retrieval.ErrSearchQueryFailed), commonerrors.ErrCodeSearchQueryFailed, "DATA_SOURCE_FAILED", 3},
		{"sql failed", fmt.Errorf("%w: syntax", retrieval.ErrQueryExecutionFailed), commonerrors.ErrCodeQueryExecutionFailed, "DATA_SOURCE_FAILED", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := h.errors.Normalize(tt.err)
			assert.Equal(t, tt.code, stdErr.Code)

			bpmn := commonerrors.ConvertToBPMNError(stdErr)
			assert.Equal(t, tt.bpmnCode, bpmn.Code)
			assert.Equal(t, tt.retries, bpmn.Retries)
		})
	}

	assert.Nil(t, h.classify(errors.New("unknown")))
}
