package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"narrative-workers/internal/models"
)

// MemoryRetriever serves a fixed record set. It backs the CLI fixtures and
// tests.
type MemoryRetriever struct {
	records []models.DataRecord
}

func NewMemoryRetriever(records []models.DataRecord) *MemoryRetriever {
	return &MemoryRetriever{records: append([]models.DataRecord(nil), records...)}
}

type fixtureFile struct {
	Records []models.DataRecord `json:"records"`
}

// LoadFixture reads a JSON file holding either a record array or an object
// with a "records" array.
func LoadFixture(path string) (*MemoryRetriever, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var records []models.DataRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var f fixtureFile
		if err2 := json.Unmarshal(data, &f); err2 != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", path, err)
		}
		records = f.Records
	}
	return NewMemoryRetriever(records), nil
}

func (m *MemoryRetriever) Records() []models.DataRecord {
	return append([]models.DataRecord(nil), m.records...)
}

func (m *MemoryRetriever) Query(ctx context.Context, q Query) ([]models.DataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.DataRecord
	for _, r := range m.records {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	SortRecords(out)
	return limitRecords(out, q.Limit), nil
}
