package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// RecordMapping is the index mapping for data records.
const RecordMapping = `{
  "mappings": {
    "properties": {
      "metric_name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "value":       {"type": "double"},
      "year":        {"type": "integer"},
      "region":      {"type": "keyword"},
      "source":      {"type": "keyword"},
      "unit":        {"type": "keyword"},
      "domain":      {"type": "keyword"}
    }
  }
}`

const defaultSearchSize = 500

type ElasticsearchRetriever struct {
	client *elasticsearch.Client
	index  string
	size   int
	logger logger.Logger
}

func NewElasticsearchRetriever(client *elasticsearch.Client, index string, size int, log logger.Logger) *ElasticsearchRetriever {
	if size <= 0 {
		size = defaultSearchSize
	}
	return &ElasticsearchRetriever{
		client: client,
		index:  index,
		size:   size,
		logger: logger.ForComponent(log, "retriever.elasticsearch"),
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.DataRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *ElasticsearchRetriever) Query(ctx context.Context, q Query) ([]models.DataRecord, error) {
	size := r.size
	if q.Limit > 0 && q.Limit < size {
		size = q.Limit
	}

	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	records := make([]models.DataRecord, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		records = append(records, h.Source)
	}
	SortRecords(records)

	r.logger.Debug("search completed", map[string]interface{}{
		"index":     r.index,
		"totalHits": parsed.Hits.Total.Value,
		"returned":  len(records),
	})
	return records, nil
}

// buildSearchBody turns q into a bool query: keywords must match the metric
// name, locations and years filter, and the domain only boosts.
func buildSearchBody(q Query) map[string]interface{} {
	var must, filter, should []interface{}

	if kw := strings.Join(q.MetricKeywords(), " "); kw != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  kw,
				"fields": []string{"metric_name^3", "domain"},
				"type":   "best_fields",
			},
		})
	}
	if len(q.Locations) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"region": q.Locations},
		})
	}
	if tr := q.TimeRange; tr != nil {
		bounds := map[string]interface{}{}
		if tr.From != 0 {
			bounds["gte"] = tr.From
		}
		if tr.To != 0 {
			bounds["lte"] = tr.To
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"year": bounds},
		})
	}
	if q.Domain != "" {
		should = append(should, map[string]interface{}{
			"term": map[string]interface{}{"domain": map[string]interface{}{"value": q.Domain, "boost": 2}},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(should) > 0 {
		boolQuery["should"] = should
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"year": map[string]interface{}{"order": "desc", "missing": "_last"}},
			"_score",
		},
	}
}

// Index writes records with one bulk request and refreshes the index.
func (r *ElasticsearchRetriever) Index(ctx context.Context, records []models.DataRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		buf.WriteString(`{"index":{}}` + "\n")
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}

	res, err := esapi.BulkRequest{
		Index:   r.index,
		Body:    &buf,
		Refresh: "true",
	}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.String())
	}

	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err == nil && parsed.Errors {
		return fmt.Errorf("bulk index: some records were rejected")
	}

	r.logger.Info("records indexed", map[string]interface{}{
		"index": r.index,
		"count": len(records),
	})
	return nil
}
