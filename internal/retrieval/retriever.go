// Package retrieval fetches data records for an analyzed query from the
// configured stores.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"

	"narrative-workers/internal/models"
)

var (
	ErrSearchQueryFailed    = errors.New("SEARCH_QUERY_FAILED")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrUnavailable          = errors.New("RETRIEVER_UNAVAILABLE")
)

// TimeRange bounds record years. A zero To leaves the range open.
type TimeRange struct {
	From int `json:"from"`
	To   int `json:"to,omitempty"`
}

func (t *TimeRange) Contains(year int) bool {
	if t == nil {
		return true
	}
	if t.From != 0 && year < t.From {
		return false
	}
	if t.To != 0 && year > t.To {
		return false
	}
	return true
}

// Query is what the pipeline asks a retriever for. Domain ranks results but
// never filters them.
type Query struct {
	Keywords  []string   `json:"keywords"`
	Domain    string     `json:"domain,omitempty"`
	Locations []string   `json:"locations,omitempty"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// MetricKeywords returns the keywords matched against metric names. Keywords
// naming one of the queried locations are already covered by the location
// filter and are left out.
func (q Query) MetricKeywords() []string {
	var out []string
	for _, kw := range q.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		isLocation := false
		for _, loc := range q.Locations {
			if strings.EqualFold(kw, strings.TrimSpace(loc)) {
				isLocation = true
				break
			}
		}
		if !isLocation {
			out = append(out, kw)
		}
	}
	return out
}

// Retriever returns records sorted by year ascending. An empty result is not
// an error.
type Retriever interface {
	Query(ctx context.Context, q Query) ([]models.DataRecord, error)
}

// QueryFromAnalysis maps an analysis onto a retriever query. A single year
// on a trend question ("since 2015") opens the range to the present.
func QueryFromAnalysis(a *models.QueryAnalysis, limit int) Query {
	q := Query{
		Keywords:  append([]string(nil), a.SearchKeywords...),
		Domain:    a.DomainHint,
		Locations: append([]string(nil), a.Locations...),
		Limit:     limit,
	}
	if from, to, ok := a.YearRange(); ok {
		if from == to && a.Intent == models.IntentTrend {
			to = 0
		}
		q.TimeRange = &TimeRange{From: from, To: to}
	}
	return q
}

// Matches applies the keyword, location and year filters of q to r.
func Matches(r models.DataRecord, q Query) bool {
	if kws := q.MetricKeywords(); len(kws) > 0 {
		metric := strings.ToLower(r.MetricName)
		hit := false
		for _, kw := range kws {
			if strings.Contains(metric, kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	if len(q.Locations) > 0 {
		hit := false
		for _, loc := range q.Locations {
			if strings.EqualFold(r.Region, loc) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	if q.TimeRange != nil {
		return r.HasYear() && q.TimeRange.Contains(*r.Year)
	}
	return true
}

// SortRecords orders records by year (undated first), metric, region and
// source.
func SortRecords(records []models.DataRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.YearValue() != b.YearValue() {
			return a.YearValue() < b.YearValue()
		}
		if a.MetricName != b.MetricName {
			return a.MetricName < b.MetricName
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Value < b.Value
	})
}

// Dedupe drops records whose Key was already seen, keeping the first.
func Dedupe(records []models.DataRecord) []models.DataRecord {
	seen := make(map[string]bool, len(records))
	out := make([]models.DataRecord, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// Sources lists the distinct sources of records, sorted.
func Sources(records []models.DataRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		if r.Source != "" && !seen[r.Source] {
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	sort.Strings(out)
	return out
}

// limitRecords keeps the newest limit records of a year-ascending slice.
func limitRecords(records []models.DataRecord, limit int) []models.DataRecord {
	if limit > 0 && len(records) > limit {
		return records[len(records)-limit:]
	}
	return records
}
