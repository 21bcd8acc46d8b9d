package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedRetriever keeps non-empty results in redis. Cache failures never
// fail a query.
type CachedRetriever struct {
	next   Retriever
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCachedRetriever(next Retriever, client redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *CachedRetriever {
	return &CachedRetriever{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.ForComponent(log, "retriever.cache"),
	}
}

// CacheKey is independent of keyword and location order and case.
func CacheKey(prefix string, q Query) string {
	kws := lowerSorted(q.Keywords)
	locs := lowerSorted(q.Locations)
	from, to := "", ""
	if q.TimeRange != nil {
		from, to = strconv.Itoa(q.TimeRange.From), strconv.Itoa(q.TimeRange.To)
	}
	return prefix + strings.Join([]string{
		"kw=" + strings.Join(kws, ","),
		"dom=" + strings.ToLower(q.Domain),
		"loc=" + strings.Join(locs, ","),
		"from=" + from,
		"to=" + to,
		"limit=" + strconv.Itoa(q.Limit),
	}, "|")
}

func lowerSorted(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(out)
	return out
}

func (c *CachedRetriever) Query(ctx context.Context, q Query) ([]models.DataRecord, error) {
	key := CacheKey(c.prefix, q)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var records []models.DataRecord
		if jsonErr := json.Unmarshal([]byte(val), &records); jsonErr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return records, nil
		}
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	records, err := c.next.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	data, err := json.Marshal(records)
	if err != nil {
		return records, nil
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return records, nil
}
