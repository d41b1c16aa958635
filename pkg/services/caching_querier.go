package services

import (
	"context"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/cache"
	"github.com/codeready-toolchain/rca-service/pkg/metrics"
)

// cachingLogsQuerier wraps logsclient.Client with pkg/cache's query-result
// cache (spec §4.7), so the orchestrator's repeated query_loki calls within
// one investigation (and across concurrently-investigated incidents sharing
// a time window) don't re-hit Loki for an identical query.
type cachingLogsQuerier struct {
	inner interface {
		QueryRange(ctx context.Context, query string, start, end time.Time, limit int, direction string) (map[string]any, error)
	}
	cache cache.Store
}

func (c *cachingLogsQuerier) QueryRange(ctx context.Context, query string, start, end time.Time, limit int, direction string) (map[string]any, error) {
	if c.cache == nil {
		return c.inner.QueryRange(ctx, query, start, end, limit, direction)
	}

	key := cache.Key(query, start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano), direction)
	if v, ok := c.cache.GetLoki(key); ok {
		if result, ok := v.(map[string]any); ok {
			metrics.CacheResultsTotal.WithLabelValues("loki", "hit").Inc()
			return result, nil
		}
	}
	metrics.CacheResultsTotal.WithLabelValues("loki", "miss").Inc()

	result, err := c.inner.QueryRange(ctx, query, start, end, limit, direction)
	if err != nil {
		return nil, err
	}
	c.cache.SetLoki(key, result, 0)
	return result, nil
}

// cachingMetricsQuerier is the Cortex-side counterpart of cachingLogsQuerier.
type cachingMetricsQuerier struct {
	inner interface {
		RangeQuery(ctx context.Context, query string, start, end time.Time, step string) (map[string]any, error)
	}
	cache cache.Store
}

func (c *cachingMetricsQuerier) RangeQuery(ctx context.Context, query string, start, end time.Time, step string) (map[string]any, error) {
	if c.cache == nil {
		return c.inner.RangeQuery(ctx, query, start, end, step)
	}

	key := cache.Key(query, start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano), step)
	if v, ok := c.cache.GetCortex(key); ok {
		if result, ok := v.(map[string]any); ok {
			metrics.CacheResultsTotal.WithLabelValues("cortex", "hit").Inc()
			return result, nil
		}
	}
	metrics.CacheResultsTotal.WithLabelValues("cortex", "miss").Inc()

	result, err := c.inner.RangeQuery(ctx, query, start, end, step)
	if err != nil {
		return nil, err
	}
	c.cache.SetCortex(key, result, 0)
	return result, nil
}
