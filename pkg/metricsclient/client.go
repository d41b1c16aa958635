// Package metricsclient talks to a Cortex-compatible metric backend over
// PromQL. Grounded on original_source/src/services/cortex_client.py and
// original_source/src/tools/query_cortex.py.
package metricsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// Client queries a Cortex-compatible backend, circuit-broken the same way
// pkg/logsclient.Client is.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient builds a Client for baseURL, applying timeout to every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "metricsclient",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL:    trimTrailingSlash(baseURL),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     slog.Default().With("component", "metricsclient"),
	}
}

// RangeQuery executes a PromQL range query. Cortex's native timestamp format
// is second-epoch, unlike Loki's nanoseconds.
func (c *Client) RangeQuery(ctx context.Context, query string, start, end time.Time, step string) (map[string]any, error) {
	if step == "" {
		step = "60s"
	}
	params := url.Values{
		"query": {query},
		"start": {strconv.FormatInt(start.Unix(), 10)},
		"end":   {strconv.FormatInt(end.Unix(), 10)},
		"step":  {step},
	}
	c.logger.Debug("executing cortex range query", "query", query, "start", start, "end", end, "step", step)
	return c.getJSON(ctx, "/api/prom/query_range", params)
}

// InstantQuery executes a PromQL instant query at the given evaluation time
// (or the backend's default "now" when at is nil).
func (c *Client) InstantQuery(ctx context.Context, query string, at *time.Time) (map[string]any, error) {
	params := url.Values{"query": {query}}
	if at != nil {
		params.Set("time", strconv.FormatInt(at.Unix(), 10))
	}
	return c.getJSON(ctx, "/api/prom/query", params)
}

// Series finds series matching the given selectors in the optional time range.
func (c *Client) Series(ctx context.Context, match []string, start, end *time.Time) ([]any, error) {
	params := url.Values{}
	for _, m := range match {
		params.Add("match[]", m)
	}
	if start != nil {
		params.Set("start", strconv.FormatInt(start.Unix(), 10))
	}
	if end != nil {
		params.Set("end", strconv.FormatInt(end.Unix(), 10))
	}
	result, err := c.getJSON(ctx, "/api/prom/series", params)
	if err != nil {
		return nil, err
	}
	raw, _ := result["data"].([]any)
	return raw, nil
}

// Labels returns all known label names in the optional time range.
func (c *Client) Labels(ctx context.Context, start, end *time.Time) ([]string, error) {
	params := url.Values{}
	if start != nil {
		params.Set("start", strconv.FormatInt(start.Unix(), 10))
	}
	if end != nil {
		params.Set("end", strconv.FormatInt(end.Unix(), 10))
	}
	result, err := c.getJSON(ctx, "/api/prom/labels", params)
	if err != nil {
		return nil, err
	}
	return stringSlice(result["data"]), nil
}

// LabelValues returns the known values for a single label in the optional
// time range.
func (c *Client) LabelValues(ctx context.Context, label string, start, end *time.Time) ([]string, error) {
	params := url.Values{}
	if start != nil {
		params.Set("start", strconv.FormatInt(start.Unix(), 10))
	}
	if end != nil {
		params.Set("end", strconv.FormatInt(end.Unix(), 10))
	}
	result, err := c.getJSON(ctx, "/api/prom/label/"+url.PathEscape(label)+"/values", params)
	if err != nil {
		return nil, err
	}
	return stringSlice(result["data"]), nil
}

// Ready reports whether the backend answered /ready with 200.
func (c *Client) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// BuildLabelSelector renders a PromQL label selector from a plain map.
func BuildLabelSelector(labels map[string]string) string {
	return buildSelector(labels)
}

// BuildCPUQuery renders a PromQL query for CPU utilization, optionally
// filtered to one instance.
func BuildCPUQuery(instance string) string {
	selector := `mode="idle"`
	if instance != "" {
		selector = fmt.Sprintf(`mode="idle", instance=%q`, instance)
	}
	return fmt.Sprintf("100 * (1 - avg by (instance) (rate(node_cpu_seconds_total{%s}[5m])))", selector)
}

// BuildMemoryQuery renders a PromQL query for memory utilization, optionally
// filtered to one instance.
func BuildMemoryQuery(instance string) string {
	selector := ""
	if instance != "" {
		selector = fmt.Sprintf(`{instance=%q}`, instance)
	}
	return fmt.Sprintf("100 * (1 - (node_memory_MemAvailable_bytes%s / node_memory_MemTotal_bytes%s))", selector, selector)
}

// BuildErrorRateQuery renders a PromQL query for the HTTP 5xx error rate,
// optionally filtered to one service.
func BuildErrorRateQuery(service string) string {
	if service == "" {
		return `sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m]))`
	}
	errorSelector := fmt.Sprintf(`status=~"5..", service=%q`, service)
	totalSelector := fmt.Sprintf(`service=%q`, service)
	return fmt.Sprintf("sum(rate(http_requests_total{%s}[5m])) / sum(rate(http_requests_total{%s}[5m]))", errorSelector, totalSelector)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("cortex backend returned %d for %s", resp.StatusCode, path)
		}

		var decoded map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("decode cortex response: %w", err)
		}
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func buildSelector(labels map[string]string) string {
	if len(labels) == 0 {
		return "{}"
	}
	sel := "{"
	first := true
	for k, v := range labels {
		if !first {
			sel += ", "
		}
		sel += k + `="` + v + `"`
		first = false
	}
	return sel + "}"
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
