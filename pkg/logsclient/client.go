// Package logsclient talks to a Loki-compatible log backend over LogQL.
// Grounded on original_source/src/services/loki_client.py and
// original_source/src/tools/query_loki.py.
package logsclient

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

// Client queries a Loki-compatible backend, circuit-broken against repeated
// backend failures the way the teacher wraps flaky outbound calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient builds a Client for baseURL, applying timeout to every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "logsclient",
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
		logger:     slog.Default().With("component", "logsclient"),
	}
}

// QueryRange executes a LogQL range query, translating start/end to Loki's
// native nanosecond-epoch timestamps.
func (c *Client) QueryRange(ctx context.Context, query string, start, end time.Time, limit int, direction string) (map[string]any, error) {
	if limit <= 0 {
		limit = 1000
	}
	if direction == "" {
		direction = "backward"
	}
	params := url.Values{
		"query":     {query},
		"start":     {strconv.FormatInt(start.UnixNano(), 10)},
		"end":       {strconv.FormatInt(end.UnixNano(), 10)},
		"limit":     {strconv.Itoa(limit)},
		"direction": {direction},
	}
	c.logger.Debug("executing loki range query", "query", query, "start", start, "end", end)
	return c.getJSON(ctx, "/loki/api/v1/query_range", params)
}

// QueryInstant executes a LogQL instant query at the given evaluation time
// (or Loki's default "now" when at is nil).
func (c *Client) QueryInstant(ctx context.Context, query string, at *time.Time) (map[string]any, error) {
	params := url.Values{"query": {query}}
	if at != nil {
		params.Set("time", strconv.FormatInt(at.UnixNano(), 10))
	}
	return c.getJSON(ctx, "/loki/api/v1/query", params)
}

// Labels returns all known label names in the optional time range.
func (c *Client) Labels(ctx context.Context, start, end *time.Time) ([]string, error) {
	params := url.Values{}
	if start != nil {
		params.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	}
	if end != nil {
		params.Set("end", strconv.FormatInt(end.UnixNano(), 10))
	}
	result, err := c.getJSON(ctx, "/loki/api/v1/labels", params)
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
		params.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	}
	if end != nil {
		params.Set("end", strconv.FormatInt(end.UnixNano(), 10))
	}
	result, err := c.getJSON(ctx, "/loki/api/v1/label/"+url.PathEscape(label)+"/values", params)
	if err != nil {
		return nil, err
	}
	return stringSlice(result["data"]), nil
}

// Ready reports whether the backend answered /ready with 200, within a
// short fixed timeout independent of the client's configured query timeout.
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

// BuildLabelFilter renders a LogQL label selector from a plain map, e.g.
// {"service":"api"} -> `{service="api"}`.
func BuildLabelFilter(labels map[string]string) string {
	return buildSelector(labels)
}

// BuildErrorQuery renders a LogQL query matching common error-log patterns
// within the given label selector.
func BuildErrorQuery(labels map[string]string) string {
	return buildSelector(labels) + ` |~ "(?i)(error|exception|fail|fatal)"`
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
			return nil, fmt.Errorf("loki backend returned %d for %s", resp.StatusCode, path)
		}

		var decoded map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("decode loki response: %w", err)
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
