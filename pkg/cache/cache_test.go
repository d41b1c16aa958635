package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("query", "start", "end")
	_, ok := c.GetLoki(key)
	assert.False(t, ok)

	c.SetLoki(key, map[string]any{"logs": "x"}, 0)
	v, ok := c.GetLoki(key)
	require.True(t, ok)
	assert.Equal(t, "x", v.(map[string]any)["logs"])

	stats := c.LokiStats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(10, time.Millisecond)
	key := Key("q", "s", "e")
	c.SetLoki(key, "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.GetLoki(key)
	assert.False(t, ok, "expired entry must be a miss even if still resident")
}

func TestCache_FIFOEviction(t *testing.T) {
	c := New(2, time.Hour)
	c.SetLoki("a", 1, 0)
	time.Sleep(time.Millisecond)
	c.SetLoki("b", 2, 0)
	time.Sleep(time.Millisecond)
	c.SetLoki("c", 3, 0) // triggers eviction: max_entries+1 -> oldest ("a") evicted

	_, ok := c.GetLoki("a")
	assert.False(t, ok, "oldest entry by created_at should be evicted")
	_, ok = c.GetLoki("b")
	assert.True(t, ok)
	_, ok = c.GetLoki("c")
	assert.True(t, ok)
}

func TestCache_SeparateKeyspaces(t *testing.T) {
	c := New(10, time.Minute)
	c.SetLoki("k", "loki-value", 0)
	c.SetCortex("k", "cortex-value", 0)

	v, _ := c.GetLoki("k")
	assert.Equal(t, "loki-value", v)
	v, _ = c.GetCortex("k")
	assert.Equal(t, "cortex-value", v)
}

func TestCache_HitRate(t *testing.T) {
	var s Stats
	assert.Equal(t, 0.0, s.HitRate())
	s = Stats{Hits: 3, Misses: 1}
	assert.Equal(t, 0.75, s.HitRate())
}
