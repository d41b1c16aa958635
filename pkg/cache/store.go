package cache

import "time"

// Store is the interface both the in-process Cache and the optional Redis
// backend implement, so callers (pkg/logsclient, pkg/metricsclient) don't
// care which is wired in.
type Store interface {
	GetLoki(key string) (any, bool)
	SetLoki(key string, value any, ttl time.Duration)
	GetCortex(key string) (any, bool)
	SetCortex(key string, value any, ttl time.Duration)
	Clear()
}

var _ Store = (*Cache)(nil)
