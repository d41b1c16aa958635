// Package queue implements the detached post-commit RCA task (spec §5): a
// bounded pool of worker goroutines that poll for open incidents and drive
// the RCA orchestrator against them, modeled on
// _examples/codeready-toolchain-tarsy's pkg/queue/pool.go + worker.go.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrNoIncidentsAvailable indicates no open incidents are ready for analysis.
	ErrNoIncidentsAvailable = errors.New("no incidents available")

	// ErrAtCapacity indicates the global concurrent-analysis limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// Config controls worker pool sizing and timing. Mirrors the teacher's
// config.QueueConfig shape, trimmed to what this service needs. Operators can
// override it from a mounted YAML file (LoadConfigFromYAML) instead of
// redeploying with new environment variables, the way the teacher's
// pkg/config/loader.go loads its chain/agent registries from YAML.
type Config struct {
	WorkerCount           int
	MaxConcurrentAnalyses int
	PollInterval          time.Duration
	PollIntervalJitter    time.Duration
	AnalysisTimeout       time.Duration
}

// DefaultConfig returns sane defaults for a single-process deployment.
func DefaultConfig() *Config {
	return &Config{
		WorkerCount:           4,
		MaxConcurrentAnalyses: 4,
		PollInterval:          2 * time.Second,
		PollIntervalJitter:    500 * time.Millisecond,
		AnalysisTimeout:       5 * time.Minute,
	}
}

// yamlConfig mirrors Config with duration fields as duration strings (e.g.
// "5s"), since yaml.v3 has no built-in time.Duration support.
type yamlConfig struct {
	WorkerCount           *int    `yaml:"worker_count"`
	MaxConcurrentAnalyses *int    `yaml:"max_concurrent_analyses"`
	PollInterval          *string `yaml:"poll_interval"`
	PollIntervalJitter    *string `yaml:"poll_interval_jitter"`
	AnalysisTimeout       *string `yaml:"analysis_timeout"`
}

// LoadConfigFromYAML reads worker-pool tuning from path, falling back to
// DefaultConfig for any field left unset in the file.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queue config: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("parse queue config: %w", err)
	}

	cfg := DefaultConfig()
	if y.WorkerCount != nil {
		cfg.WorkerCount = *y.WorkerCount
	}
	if y.MaxConcurrentAnalyses != nil {
		cfg.MaxConcurrentAnalyses = *y.MaxConcurrentAnalyses
	}
	if y.PollInterval != nil {
		d, err := time.ParseDuration(*y.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if y.PollIntervalJitter != nil {
		d, err := time.ParseDuration(*y.PollIntervalJitter)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval_jitter: %w", err)
		}
		cfg.PollIntervalJitter = d
	}
	if y.AnalysisTimeout != nil {
		d, err := time.ParseDuration(*y.AnalysisTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid analysis_timeout: %w", err)
		}
		cfg.AnalysisTimeout = d
	}
	return cfg, nil
}

// IncidentAnalyzer is the interface for running RCA against a claimed
// incident. The executor owns the full investigation: it builds the prompt,
// drives the tool-calling loop, and persists the resulting report.
type IncidentAnalyzer interface {
	Analyze(ctx context.Context, incident *models.Incident) *AnalysisResult
}

// AnalysisResult is the terminal state of one incident's analysis.
type AnalysisResult struct {
	Status models.RCAReportStatus
	Error  error

	// Persisted reports whether a report row was actually written for this
	// incident (complete or failed). False means the analysis never got far
	// enough to produce one — e.g. the incident had no member alerts, or the
	// report write itself errored — and the incident should remain eligible
	// for ListIncidentsNeedingRCA so a retry isn't blocked forever.
	Persisted bool
}

// PoolHealth reports the health of the entire worker pool.
type PoolHealth struct {
	IsHealthy      bool           `json:"is_healthy"`
	WorkerCount    int            `json:"worker_count"`
	ActiveWorkers  int            `json:"active_workers"`
	ActiveAnalyses int            `json:"active_analyses"`
	MaxConcurrent  int            `json:"max_concurrent"`
	WorkerStats    []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports the health of a single worker.
type WorkerHealth struct {
	ID                 string    `json:"id"`
	Status             string    `json:"status"`
	CurrentIncidentID  string    `json:"current_incident_id,omitempty"`
	IncidentsProcessed int       `json:"incidents_processed"`
	LastActivity       time.Time `json:"last_activity"`
}

// IncidentStore is the subset of pkg/store.Store the queue depends on for
// finding and claiming work.
type IncidentStore interface {
	// ListIncidentsNeedingRCA returns open incidents with no completed RCA
	// run yet, the only incidents a worker may claim — distinct from a
	// plain "status=open" listing, which would also match an incident
	// that already has a report and simply hasn't been auto-resolved.
	ListIncidentsNeedingRCA(ctx context.Context, limit int) ([]*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateIncident(ctx context.Context, inc *models.Incident) error
}
