package models

import (
	"time"

	"github.com/google/uuid"
)

// RCAReportStatus is the lifecycle state of a report.
type RCAReportStatus string

const (
	ReportPending  RCAReportStatus = "pending"
	ReportComplete RCAReportStatus = "complete"
	ReportFailed   RCAReportStatus = "failed"
)

func (s RCAReportStatus) IsValid() bool {
	switch s {
	case ReportPending, ReportComplete, ReportFailed:
		return true
	}
	return false
}

// RemediationPriority is how urgently a remediation step should be taken.
type RemediationPriority string

const (
	PriorityImmediate RemediationPriority = "immediate"
	PriorityLongTerm  RemediationPriority = "long_term"
)

func (p RemediationPriority) IsValid() bool {
	return p == PriorityImmediate || p == PriorityLongTerm
}

// RiskLevel is the blast radius of a remediation step.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RemediationCategory groups similar remediation actions. Unknown values
// normalize to CategoryOther (spec §4.5: "unknown category defaults to other").
type RemediationCategory string

const (
	CategoryRestart     RemediationCategory = "restart"
	CategoryScale       RemediationCategory = "scale"
	CategoryConfig      RemediationCategory = "config"
	CategoryCleanup     RemediationCategory = "cleanup"
	CategoryRollback    RemediationCategory = "rollback"
	CategoryInvestigate RemediationCategory = "investigate"
	CategoryOther       RemediationCategory = "other"
)

// NormalizeCategory maps an arbitrary string to a known category, defaulting
// to CategoryOther when it doesn't match.
func NormalizeCategory(s string) RemediationCategory {
	switch RemediationCategory(s) {
	case CategoryRestart, CategoryScale, CategoryConfig, CategoryCleanup, CategoryRollback, CategoryInvestigate, CategoryOther:
		return RemediationCategory(s)
	default:
		return CategoryOther
	}
}

// EstimatedImpact is the expected availability impact of a remediation step.
type EstimatedImpact string

const (
	ImpactNone           EstimatedImpact = "no_downtime"
	ImpactBrief          EstimatedImpact = "brief_downtime"
	ImpactServiceRestart EstimatedImpact = "service_restart"
	ImpactDataLossRisk   EstimatedImpact = "data_loss_risk"
)

// TimelineEventSource is where a timeline entry's information came from.
type TimelineEventSource string

const (
	SourceAlert  TimelineEventSource = "alert"
	SourceLog    TimelineEventSource = "log"
	SourceMetric TimelineEventSource = "metric"
)

// TimelineEvent is one entry in the chronological reconstruction of an incident.
type TimelineEvent struct {
	Timestamp string              `json:"timestamp"`
	Event     string              `json:"event"`
	Source    TimelineEventSource `json:"source"`
	Details   map[string]any      `json:"details,omitempty"`
}

// LogEvidence is a single supporting log line.
type LogEvidence struct {
	Timestamp string            `json:"timestamp"`
	Message   string            `json:"message"`
	Source    string            `json:"source,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// MetricEvidence is a single supporting metric sample.
type MetricEvidence struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Timestamp string            `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Evidence bundles the logs and metrics backing a root-cause determination.
type Evidence struct {
	Logs    []LogEvidence    `json:"logs"`
	Metrics []MetricEvidence `json:"metrics"`
}

// RemediationStep is one suggested corrective or preventive action.
type RemediationStep struct {
	Priority          RemediationPriority `json:"priority"`
	Action            string              `json:"action"`
	Command           *string             `json:"command,omitempty"`
	Description       *string             `json:"description,omitempty"`
	Risk              RiskLevel           `json:"risk"`
	Category          *RemediationCategory `json:"category,omitempty"`
	EstimatedImpact   *EstimatedImpact    `json:"estimated_impact,omitempty"`
	RequiresApproval  bool                `json:"requires_approval"`
	AutomationReady   bool                `json:"automation_ready"`
}

// AnalysisMetadata records how the orchestrator arrived at the report.
type AnalysisMetadata struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	TokensUsed      int     `json:"tokens_used"`
	DurationSeconds float64 `json:"duration_seconds"`
	ToolCalls       int     `json:"tool_calls"`
}

// RCAReport is the structured output of the RCA orchestrator, one per incident.
type RCAReport struct {
	ID               uuid.UUID          `json:"id"`
	IncidentID       uuid.UUID          `json:"incident_id"`
	RootCause        string             `json:"root_cause"`
	ConfidenceScore  int                `json:"confidence_score"`
	Summary          string             `json:"summary"`
	Timeline         []TimelineEvent    `json:"timeline"`
	Evidence         Evidence           `json:"evidence"`
	RemediationSteps []RemediationStep  `json:"remediation_steps"`
	AnalysisMetadata *AnalysisMetadata  `json:"analysis_metadata,omitempty"`
	Status           RCAReportStatus    `json:"status"`
	ErrorMessage     *string            `json:"error_message,omitempty"`
	StartedAt        time.Time          `json:"started_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Valid checks the invariant: status=complete implies completed_at set and
// root_cause non-empty.
func (r *RCAReport) Valid() bool {
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 100 {
		return false
	}
	if r.Status == ReportComplete && (r.CompletedAt == nil || r.RootCause == "") {
		return false
	}
	return true
}
