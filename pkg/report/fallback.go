package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

var rootCauseIndicators = []string{"root cause", "caused by", "issue is", "problem is", "due to"}
var actionIndicators = []string{"recommend", "suggest", "should", "need to", "must", "fix", "resolve", "restart", "scale"}

// Fallback builds a low-confidence report from the model's free-text
// analysis, for models that explain their reasoning well but don't
// reliably call generate_report. Confidence is fixed at 30.
func Fallback(incidentID uuid.UUID, textAnalysis string, now time.Time) *models.RCAReport {
	lines := strings.Split(strings.TrimSpace(textAnalysis), "\n")

	var summaryLines []string
	for i, line := range lines {
		if i >= 5 {
			break
		}
		if strings.TrimSpace(line) != "" && len(line) > 20 {
			summaryLines = append(summaryLines, line)
		}
	}
	summary := "Analysis completed via text response"
	if len(summaryLines) > 0 {
		summary = truncate(strings.Join(summaryLines, " "), 500)
	}

	rootCause := "Unable to definitively determine root cause"
outer:
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, indicator := range rootCauseIndicators {
			if strings.Contains(lower, indicator) {
				rootCause = strings.TrimSpace(line)
				break outer
			}
		}
	}

	var steps []models.RemediationStep
	for _, line := range lines {
		if len(steps) >= 3 {
			break
		}
		lower := strings.ToLower(line)
		if len(line) <= 20 {
			continue
		}
		for _, indicator := range actionIndicators {
			if strings.Contains(lower, indicator) {
				action := truncate(strings.TrimSpace(line), 200)
				steps = append(steps, models.RemediationStep{
					Priority: models.PriorityImmediate,
					Action:   action,
					Risk:     models.RiskLow,
				})
				break
			}
		}
	}
	if len(steps) == 0 {
		steps = append(steps, models.RemediationStep{
			Priority: models.PriorityImmediate,
			Action:   "Review the text analysis above for specific remediation steps",
			Risk:     models.RiskLow,
		})
	}

	return &models.RCAReport{
		ID:               uuid.New(),
		IncidentID:       incidentID,
		RootCause:        truncate(rootCause, 500),
		ConfidenceScore:  30,
		Summary:          "[Fallback Report] " + summary,
		RemediationSteps: steps,
		Status:           models.ReportComplete,
		StartedAt:        now,
		CompletedAt:      &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

var (
	alertNameRe = regexp.MustCompile(`"alertname":\s*"([^"]+)"`)
	serviceRe2  = regexp.MustCompile(`"service":\s*"([^"]+)"`)
	deviceRe2   = regexp.MustCompile(`"device":\s*"([^"]+)"`)
	descRe      = regexp.MustCompile(`"description":\s*"([^"]+)"`)
	summaryRe   = regexp.MustCompile(`"summary":\s*"([^"]+)"`)
)

// Minimal builds a last-resort report directly from the initial prompt's
// alert fields, when the agent loop exhausted its iteration budget without
// ever producing a report. Confidence is fixed at 40.
func Minimal(incidentID uuid.UUID, initialPrompt string, now time.Time) *models.RCAReport {
	alertName, service, description := "Unknown", "Unknown", "Analysis incomplete"

	if strings.Contains(initialPrompt, "alertname") {
		if m := alertNameRe.FindStringSubmatch(initialPrompt); m != nil {
			alertName = m[1]
		}
		if m := serviceRe2.FindStringSubmatch(initialPrompt); m != nil {
			service = m[1]
		} else if m := deviceRe2.FindStringSubmatch(initialPrompt); m != nil {
			service = m[1]
		}
		if m := descRe.FindStringSubmatch(initialPrompt); m != nil {
			description = m[1]
		}
		if m := summaryRe.FindStringSubmatch(initialPrompt); m != nil {
			description = m[1]
		}
	}

	nowStamp := now.UTC().Format(time.RFC3339)
	investigateDesc := description
	return &models.RCAReport{
		ID:              uuid.New(),
		IncidentID:      incidentID,
		RootCause:       fmt.Sprintf("Alert %q on service %q - %s", alertName, service, description),
		ConfidenceScore: 40,
		Summary: fmt.Sprintf(
			"[Minimal Report] The RCA agent was unable to complete full analysis within iteration limits. "+
				"Alert %q fired for service %q. %s. Manual investigation recommended.",
			alertName, service, description,
		),
		Timeline: []models.TimelineEvent{
			{
				Timestamp: nowStamp,
				Event:     fmt.Sprintf("Alert %s triggered investigation", alertName),
				Source:    models.SourceAlert,
			},
		},
		RemediationSteps: []models.RemediationStep{
			{
				Priority:    models.PriorityImmediate,
				Action:      fmt.Sprintf("Investigate %s on %s", alertName, service),
				Description: &investigateDesc,
				Risk:        models.RiskLow,
			},
			{
				Priority:    models.PriorityImmediate,
				Action:      "Check service logs and metrics manually",
				Description: strPtr("The automated analysis could not gather sufficient evidence. Manual log review recommended."),
				Risk:        models.RiskLow,
			},
		},
		Status:      models.ReportComplete,
		StartedAt:   now,
		CompletedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func strPtr(s string) *string { return &s }
