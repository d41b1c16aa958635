package report

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// Markdown renders r in a fixed section order: header, summary, root
// cause, timeline (if non-empty), log evidence (first 10, messages
// truncated at 200 chars), metric evidence (first 10), then remediation
// steps grouped by priority with any command in a fenced code block.
// Deterministic for identical input.
func Markdown(r *models.RCAReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Root Cause Analysis Report\n\n")
	fmt.Fprintf(&b, "**Confidence:** %d%%\n\n", r.ConfidenceScore)

	b.WriteString("## Summary\n\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\n")

	b.WriteString("## Root Cause\n\n")
	b.WriteString(r.RootCause)
	b.WriteString("\n\n")

	if len(r.Timeline) > 0 {
		b.WriteString("## Timeline\n\n")
		for _, ev := range r.Timeline {
			fmt.Fprintf(&b, "- `%s` [%s] %s\n", ev.Timestamp, ev.Source, ev.Event)
		}
		b.WriteString("\n")
	}

	if len(r.Evidence.Logs) > 0 {
		b.WriteString("## Log Evidence\n\n")
		logs := r.Evidence.Logs
		if len(logs) > 10 {
			logs = logs[:10]
		}
		for _, l := range logs {
			fmt.Fprintf(&b, "- `%s` %s\n", l.Timestamp, truncate(l.Message, 200))
		}
		b.WriteString("\n")
	}

	if len(r.Evidence.Metrics) > 0 {
		b.WriteString("## Metric Evidence\n\n")
		metrics := r.Evidence.Metrics
		if len(metrics) > 10 {
			metrics = metrics[:10]
		}
		for _, m := range metrics {
			fmt.Fprintf(&b, "- `%s` %s = %g\n", m.Timestamp, m.Name, m.Value)
		}
		b.WriteString("\n")
	}

	if len(r.RemediationSteps) > 0 {
		b.WriteString("## Remediation Steps\n\n")
		writeRemediationGroup(&b, r.RemediationSteps, models.PriorityImmediate, "Immediate")
		writeRemediationGroup(&b, r.RemediationSteps, models.PriorityLongTerm, "Long Term")
	}

	return b.String()
}

func writeRemediationGroup(b *strings.Builder, steps []models.RemediationStep, priority models.RemediationPriority, label string) {
	var group []models.RemediationStep
	for _, s := range steps {
		if s.Priority == priority {
			group = append(group, s)
		}
	}
	if len(group) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s (%s risk tagged)\n\n", label, string(priority))
	for _, s := range group {
		fmt.Fprintf(b, "- **[%s]** %s\n", strings.ToUpper(string(s.Risk)), s.Action)
		if s.Description != nil && *s.Description != "" {
			fmt.Fprintf(b, "  %s\n", *s.Description)
		}
		if s.Command != nil && *s.Command != "" {
			fmt.Fprintf(b, "\n  ```\n  %s\n  ```\n", *s.Command)
		}
	}
	b.WriteString("\n")
}
