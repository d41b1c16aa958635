package rca

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/llm"
	"github.com/codeready-toolchain/rca-service/pkg/metrics"
	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/report"
)

// DefaultMaxIterations is the agent-loop iteration cap applied when the
// caller doesn't configure one.
const DefaultMaxIterations = 10

// rateLimitRetryDelay is how long the loop waits before retrying an
// iteration that failed with a rate-limit signal.
const rateLimitRetryDelay = 5 * time.Second

// forcefulContinuationIteration is the iteration past which the
// continue-without-a-report nudge escalates from "IMPORTANT" to
// "CRITICAL" wording.
const forcefulContinuationIteration = 5

// Result is the orchestrator's outcome for one investigation.
type Result struct {
	Success  bool
	Report   *models.RCAReport
	Error    string
	Warning  string
	Metadata models.AnalysisMetadata
}

// Orchestrator drives the bounded tool-calling investigation loop against
// an LLM provider and the log/metric backends, grounded on
// original_source/src/services/rca_agent.py.
type Orchestrator struct {
	LLM     llm.Provider
	Logs    LogsQuerier
	Metrics MetricsQuerier

	MaxIterations int
	ExpertContext string

	// Now and Sleep are overridable for tests; default to time.Now and
	// time.Sleep.
	Now   func() time.Time
	Sleep func(time.Duration)

	Logger *slog.Logger
}

// New builds an Orchestrator with the given dependencies and defaults
// filled in.
func New(provider llm.Provider, logs LogsQuerier, metrics MetricsQuerier, maxIterations int, expertContext string) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Orchestrator{
		LLM:           provider,
		Logs:          logs,
		Metrics:       metrics,
		MaxIterations: maxIterations,
		ExpertContext: expertContext,
		Now:           time.Now,
		Sleep:         time.Sleep,
		Logger:        slog.Default().With("component", "rca"),
	}
}

// AnalyzeAlert investigates a single alert and returns an RCA result.
func (o *Orchestrator) AnalyzeAlert(ctx context.Context, incidentID uuid.UUID, alert *models.Alert) *Result {
	now := o.now()
	prompt, window := formatAlertForAnalysis(alert, now)
	return o.runLoop(ctx, incidentID, prompt, window)
}

// AnalyzeIncident investigates a multi-alert incident and returns an RCA
// result.
func (o *Orchestrator) AnalyzeIncident(ctx context.Context, incident *models.Incident, alerts []*models.Alert) *Result {
	now := o.now()
	prompt, window := formatIncidentForAnalysis(incident, alerts, now)
	return o.runLoop(ctx, incident.ID, prompt, window)
}

type loopState struct {
	incidentID    uuid.UUID
	window        queryWindow
	messages      []llm.Message
	toolCalls     int
	totalTokens   int
	startedAt     time.Time
	report        *models.RCAReport
	initialPrompt string
}

func (o *Orchestrator) runLoop(ctx context.Context, incidentID uuid.UUID, initialPrompt string, window queryWindow) (result *Result) {
	state := &loopState{
		incidentID:    incidentID,
		window:        window,
		messages:      []llm.Message{{Role: "user", Content: initialPrompt}},
		startedAt:     o.now(),
		initialPrompt: initialPrompt,
	}
	systemPrompt := BuildSystemPrompt(o.ExpertContext)

	iteration := 0
	defer func() {
		metrics.RCAIterations.Observe(float64(iteration))
		outcome := "failed"
		if result != nil && result.Success {
			outcome = "succeeded"
		}
		metrics.RCAInvestigationsTotal.WithLabelValues(outcome).Inc()
	}()
	for iteration < o.MaxIterations {
		iteration++
		o.Logger.Info("rca agent iteration", "iteration", iteration, "max_iterations", o.MaxIterations, "provider", o.LLM.Name())

		resp, err := o.LLM.Chat(ctx, state.messages, Tools, systemPrompt, 4096, 0.0)
		if err != nil {
			if isRateLimitError(err) {
				o.Logger.Info("rate limited, retrying", "wait", rateLimitRetryDelay)
				o.Sleep(rateLimitRetryDelay)
				iteration--
				continue
			}
			return &Result{Success: false, Error: "LLM error (" + o.LLM.Name() + "): " + err.Error(), Metadata: o.metadata(state)}
		}
		state.totalTokens += resp.InputTokens + resp.OutputTokens

		if resp.IsComplete() {
			if result := o.handleComplete(state, resp, iteration); result != nil {
				return result
			}
			continue
		}

		if !resp.HasToolCalls() {
			o.Logger.Warn("unexpected state: no tool calls and not complete", "stop_reason", resp.StopReason)
			if resp.Content != "" {
				state.messages = append(state.messages, llm.Message{Role: "assistant", Content: resp.Content})
			}
			state.messages = append(state.messages, llm.Message{Role: "user", Content: "Please continue your analysis and generate the report using the generate_report tool."})
			continue
		}

		state.messages = append(state.messages, o.LLM.FormatAssistantMessage(resp))
		for _, call := range resp.ToolCalls {
			state.toolCalls++
			o.Logger.Info("executing tool", "tool", call.Name)
			result := o.executeTool(ctx, call.Name, call.Input, state)
			if call.Name == "generate_report" {
				if built, ok := result["_args"].(*models.RCAReport); ok {
					state.report = built
				}
				delete(result, "_args")
			}
			state.messages = append(state.messages, o.LLM.FormatToolResult(call.ID, result))
		}

		if state.report != nil {
			return o.finalize(state)
		}
	}

	o.Logger.Warn("max iterations reached", "max_iterations", o.MaxIterations)
	if state.report != nil {
		return o.finalize(state)
	}
	if text := combinedAssistantText(state.messages); len(text) > 50 {
		o.Logger.Info("max iterations reached, synthesizing fallback report from conversation")
		return o.fallbackResult(state, text)
	}
	o.Logger.Info("max iterations reached, synthesizing minimal report")
	return o.minimalResult(state)
}

// handleComplete processes a turn where the provider signaled it's done.
// Returns a non-nil *Result when the loop should return immediately.
func (o *Orchestrator) handleComplete(state *loopState, resp *llm.Response, iteration int) *Result {
	if state.report != nil {
		return o.finalize(state)
	}

	if state.toolCalls > 0 && iteration < o.MaxIterations-1 {
		o.Logger.Info("model stopped without report, prompting to continue", "tool_calls", state.toolCalls)
		if resp.Content != "" {
			state.messages = append(state.messages, llm.Message{Role: "assistant", Content: resp.Content})
		}
		forceLevel := "IMPORTANT"
		if iteration > forcefulContinuationIteration {
			forceLevel = "CRITICAL"
		}
		state.messages = append(state.messages, llm.Message{
			Role: "user",
			Content: "**" + forceLevel + "**: You MUST call the `generate_report` tool NOW to complete this analysis.\n\n" +
				"Based on the evidence gathered (or lack thereof), call generate_report with:\n" +
				"- root_cause: your best assessment of what caused the issue (even if uncertain)\n" +
				"- confidence_score: 0-100 (use lower scores if evidence is limited)\n" +
				"- summary: brief description of the incident and findings\n" +
				"- remediation_steps: array with at least one step having 'priority' and 'action' fields\n\n" +
				"If you couldn't find logs or metrics, that's OK - report what you know from the alert itself.\n" +
				"DO NOT respond with text. ONLY call the generate_report tool.",
		})
		return nil
	}

	o.Logger.Info("agent completed analysis without generating report")
	if resp.Content != "" {
		state.messages = append(state.messages, llm.Message{Role: "assistant", Content: resp.Content})
	}
	text := combinedAssistantText(state.messages)
	if len(text) > 50 {
		o.Logger.Info("creating fallback report from text analysis")
		result := o.fallbackResult(state, text)
		return result
	}
	return &Result{
		Success:  false,
		Error:    "Agent completed without generating a report",
		Metadata: o.metadata(state),
	}
}

func (o *Orchestrator) executeTool(ctx context.Context, name string, input map[string]any, state *loopState) map[string]any {
	metrics.RCAToolCallsTotal.WithLabelValues(name).Inc()
	normalized := normalizeToolInput(name, input, state.window)

	switch name {
	case "query_loki":
		if o.Logs == nil {
			return map[string]any{"success": false, "error": "logs backend not configured"}
		}
		return executeQueryLoki(ctx, o.Logs, normalized)
	case "query_cortex":
		if o.Metrics == nil {
			return map[string]any{"success": false, "error": "metrics backend not configured"}
		}
		return executeQueryCortex(ctx, o.Metrics, normalized)
	case "generate_report":
		args := report.Args{
			RootCause:        asString(normalized["root_cause"]),
			ConfidenceScore:  coerceInt(normalized["confidence_score"], 50),
			Summary:          asString(normalized["summary"]),
			Timeline:         normalized["timeline"],
			Evidence:         normalized["evidence"],
			RemediationSteps: normalized["remediation_steps"],
		}
		built, err := report.Build(state.incidentID, args, o.now())
		if err != nil {
			// Mirrors original_source/src/tools/generate_report.py's
			// try/except: an invalid field (e.g. a priority/risk enum the
			// model made up) comes back as a tool-result error instead of
			// a silently-coerced report, so the model sees the failure and
			// can retry with corrected arguments.
			return map[string]any{"success": false, "error": err.Error()}
		}
		return map[string]any{"success": true, "_args": built}
	default:
		return map[string]any{"error": "unknown tool: " + name}
	}
}

// finalize wraps an already-validated report (built and checked inside
// executeTool's generate_report case) into the terminal Result.
func (o *Orchestrator) finalize(state *loopState) *Result {
	return &Result{Success: true, Report: state.report, Metadata: o.metadata(state)}
}

func (o *Orchestrator) fallbackResult(state *loopState, text string) *Result {
	built := report.Fallback(state.incidentID, text, o.now())
	return &Result{
		Success:  true,
		Report:   built,
		Metadata: o.metadata(state),
		Warning:  "This report was generated from text analysis as the model did not use the generate_report tool",
	}
}

func (o *Orchestrator) minimalResult(state *loopState) *Result {
	built := report.Minimal(state.incidentID, state.initialPrompt, o.now())
	return &Result{
		Success:  true,
		Report:   built,
		Metadata: o.metadata(state),
		Warning:  "This is a minimal report created because the agent exceeded max iterations",
	}
}

func (o *Orchestrator) metadata(state *loopState) models.AnalysisMetadata {
	return models.AnalysisMetadata{
		Provider:        o.LLM.Name(),
		Model:           o.LLM.Model(),
		TokensUsed:      state.totalTokens,
		DurationSeconds: o.now().Sub(state.startedAt).Seconds(),
		ToolCalls:       state.toolCalls,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func combinedAssistantText(messages []llm.Message) string {
	var parts []string
	for _, m := range messages {
		if m.Role != "assistant" {
			continue
		}
		if s, ok := m.Content.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func isRateLimitError(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "rate") || strings.Contains(lower, "429")
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
