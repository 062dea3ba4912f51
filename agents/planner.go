package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asklly/asklly/memory"
)

// PlanStep is one task of a parsed plan. Agent carries the roster name from
// the prompt contract, such as "Web" or "File".
type PlanStep struct {
	Agent string   `json:"agent"`
	ID    string   `json:"id"`
	Need  []string `json:"need"`
	Task  string   `json:"task"`
}

type planEnvelope struct {
	Plan []PlanStep `json:"plan"`
}

// PlannerAgent divides a complex request into tasks for the other agents.
type PlannerAgent struct {
	BaseAgent
}

func NewPlannerAgent(llm LLM, mem *memory.Memory) *PlannerAgent {
	return &PlannerAgent{
		BaseAgent: newBaseAgent(AgentTypePlanner, "Planner", "divide complex work into tasks", llm, mem),
	}
}

func (a *PlannerAgent) Process(ctx context.Context, query string, speech bool) (*Answer, error) {
	a.mem.Push(ctx, memory.RoleUser, query)
	answer, reasoning, err := a.llmRequest(ctx)
	if err != nil {
		return nil, err
	}

	steps, perr := ParsePlan(answer)
	if perr != nil {
		slog.Warn("planner answer did not contain a valid plan", "error", perr)
		return &Answer{Content: answer, Reasoning: reasoning}, nil
	}
	return &Answer{
		Content:   RenderPlan(steps),
		Reasoning: reasoning,
		Plan:      steps,
	}, nil
}

// ParsePlan reads the JSON plan out of a raw answer, tolerating code fences
// and prose around the object.
func ParsePlan(answer string) ([]PlanStep, error) {
	payload := extractJSONObject(answer)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in answer")
	}
	var envelope planEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if len(envelope.Plan) == 0 {
		return nil, fmt.Errorf("plan is empty")
	}
	for i, step := range envelope.Plan {
		if step.Task == "" {
			return nil, fmt.Errorf("step %d has no task", i+1)
		}
	}
	return envelope.Plan, nil
}

// RenderPlan formats steps as a readable numbered list.
func RenderPlan(steps []PlanStep) string {
	var sb strings.Builder
	sb.WriteString("Plan:\n")
	for i, step := range steps {
		sb.WriteString(fmt.Sprintf("%d. [%s]", i+1, step.Agent))
		if len(step.Need) > 0 {
			sb.WriteString(fmt.Sprintf(" (after %s)", strings.Join(step.Need, ", ")))
		}
		sb.WriteString(" " + step.Task + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// StepAgentType maps a roster name from a plan onto an agent type.
func StepAgentType(step PlanStep) (AgentType, bool) {
	switch strings.ToLower(strings.TrimSpace(step.Agent)) {
	case "web", "browser":
		return AgentTypeBrowser, true
	case "file", "files":
		return AgentTypeFile, true
	case "coder", "code":
		return AgentTypeCoder, true
	case "casual", "talk":
		return AgentTypeCasual, true
	}
	return "", false
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
