package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fencedPlan = "Here is the plan.\n```json\n{\n  \"plan\": [\n    {\"agent\": \"Web\", \"id\": \"1\", \"need\": null, \"task\": \"Search for AI startups in Osaka.\"},\n    {\"agent\": \"Web\", \"id\": \"2\", \"need\": null, \"task\": \"Search for AI startups in Tokyo.\"},\n    {\"agent\": \"File\", \"id\": \"3\", \"need\": [\"1\", \"2\"], \"task\": \"Write the findings into research_japan.txt.\"}\n  ]\n}\n```\n"

func TestParsePlanFromFencedAnswer(t *testing.T) {
	steps, err := ParsePlan(fencedPlan)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "Web", steps[0].Agent)
	assert.Equal(t, "1", steps[0].ID)
	assert.Nil(t, steps[0].Need)
	assert.Equal(t, []string{"1", "2"}, steps[2].Need)

	typ, ok := StepAgentType(steps[0])
	require.True(t, ok)
	assert.Equal(t, AgentTypeBrowser, typ)

	typ, ok = StepAgentType(steps[2])
	require.True(t, ok)
	assert.Equal(t, AgentTypeFile, typ)
}

func TestParsePlanRejectsBadAnswers(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"no json", "I would rather chat."},
		{"empty plan", `{"plan": []}`},
		{"missing task", `{"plan": [{"agent": "Web", "id": "1"}]}`},
		{"broken json", "```json\n{\"plan\": [}\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan(tt.answer)
			assert.Error(t, err)
		})
	}
}

func TestRenderPlan(t *testing.T) {
	steps := []PlanStep{
		{Agent: "Web", ID: "1", Task: "Search."},
		{Agent: "File", ID: "2", Need: []string{"1"}, Task: "Save results."},
	}
	rendered := RenderPlan(steps)
	assert.Contains(t, rendered, "1. [Web] Search.")
	assert.Contains(t, rendered, "2. [File] (after 1) Save results.")
}

func TestPlannerAgentParsesPlan(t *testing.T) {
	llm := &fakeLLM{responses: []string{fencedPlan}}
	agent := NewPlannerAgent(llm, newAgentMemory(AgentTypePlanner, PlannerPrompt(PersonalityBase)))

	answer, err := agent.Process(context.Background(), "research AI startups in Japan", false)
	require.NoError(t, err)
	require.Len(t, answer.Plan, 3)
	assert.Contains(t, answer.Content, "Plan:")
	assert.Contains(t, answer.Content, "research_japan.txt")
}

func TestPlannerAgentFallsBackToRawAnswer(t *testing.T) {
	llm := &fakeLLM{responses: []string{"This request needs no plan, just ask the casual agent."}}
	agent := NewPlannerAgent(llm, newAgentMemory(AgentTypePlanner, PlannerPrompt(PersonalityBase)))

	answer, err := agent.Process(context.Background(), "hello", false)
	require.NoError(t, err)
	assert.Nil(t, answer.Plan)
	assert.Equal(t, "This request needs no plan, just ask the casual agent.", answer.Content)
}
