package agents

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/provider"
)

// fakeLLM replays scripted completions and records every history it saw.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	calls     [][]provider.Message
	err       error
	usage     provider.Usage
}

func (f *fakeLLM) Respond(ctx context.Context, history []provider.Message) (string, error) {
	answer, _, err := f.RespondWithUsage(ctx, history)
	return answer, err
}

func (f *fakeLLM) RespondWithUsage(ctx context.Context, history []provider.Message) (string, provider.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", provider.Usage{}, f.err
	}
	recorded := make([]provider.Message, len(history))
	copy(recorded, history)
	f.calls = append(f.calls, recorded)

	answer := "ok"
	if len(f.responses) > 0 {
		answer = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	return answer, f.usage, nil
}

func (f *fakeLLM) lastCall() []provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func newAgentMemory(agentType AgentType, systemPrompt string) *memory.Memory {
	return memory.New(memory.Config{
		CID:          "cid-test",
		AgentType:    string(agentType),
		SystemPrompt: systemPrompt,
		Model:        "test-model",
	})
}

func TestExtractReasoning(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantAnswer    string
		wantReasoning string
	}{
		{
			name:       "plain answer",
			raw:        "Just an answer.",
			wantAnswer: "Just an answer.",
		},
		{
			name:          "think block",
			raw:           "<think>the user wants a greeting</think>Hello.",
			wantAnswer:    "Hello.",
			wantReasoning: "the user wants a greeting",
		},
		{
			name:          "reasoning block",
			raw:           "<reasoning>check the docs</reasoning>\nUse Load.",
			wantAnswer:    "Use Load.",
			wantReasoning: "check the docs",
		},
		{
			name:          "unclosed leading tag",
			raw:           "weighing options</think>The final answer.",
			wantAnswer:    "The final answer.",
			wantReasoning: "weighing options",
		},
		{
			name:          "multiple blocks",
			raw:           "<think>first</think>Answer.<think>second</think>",
			wantAnswer:    "Answer.",
			wantReasoning: "first\nsecond",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, reasoning := ExtractReasoning(tt.raw)
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, tt.wantReasoning, reasoning)
		})
	}
}

func TestCasualAgentRecordsTurn(t *testing.T) {
	llm := &fakeLLM{responses: []string{"<think>simple greeting</think>Hello there."}}
	agent := NewCasualAgent("Jarvis", llm, newAgentMemory(AgentTypeCasual, "be helpful"))

	answer, err := agent.Process(context.Background(), "hi", false)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", answer.Content)
	assert.Equal(t, "simple greeting", answer.Reasoning)

	msgs := agent.Memory().Get()
	require.Len(t, msgs, 3)
	assert.Equal(t, memory.RoleUser, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, memory.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "Hello there.", msgs[2].Content)

	// The provider saw the history up to and including the user turn.
	require.Len(t, llm.lastCall(), 2)
}

func TestSetOrgScope(t *testing.T) {
	agent := NewCasualAgent("Jarvis", &fakeLLM{}, newAgentMemory(AgentTypeCasual, "be helpful"))
	agent.SetOrg("asklly", "user-1")

	org, uid := agent.Scope()
	assert.Equal(t, "asklly", org)
	assert.Equal(t, "user-1", uid)
}

func TestRolePrompt(t *testing.T) {
	agent := NewCasualAgent("Jarvis", &fakeLLM{}, newAgentMemory(AgentTypeCasual, "be helpful"))
	assert.Equal(t, "be helpful", agent.RolePrompt())
}

func TestParseAgentType(t *testing.T) {
	for _, tag := range []string{"casual", "coder", "file", "planner", "browser", "mcp", "retrieval"} {
		_, err := ParseAgentType(tag)
		assert.NoError(t, err, tag)
	}
	_, err := ParseAgentType("oracle")
	assert.Error(t, err)
}
