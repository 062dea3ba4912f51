package agents

import (
	"context"

	"github.com/asklly/asklly/memory"
)

// CasualAgent handles general conversation. It is also the fallback when no
// specialist matches a query.
type CasualAgent struct {
	BaseAgent
}

// NewCasualAgent creates the conversation agent. The name is the assistant
// name from the configuration, so the personality prompt can use it.
func NewCasualAgent(name string, llm LLM, mem *memory.Memory) *CasualAgent {
	return &CasualAgent{
		BaseAgent: newBaseAgent(AgentTypeCasual, name, "talk and answer questions", llm, mem),
	}
}

func (a *CasualAgent) Process(ctx context.Context, query string, speech bool) (*Answer, error) {
	a.mem.Push(ctx, memory.RoleUser, query)
	answer, reasoning, err := a.llmRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &Answer{Content: answer, Reasoning: reasoning}, nil
}
