// Package agents implements the specialist conversation agents a session
// dispatches queries to. Every agent owns its memory and shares the
// session's provider.
package agents

import (
	"context"
	"fmt"

	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/provider"
	"github.com/asklly/asklly/tools"
)

// AgentType tags every agent variant the router can select.
type AgentType string

const (
	AgentTypeCasual    AgentType = "casual"
	AgentTypeCoder     AgentType = "coder"
	AgentTypeFile      AgentType = "file"
	AgentTypePlanner   AgentType = "planner"
	AgentTypeBrowser   AgentType = "browser"
	AgentTypeRetrieval AgentType = "retrieval"
	// AgentTypeMCP is reserved for tool-server backed agents. No variant
	// implements it yet, but the tag is part of the routing vocabulary.
	AgentTypeMCP AgentType = "mcp"
)

// ParseAgentType validates a wire tag.
func ParseAgentType(s string) (AgentType, error) {
	switch t := AgentType(s); t {
	case AgentTypeCasual, AgentTypeCoder, AgentTypeFile, AgentTypePlanner,
		AgentTypeBrowser, AgentTypeRetrieval, AgentTypeMCP:
		return t, nil
	}
	return "", fmt.Errorf("unknown agent type %q", s)
}

// Answer is what an agent produced for one query. Only Content is always
// set; the other fields depend on the variant.
type Answer struct {
	Content   string
	Reasoning string
	// Sources lists what the answer drew from: URLs for web answers, file
	// names for knowledge base answers.
	Sources []string
	// Blocks holds the code blocks extracted from a coder answer.
	Blocks []CodeBlock
	// Plan holds the parsed steps of a planner answer.
	Plan []PlanStep
}

// Agent is one conversational specialist.
type Agent interface {
	Type() AgentType
	Name() string
	// Role is the short description of what the agent is for, used by the
	// router's keyword fallback.
	Role() string
	// RolePrompt is the system prompt the agent answers under.
	RolePrompt() string
	Memory() *memory.Memory
	// SetOrg attaches the caller's organization and user id, used for
	// scoping and accounting.
	SetOrg(org, uid string)
	Process(ctx context.Context, query string, speech bool) (*Answer, error)
}

// LLM is the slice of the provider agents talk to. *provider.Provider
// satisfies it.
type LLM interface {
	Respond(ctx context.Context, history []provider.Message) (string, error)
	RespondWithUsage(ctx context.Context, history []provider.Message) (string, provider.Usage, error)
}

// Embedder produces embedding vectors, for knowledge base search.
type Embedder interface {
	EmbedWithUsage(ctx context.Context, input string) ([]float32, provider.Usage, error)
}

// Searcher runs web searches. *tools.BraveClient satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tools.SearchResult, error)
}
