package agents

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/provider"
	"github.com/asklly/asklly/store"
)

// BaseAgent carries what every variant shares: identity, memory, provider
// and the caller scope.
type BaseAgent struct {
	name string
	role string
	typ  AgentType
	mem  *memory.Memory
	llm  LLM

	mu  sync.Mutex
	org string
	uid string
}

func newBaseAgent(typ AgentType, name, role string, llm LLM, mem *memory.Memory) BaseAgent {
	return BaseAgent{
		name: name,
		role: role,
		typ:  typ,
		mem:  mem,
		llm:  llm,
	}
}

func (a *BaseAgent) Type() AgentType        { return a.typ }
func (a *BaseAgent) Name() string           { return a.name }
func (a *BaseAgent) Role() string           { return a.role }
func (a *BaseAgent) Memory() *memory.Memory { return a.mem }

// RolePrompt returns the system prompt the agent answers under.
func (a *BaseAgent) RolePrompt() string {
	msgs := a.mem.Get()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0].Content
}

// SetOrg attaches the caller scope for the next Process call.
func (a *BaseAgent) SetOrg(org, uid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.org = org
	a.uid = uid
}

// Scope returns the caller's organization and user id.
func (a *BaseAgent) Scope() (org, uid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.org, a.uid
}

// llmRequest sends the current memory to the provider, splits off the
// reasoning trace and records the answer back into memory.
func (a *BaseAgent) llmRequest(ctx context.Context) (answer, reasoning string, err error) {
	answer, reasoning, _, err = a.llmRequestWithUsage(ctx)
	return answer, reasoning, err
}

// llmRequestWithUsage is llmRequest plus token accounting for the call.
func (a *BaseAgent) llmRequestWithUsage(ctx context.Context) (answer, reasoning string, usage provider.Usage, err error) {
	raw, usage, err := a.llm.RespondWithUsage(ctx, toProviderMessages(a.mem.Get()))
	if err != nil {
		return "", "", usage, err
	}
	answer, reasoning = ExtractReasoning(raw)
	a.mem.Push(ctx, memory.RoleAssistant, answer)
	return answer, reasoning, usage, nil
}

func toProviderMessages(messages []store.ChatMessage) []provider.Message {
	out := make([]provider.Message, len(messages))
	for i, m := range messages {
		out[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

var reasoningPattern = regexp.MustCompile(`(?s)<(think|reasoning)>(.*?)</(think|reasoning)>`)

// ExtractReasoning splits a raw completion into the visible answer and the
// model's reasoning trace. Reasoning models wrap the trace in think tags;
// an unclosed leading tag is treated as everything before the closing tag.
func ExtractReasoning(text string) (answer, reasoning string) {
	var traces []string
	for _, m := range reasoningPattern.FindAllStringSubmatch(text, -1) {
		if trace := strings.TrimSpace(m[2]); trace != "" {
			traces = append(traces, trace)
		}
	}
	answer = reasoningPattern.ReplaceAllString(text, "")

	// Some backends stream the opening tag away and leave only </think>.
	if idx := strings.LastIndex(answer, "</think>"); idx >= 0 {
		if trace := strings.TrimSpace(strings.TrimPrefix(answer[:idx], "<think>")); trace != "" {
			traces = append(traces, trace)
		}
		answer = answer[idx+len("</think>"):]
	}

	return strings.TrimSpace(answer), strings.TrimSpace(strings.Join(traces, "\n"))
}
