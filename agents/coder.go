package agents

import (
	"context"
	"regexp"
	"strings"

	"github.com/asklly/asklly/memory"
)

// CodeBlock is one fenced block extracted from a coder answer.
type CodeBlock struct {
	Language string
	Code     string
}

// CoderAgent writes code. It produces code blocks but never executes them.
type CoderAgent struct {
	BaseAgent
}

func NewCoderAgent(llm LLM, mem *memory.Memory) *CoderAgent {
	return &CoderAgent{
		BaseAgent: newBaseAgent(AgentTypeCoder, "Coder", "write and explain code", llm, mem),
	}
}

func (a *CoderAgent) Process(ctx context.Context, query string, speech bool) (*Answer, error) {
	a.mem.Push(ctx, memory.RoleUser, query)
	answer, reasoning, err := a.llmRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &Answer{
		Content:   answer,
		Reasoning: reasoning,
		Blocks:    ExtractCodeBlocks(answer),
	}, nil
}

var codeBlockPattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")

// ExtractCodeBlocks pulls the fenced blocks out of an answer, keeping their
// order and language tags.
func ExtractCodeBlocks(answer string) []CodeBlock {
	var blocks []CodeBlock
	for _, m := range codeBlockPattern.FindAllStringSubmatch(answer, -1) {
		code := strings.TrimRight(m[2], "\n")
		if code == "" {
			continue
		}
		blocks = append(blocks, CodeBlock{
			Language: strings.ToLower(m[1]),
			Code:     code,
		})
	}
	return blocks
}
