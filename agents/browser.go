package agents

import (
	"context"
	"log/slog"

	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/store"
	"github.com/asklly/asklly/tools"
)

// PageReader renders a page and returns its visible text. The session's
// browser driver satisfies it.
type PageReader interface {
	PageText(ctx context.Context, url string) (string, error)
}

// BrowserAgent answers from the live web. Every query runs a search and the
// model answers over the fetched results.
type BrowserAgent struct {
	BaseAgent
	search Searcher
	reader PageReader
}

// NewBrowserAgent creates the web agent. The reader is optional; with one,
// the top search hit is re-read through the real browser so script-heavy
// pages still yield text.
func NewBrowserAgent(search Searcher, reader PageReader, llm LLM, mem *memory.Memory) *BrowserAgent {
	return &BrowserAgent{
		BaseAgent: newBaseAgent(AgentTypeBrowser, "Browser", "search the web and read pages", llm, mem),
		search:    search,
		reader:    reader,
	}
}

func (a *BrowserAgent) Process(ctx context.Context, query string, speech bool) (*Answer, error) {
	feedback, sources := a.runSearch(ctx, query)

	a.mem.PushMessage(ctx, store.ChatMessage{
		Role:    memory.RoleUser,
		Content: query + "\n\n" + feedback,
		Context: feedback,
		Query:   query,
	})

	answer, reasoning, err := a.llmRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &Answer{Content: answer, Reasoning: reasoning, Sources: sources}, nil
}

// runSearch performs the web search and renders the feedback block the
// model answers from. Search failures stay in-band: the model is told the
// search failed instead of the turn erroring out.
func (a *BrowserAgent) runSearch(ctx context.Context, query string) (feedback string, sources []string) {
	if a.search == nil {
		return "Web search failed: no search backend configured", nil
	}
	results, err := a.search.Search(ctx, query)
	if err != nil {
		slog.Warn("web search failed", "error", err)
		return "Web search failed: " + err.Error(), nil
	}

	if a.reader != nil && len(results) > 0 && results[0].Link != "" {
		text, err := a.reader.PageText(ctx, results[0].Link)
		if err != nil {
			slog.Debug("browser page read failed", "url", results[0].Link, "error", err)
		} else if text != "" {
			results[0].Content = text
		}
	}

	return "Web search result:\n" + tools.FormatResults(results), tools.Links(results)
}
