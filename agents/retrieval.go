package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/store"
)

// InvalidBotKeyAnswer is the in-band answer for an unknown bot key.
const InvalidBotKeyAnswer = "Invalid bot key, the knowledge base is unavailable."

// knowledgeChunkLimit is how many chunks a query retrieves.
const knowledgeChunkLimit = 3

// RetrievalAgent answers from an organization's knowledge base. It resolves
// the caller's bot key, searches chunks by embedding similarity and records
// token spend per bot.
type RetrievalAgent struct {
	BaseAgent
	embedder    Embedder
	personality Personality
}

func NewRetrievalAgent(llm LLM, embedder Embedder, personality Personality, mem *memory.Memory) *RetrievalAgent {
	return &RetrievalAgent{
		BaseAgent:   newBaseAgent(AgentTypeRetrieval, "Retrieval", "answer from the knowledge base", llm, mem),
		embedder:    embedder,
		personality: personality,
	}
}

// Process without a store degrades to plain conversation. The session
// dispatches knowledge queries through ProcessRetrieval instead.
func (a *RetrievalAgent) Process(ctx context.Context, query string, speech bool) (*Answer, error) {
	a.mem.Push(ctx, memory.RoleUser, query)
	answer, reasoning, err := a.llmRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &Answer{Content: answer, Reasoning: reasoning}, nil
}

// ProcessRetrieval answers a query against the knowledge base the bot key
// grants access to.
func (a *RetrievalAgent) ProcessRetrieval(ctx context.Context, query, botKey string, db *store.Store) (*Answer, error) {
	if db == nil {
		return a.Process(ctx, query, false)
	}

	bot, err := db.GetBotByAPIKey(ctx, botKey)
	if err != nil {
		return nil, fmt.Errorf("bot lookup failed: %w", err)
	}
	if bot == nil {
		slog.Warn("retrieval with unknown bot key", "bot_key", botKey)
		return &Answer{Content: InvalidBotKeyAnswer}, nil
	}

	embedding, embedUsage, err := a.embedder.EmbedWithUsage(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	chunks, err := db.SearchKnowledgeChunks(ctx, &store.SearchKnowledgeChunks{
		Embedding:    embedding,
		Organization: bot.Organization,
		Limit:        knowledgeChunkLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}

	kbContext, sources := renderChunks(chunks)
	content := "Knowledge base excerpts:\n" + kbContext + "\n\nQuestion: " + query
	if bot.Prompt != "" {
		content = "Instructions from the bot owner:\n" + bot.Prompt + "\n\n" + content
	}
	a.mem.PushMessage(ctx, store.ChatMessage{
		Role:    memory.RoleUser,
		Content: content,
		Context: kbContext,
		Query:   query,
	})

	answer, reasoning, usage, err := a.llmRequestWithUsage(ctx)
	if err != nil {
		return nil, err
	}

	a.recordUsage(ctx, db, bot, botKey, usage.TotalTokens, embedUsage.TotalTokens)

	return &Answer{Content: answer, Reasoning: reasoning, Sources: sources}, nil
}

// recordUsage accumulates the bot's token spend. Accounting must never fail
// a turn, so errors only log.
func (a *RetrievalAgent) recordUsage(ctx context.Context, db *store.Store, bot *store.Bot, botKey string, chatTokens, embedTokens int) {
	err := db.AddTokenUsage(ctx, &store.TokenUsage{
		Organization: bot.Organization,
		UsageType:    "chat",
		BotKey:       botKey,
		ChatTokens:   int64(chatTokens),
		EmbedTokens:  int64(embedTokens),
		APICalls:     1,
	})
	if err != nil {
		slog.Warn("failed to record token usage", "bot_key", botKey, "error", err)
	}
}

func renderChunks(chunks []*store.KnowledgeChunk) (kbContext string, sources []string) {
	if len(chunks) == 0 {
		return "(no matching excerpts)", nil
	}
	blocks := make([]string, 0, len(chunks))
	seen := map[string]bool{}
	for _, chunk := range chunks {
		blocks = append(blocks, "File: "+chunk.FileName+"\n"+chunk.Content)
		if !seen[chunk.FileName] {
			seen[chunk.FileName] = true
			sources = append(sources, chunk.FileName)
		}
	}
	return strings.Join(blocks, "\n\n"), sources
}
