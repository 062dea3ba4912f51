// Package memory maintains the conversation history of a single agent and
// mirrors it into the store as one document per (session, agent) pair.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asklly/asklly/store"
	"github.com/asklly/asklly/summary"
)

// Message roles. The wire values match what chat completion APIs expect.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// timeLayout is the stamp recorded on every message.
const timeLayout = "2006-01-02 15:04:05"

// compressThreshold is the per-message size above which Compress rewrites
// history entries through the summarizer.
const compressThreshold = 1024

// ChatStore is the slice of the store the memory needs. *store.Store
// satisfies it.
type ChatStore interface {
	UpsertChatMemory(ctx context.Context, upsert *store.ChatMemory) (*store.ChatMemory, error)
	FindChatMemory(ctx context.Context, find *store.FindChatMemory) ([]*store.ChatMemory, error)
}

// Config bundles what a Memory needs at construction time.
type Config struct {
	// CID is the owning session id. Minted when empty.
	CID       string
	AgentType string
	// SystemPrompt seeds index 0 and survives Clear.
	SystemPrompt string
	// Model is the model identifier, used to derive the context budget.
	Model string
	// ModelProvider is recorded on the persisted document.
	ModelProvider string
	// Store persists the document. Nil keeps the memory ephemeral.
	Store ChatStore
	// Summarizer compresses oversized content. A fallback-only chain is
	// used when nil.
	Summarizer summary.Summarizer
}

// Memory holds the ordered message history of one agent. All operations are
// safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	cid           string
	agentType     string
	model         string
	modelProvider string
	messages      []store.ChatMessage

	store      ChatStore
	summarizer summary.Summarizer
}

// New creates a Memory seeded with the system prompt.
func New(cfg Config) *Memory {
	cid := cfg.CID
	if cid == "" {
		cid = uuid.NewString()
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = summary.NewSummarizer(nil)
	}
	m := &Memory{
		cid:           cid,
		agentType:     cfg.AgentType,
		model:         cfg.Model,
		modelProvider: cfg.ModelProvider,
		store:         cfg.Store,
		summarizer:    summarizer,
	}
	m.messages = []store.ChatMessage{m.stamp(store.ChatMessage{
		Role:    RoleSystem,
		Content: cfg.SystemPrompt,
	})}
	return m
}

// CID returns the owning session id.
func (m *Memory) CID() string {
	return m.cid
}

// Push appends a plain message and returns its index.
func (m *Memory) Push(ctx context.Context, role, content string) int {
	return m.PushMessage(ctx, store.ChatMessage{Role: role, Content: content})
}

// PushMessage appends a message, compressing oversized content down to the
// model's context budget first. The document is persisted after every
// append; persistence failures are logged and do not lose the in-process
// history.
func (m *Memory) PushMessage(ctx context.Context, msg store.ChatMessage) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The duplicate check sees the content as pushed, before compression
	// rewrites it.
	if last := len(m.messages) - 1; last >= 0 && m.messages[last].Content == msg.Content {
		slog.Warn("duplicate content pushed to memory", "cid", m.cid, "agent", m.agentType)
	}
	if ideal := IdealContext(m.model); ideal > 0 && len(msg.Content) > ideal*3/2 {
		msg.Content = m.compressText(ctx, msg.Content, ideal)
	}

	m.messages = append(m.messages, m.stamp(msg))
	m.persist(ctx)
	return len(m.messages) - 1
}

// Get returns a copy of the message history.
func (m *Memory) Get() []store.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of messages, system prompt included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clear drops everything except the system prompt.
func (m *Memory) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = m.messages[:1]
	m.persist(ctx)
}

// ClearSection removes the inclusive range [start, end] counted over
// non-system messages. Out-of-range bounds clamp; an empty range after
// clamping is a no-op.
func (m *Memory) ClearSection(ctx context.Context, start, end int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lo := max(0, start) + 1
	hi := min(end+2, len(m.messages))
	if lo >= hi {
		return
	}
	m.messages = append(m.messages[:lo], m.messages[hi:]...)
	m.persist(ctx)
}

// Reset replaces the history with a fresh system prompt.
func (m *Memory) Reset(ctx context.Context, systemPrompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = []store.ChatMessage{m.stamp(store.ChatMessage{
		Role:    RoleSystem,
		Content: systemPrompt,
	})}
	m.persist(ctx)
}

// Compress rewrites oversized non-system messages through the summarizer.
func (m *Memory) Compress(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compressLocked(ctx)
}

func (m *Memory) compressLocked(ctx context.Context) {
	for i := range m.messages {
		if m.messages[i].Role == RoleSystem {
			continue
		}
		if len(m.messages[i].Content) > compressThreshold {
			m.messages[i].Content = m.summarize(ctx, m.messages[i].Content)
		}
	}
}

// Save persists the current document.
func (m *Memory) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx)
}

func (m *Memory) saveLocked(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	memory := make([]store.ChatMessage, len(m.messages))
	copy(memory, m.messages)
	_, err := m.store.UpsertChatMemory(ctx, &store.ChatMemory{
		CID:           m.cid,
		AgentType:     m.agentType,
		Memory:        memory,
		ModelProvider: m.modelProvider,
	})
	return err
}

// persist is saveLocked with the failure demoted to a log line. A session
// must keep answering even when the database is briefly away.
func (m *Memory) persist(ctx context.Context) {
	if err := m.saveLocked(ctx); err != nil {
		slog.Error("failed to persist memory", "cid", m.cid, "agent", m.agentType, "error", err)
	}
}

// Load replaces the history with the stored document for this (cid, agent)
// pair. A trailing user message is dropped, since its answer was never
// produced, and the restored history is compressed. Loading with no stored
// document leaves the memory unchanged.
func (m *Memory) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.store.FindChatMemory(ctx, &store.FindChatMemory{
		CID:       &m.cid,
		AgentType: &m.agentType,
	})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}

	doc := list[0]
	m.messages = doc.Memory
	if doc.ModelProvider != "" {
		m.modelProvider = doc.ModelProvider
	}
	if last := len(m.messages) - 1; last >= 0 && m.messages[last].Role == RoleUser {
		m.messages = m.messages[:last]
	}
	m.compressLocked(ctx)
	return nil
}

func (m *Memory) stamp(msg store.ChatMessage) store.ChatMessage {
	if msg.Time == "" {
		msg.Time = time.Now().Format(timeLayout)
	}
	if msg.ModelUsed == "" {
		msg.ModelUsed = m.model
	}
	return msg
}

func (m *Memory) summarize(ctx context.Context, content string) string {
	resp, err := m.summarizer.Summarize(ctx, &summary.Request{
		Content:   content,
		MinLength: summary.MinLength,
	})
	if err != nil || resp == nil {
		return content
	}
	return resp.Summary
}
