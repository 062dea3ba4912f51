package memory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklly/asklly/store"
)

type fakeChatStore struct {
	mu         sync.Mutex
	docs       map[string]*store.ChatMemory
	upserts    int
	failUpsert bool
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{docs: make(map[string]*store.ChatMemory)}
}

func (f *fakeChatStore) key(cid, agentType string) string {
	return cid + "/" + agentType
}

func (f *fakeChatStore) UpsertChatMemory(ctx context.Context, upsert *store.ChatMemory) (*store.ChatMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return nil, errors.New("db away")
	}
	f.upserts++
	f.docs[f.key(upsert.CID, upsert.AgentType)] = upsert
	return upsert, nil
}

func (f *fakeChatStore) FindChatMemory(ctx context.Context, find *store.FindChatMemory) ([]*store.ChatMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.ChatMemory{}
	for _, doc := range f.docs {
		if find.CID != nil && doc.CID != *find.CID {
			continue
		}
		if find.AgentType != nil && doc.AgentType != *find.AgentType {
			continue
		}
		list = append(list, doc)
	}
	return list, nil
}

func newTestMemory(st ChatStore) *Memory {
	return New(Config{
		CID:          "cid-1",
		AgentType:    "casual",
		SystemPrompt: "You are a helpful assistant.",
		Model:        "gpt-4o",
		Store:        st,
	})
}

func TestPushAppendsInOrder(t *testing.T) {
	m := newTestMemory(nil)
	ctx := context.Background()

	idx1 := m.Push(ctx, RoleUser, "first")
	idx2 := m.Push(ctx, RoleAssistant, "second")
	idx3 := m.Push(ctx, RoleUser, "third")

	assert.Equal(t, 1, idx1)
	assert.Equal(t, 2, idx2)
	assert.Equal(t, 3, idx3)

	msgs := m.Get()
	require.Len(t, msgs, 4)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
	assert.Equal(t, "third", msgs[3].Content)
	for _, msg := range msgs {
		assert.NotEmpty(t, msg.Time)
	}
}

func TestPushPersistsEveryAppend(t *testing.T) {
	st := newFakeChatStore()
	m := newTestMemory(st)
	ctx := context.Background()

	m.Push(ctx, RoleUser, "hello")
	m.Push(ctx, RoleAssistant, "hi there")

	assert.Equal(t, 2, st.upserts)
	doc := st.docs[st.key("cid-1", "casual")]
	require.NotNil(t, doc)
	assert.Len(t, doc.Memory, 3)
}

func TestPushDuplicateStillAppends(t *testing.T) {
	m := newTestMemory(nil)
	ctx := context.Background()

	m.Push(ctx, RoleUser, "same thing")
	m.Push(ctx, RoleUser, "same thing")

	assert.Equal(t, 3, m.Len())
}

func TestDuplicateCheckSeesRawContent(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	m := New(Config{
		CID:          "cid-1",
		AgentType:    "casual",
		SystemPrompt: "prompt",
		Model:        "qwen2.5:7b",
	})
	ctx := context.Background()

	// Two identical oversized pushes compress to the same stored summary,
	// but the duplicate check compares the content as pushed, which never
	// equals the stored summary.
	long := strings.Repeat("x", 10000)
	m.Push(ctx, RoleUser, long)
	m.Push(ctx, RoleUser, long)
	assert.NotContains(t, logs.String(), "duplicate content")

	// Pushing exactly what the previous message stored still warns.
	stored := m.Get()
	m.Push(ctx, RoleUser, stored[2].Content)
	assert.Contains(t, logs.String(), "duplicate content")
}

func TestPersistFailureKeepsHistory(t *testing.T) {
	st := newFakeChatStore()
	st.failUpsert = true
	m := newTestMemory(st)

	idx := m.Push(context.Background(), RoleUser, "still here")

	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, m.Len())
}

func TestClearKeepsSystemPrompt(t *testing.T) {
	m := newTestMemory(nil)
	ctx := context.Background()

	m.Push(ctx, RoleUser, "one")
	m.Push(ctx, RoleAssistant, "two")
	m.Clear(ctx)

	msgs := m.Get()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "You are a helpful assistant.", msgs[0].Content)
}

func TestClearSection(t *testing.T) {
	seed := func() *Memory {
		m := newTestMemory(nil)
		ctx := context.Background()
		for _, content := range []string{"u1", "a1", "u2", "a2", "u3", "a3"} {
			m.Push(ctx, RoleUser, content)
		}
		return m
	}

	tests := []struct {
		name      string
		start     int
		end       int
		remaining []string
	}{
		{"middle range", 1, 2, []string{"u1", "a2", "u3", "a3"}},
		{"first message", 0, 0, []string{"a1", "u2", "a2", "u3", "a3"}},
		{"clamped both ends", -5, 100, []string{}},
		{"inverted range is a no-op", 3, 1, []string{"u1", "a1", "u2", "a2", "u3", "a3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seed()
			m.ClearSection(context.Background(), tt.start, tt.end)

			msgs := m.Get()
			require.Equal(t, RoleSystem, msgs[0].Role)
			got := []string{}
			for _, msg := range msgs[1:] {
				got = append(got, msg.Content)
			}
			assert.Equal(t, tt.remaining, got)
		})
	}
}

func TestLoadDropsTrailingUserMessage(t *testing.T) {
	st := newFakeChatStore()
	st.docs[st.key("cid-1", "casual")] = &store.ChatMemory{
		CID:       "cid-1",
		AgentType: "casual",
		Memory: []store.ChatMessage{
			{Role: RoleSystem, Content: "prompt"},
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, Content: "answer"},
			{Role: RoleUser, Content: "never answered"},
		},
		ModelProvider: "ollama",
	}
	m := newTestMemory(st)

	require.NoError(t, m.Load(context.Background()))

	msgs := m.Get()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
}

func TestLoadMissingDocumentLeavesHistory(t *testing.T) {
	st := newFakeChatStore()
	m := newTestMemory(st)
	m.Push(context.Background(), RoleUser, "live turn")

	require.NoError(t, m.Load(context.Background()))

	assert.Equal(t, 2, m.Len())
}

func TestCompressRewritesLongMessages(t *testing.T) {
	m := newTestMemory(nil)
	ctx := context.Background()

	long := strings.Repeat("All work and no play makes for a dull day. ", 60)
	m.Push(ctx, RoleUser, "short question")
	m.Push(ctx, RoleAssistant, long)

	m.Compress(ctx)

	msgs := m.Get()
	assert.Equal(t, "You are a helpful assistant.", msgs[0].Content)
	assert.Equal(t, "short question", msgs[1].Content)
	assert.Less(t, len(msgs[2].Content), len(long))
}

func TestPushCompressesOversizedContent(t *testing.T) {
	st := newFakeChatStore()
	m := New(Config{
		CID:          "cid-1",
		AgentType:    "casual",
		SystemPrompt: "prompt",
		Model:        "qwen2.5:7b",
		Store:        st,
	})

	long := strings.Repeat("x", 10000)
	m.Push(context.Background(), RoleUser, long)

	msgs := m.Get()
	require.Len(t, msgs, 2)
	assert.LessOrEqual(t, len(msgs[1].Content), 4096)
}

func TestIdealContext(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"qwen2.5:7b", 4096},
		{"llama2:13b", 8192},
		{"deepseek-r1:14b", 8192},
		{"qwen2.5:32b", 32768},
		{"llama3.3:70b", 131072},
		{"mixtral:8x7b", 4096},
		{"gpt-4o", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, IdealContext(tt.model))
		})
	}
}
