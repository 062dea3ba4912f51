package router

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklly/asklly/agents"
)

// mapEmbedder returns canned vectors by exact text and errors on anything
// unknown.
type mapEmbedder struct {
	vectors map[string][]float32
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, ok := m.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func newKeywordRouter(t *testing.T, selectable ...agents.AgentType) *Router {
	t.Helper()
	r, err := New(context.Background(), Config{
		Agents:    selectable,
		Languages: []string{"en", "fr", "zh"},
	})
	require.NoError(t, err)
	return r
}

func TestSelectAgentByKeywords(t *testing.T) {
	r := newKeywordRouter(t)

	tests := []struct {
		query string
		want  agents.AgentType
	}{
		{"Can you write a python script for me", agents.AgentTypeCoder},
		{"search online for the latest news", agents.AgentTypeBrowser},
		{"where is the file I saved yesterday", agents.AgentTypeFile},
		{"help me plan the steps for the move", agents.AgentTypePlanner},
		{"what does the documentation say about refunds", agents.AgentTypeRetrieval},
		{"hello there, how was your day", agents.AgentTypeCasual},
		{"写一个脚本来整理我的照片", agents.AgentTypeCoder},
		{"上网搜索一下明天的天气", agents.AgentTypeBrowser},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := r.SelectAgent(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectAgentIncludesFileWhenConfigured(t *testing.T) {
	r := newKeywordRouter(t,
		agents.AgentTypeCasual,
		agents.AgentTypeFile,
	)
	got, err := r.SelectAgent(context.Background(), "find the file named report.pdf")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentTypeFile, got)
}

func TestSelectAgentTieGoesToPrecedence(t *testing.T) {
	r := newKeywordRouter(t)

	// One coder hit and one planner hit; coder registers earlier.
	got, err := r.SelectAgent(context.Background(), "plan the code")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentTypeCoder, got)
}

func TestSelectAgentIgnoresUnconfiguredAgents(t *testing.T) {
	r := newKeywordRouter(t, agents.AgentTypeCasual, agents.AgentTypeCoder)

	got, err := r.SelectAgent(context.Background(), "search online for the latest news")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentTypeCasual, got)
}

func TestSelectAgentIsDeterministic(t *testing.T) {
	r := newKeywordRouter(t)

	first, err := r.SelectAgent(context.Background(), "search the web for ai news")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := r.SelectAgent(context.Background(), "search the web for ai news")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestSelectAgentBySimilarity(t *testing.T) {
	query := "tell me about recent events happening around"
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"look things up on the web": {1, 0},
		"produce some source code":  {0, 1},
		query:                       {0.9, 0.1},
	}}
	r, err := New(context.Background(), Config{
		Agents:    []agents.AgentType{agents.AgentTypeCasual, agents.AgentTypeCoder, agents.AgentTypeBrowser},
		Embedder:  embedder,
		Languages: []string{"en"},
		Examples: []Example{
			{agents.AgentTypeBrowser, "en", "look things up on the web"},
			{agents.AgentTypeCoder, "en", "produce some source code"},
		},
	})
	require.NoError(t, err)

	got, err := r.SelectAgent(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, agents.AgentTypeBrowser, got)
}

func TestSelectAgentFallsBackWhenEmbeddingFails(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"look things up on the web": {1, 0},
	}}
	r, err := New(context.Background(), Config{
		Agents:    []agents.AgentType{agents.AgentTypeCasual, agents.AgentTypeBrowser},
		Embedder:  embedder,
		Languages: []string{"en"},
		Examples: []Example{
			{agents.AgentTypeBrowser, "en", "look things up on the web"},
		},
	})
	require.NoError(t, err)

	// The query has no canned vector, so the similarity stage errors and
	// the keyword stage decides.
	got, err := r.SelectAgent(context.Background(), "search online for the latest news")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentTypeBrowser, got)
}

func TestNewFailsWhenBankCannotEmbed(t *testing.T) {
	_, err := New(context.Background(), Config{
		Agents:    []agents.AgentType{agents.AgentTypeCasual, agents.AgentTypeBrowser},
		Embedder:  &mapEmbedder{},
		Languages: []string{"en"},
		Examples: []Example{
			{agents.AgentTypeBrowser, "en", "look things up on the web"},
		},
	})
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	detector := NewLanguageDetector([]string{"en", "fr", "zh"})

	tests := []struct {
		text string
		want string
	}{
		{"Hello, how is it going today?", "en"},
		{"Bonjour, comment ça va aujourd'hui ?", "fr"},
		{"你好，今天天气怎么样？", "zh"},
		{"", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.Detect(tt.text))
		})
	}
}

func TestDetectLanguagePrimaryFallback(t *testing.T) {
	detector := NewLanguageDetector([]string{"zh", "en"})
	assert.Equal(t, "zh", detector.Primary())
	assert.Equal(t, "zh", detector.Detect("   "))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
