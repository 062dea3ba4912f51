package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAgentInjectsListing(t *testing.T) {
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "notes.txt"), []byte("notes"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, "docs"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "docs", "readme.md"), []byte("# hi"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, ".git"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".git", "config"), []byte("x"), 0o600))

	llm := &fakeLLM{responses: []string{"The notes live in notes.txt."}}
	agent := NewFileAgent(workDir, llm, newAgentMemory(AgentTypeFile, FilePrompt(PersonalityBase, workDir)))

	answer, err := agent.Process(context.Background(), "where are my notes?", false)
	require.NoError(t, err)
	assert.Equal(t, "The notes live in notes.txt.", answer.Content)

	call := llm.lastCall()
	require.Len(t, call, 2)
	assert.Contains(t, call[1].Content, "Workspace files:")
	assert.Contains(t, call[1].Content, "notes.txt")
	assert.Contains(t, call[1].Content, filepath.Join("docs", "readme.md"))
	assert.NotContains(t, call[1].Content, ".git")
}

func TestFileAgentWithoutWorkDir(t *testing.T) {
	llm := &fakeLLM{responses: []string{"No workspace is attached."}}
	agent := NewFileAgent("", llm, newAgentMemory(AgentTypeFile, FilePrompt(PersonalityBase, "")))

	_, err := agent.Process(context.Background(), "list files", false)
	require.NoError(t, err)
	assert.Equal(t, "list files", llm.lastCall()[1].Content)
}
