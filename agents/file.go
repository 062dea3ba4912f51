package agents

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/store"
)

// listingLimit caps how many workspace entries get injected into a request.
const listingLimit = 200

// FileAgent answers questions about the files of a workspace directory. It
// is read-only: the model sees a listing, never a write path.
type FileAgent struct {
	BaseAgent
	workDir string
}

func NewFileAgent(workDir string, llm LLM, mem *memory.Memory) *FileAgent {
	return &FileAgent{
		BaseAgent: newBaseAgent(AgentTypeFile, "File", "find and describe files", llm, mem),
		workDir:   workDir,
	}
}

func (a *FileAgent) Process(ctx context.Context, query string, speech bool) (*Answer, error) {
	listing := a.listWorkspace()
	content := query
	if listing != "" {
		content = query + "\n\nWorkspace files:\n" + listing
	}
	a.mem.PushMessage(ctx, store.ChatMessage{
		Role:    memory.RoleUser,
		Content: content,
		Context: listing,
		Query:   query,
	})

	answer, reasoning, err := a.llmRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &Answer{Content: answer, Reasoning: reasoning}, nil
}

// listWorkspace walks the workspace and returns one relative path per line.
// Hidden directories are skipped and the listing is capped, so a large tree
// degrades instead of flooding the context.
func (a *FileAgent) listWorkspace() string {
	if a.workDir == "" {
		return ""
	}
	var paths []string
	err := filepath.WalkDir(a.workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != a.workDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(a.workDir, path)
		if relErr != nil {
			return nil
		}
		paths = append(paths, rel)
		if len(paths) >= listingLimit {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		slog.Warn("workspace listing failed", "dir", a.workDir, "error", err)
		return ""
	}
	return strings.Join(paths, "\n")
}
