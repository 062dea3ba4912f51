package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/asklly/asklly/agents"
	"github.com/asklly/asklly/browser"
	"github.com/asklly/asklly/config"
	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/metrics"
	"github.com/asklly/asklly/provider"
	"github.com/asklly/asklly/router"
	"github.com/asklly/asklly/speech"
	"github.com/asklly/asklly/store"
	"github.com/asklly/asklly/summary"
	"github.com/asklly/asklly/tools"
)

// DefaultSessionTimeout is the inactivity window after which the reaper
// closes a session.
const DefaultSessionTimeout = 30 * time.Minute

// BrowserFactory builds the browser a new session owns.
type BrowserFactory func(cfg browser.Config) (browser.Driver, error)

// ManagerConfig carries the shared collaborators of all sessions.
type ManagerConfig struct {
	Config  *config.Config
	Store   *store.Store
	Metrics *metrics.Exporter
	// BraveAPIKey enables web search for the browser agents.
	BraveAPIKey string
	// WorkDir is the workspace the file agents answer about.
	WorkDir string
	// SessionTimeout overrides DefaultSessionTimeout.
	SessionTimeout time.Duration
	// NewBrowser overrides the browser backend.
	NewBrowser  BrowserFactory
	Speaker     speech.Speaker
	Transcriber speech.Transcriber
}

// Manager owns the session registry. Every session gets its own agents,
// memories and browser; the provider configuration, storage and metrics
// are shared.
type Manager struct {
	cfg         *config.Config
	db          *store.Store
	metrics     *metrics.Exporter
	braveAPIKey string
	workDir     string
	timeout     time.Duration
	newBrowser  BrowserFactory
	speaker     speech.Speaker
	transcriber speech.Transcriber

	mu       sync.Mutex
	sessions map[string]*Interaction
	closed   bool

	done   chan struct{}
	reaper sync.WaitGroup
}

// NewManager creates an empty session registry.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		cfg:         cfg.Config,
		db:          cfg.Store,
		metrics:     cfg.Metrics,
		braveAPIKey: cfg.BraveAPIKey,
		workDir:     cfg.WorkDir,
		timeout:     cfg.SessionTimeout,
		newBrowser:  cfg.NewBrowser,
		speaker:     cfg.Speaker,
		transcriber: cfg.Transcriber,
		sessions:    make(map[string]*Interaction),
		done:        make(chan struct{}),
	}
	if m.timeout <= 0 {
		m.timeout = DefaultSessionTimeout
	}
	if m.newBrowser == nil {
		m.newBrowser = func(cfg browser.Config) (browser.Driver, error) {
			return browser.New(cfg)
		}
	}
	return m
}

// CreateSessionOptions adjusts a single session.
type CreateSessionOptions struct {
	// CID pins the conversation id. Empty mints a fresh one.
	CID string
	// BotKey scopes knowledge base lookups for this session.
	BotKey string
}

// CreateSession builds a full session: provider client, browser, the agent
// roster with per-agent memories, and the router. A session whose browser
// cannot start is not created.
func (m *Manager) CreateSession(ctx context.Context, opts CreateSessionOptions) (*Interaction, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("session manager is shut down")
	}
	m.mu.Unlock()

	cid := opts.CID
	if cid == "" {
		cid = uuid.NewString()
	}

	prov, err := provider.New(provider.Config{
		Name:          m.cfg.ProviderName,
		Model:         m.cfg.ProviderModel,
		ServerAddress: m.cfg.ProviderServerAddress,
		IsLocal:       m.cfg.IsLocal,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}

	drv, err := m.newBrowser(browser.Config{
		Headless: m.cfg.Headless(),
		Stealth:  m.cfg.StealthMode,
	})
	if err != nil {
		return nil, fmt.Errorf("start session browser: %w", err)
	}

	personality := agents.ParsePersonality(m.cfg.PersonalityFolder())
	summarizer := summary.NewSummarizer(prov)
	newMemory := func(agentType agents.AgentType, prompt string) *memory.Memory {
		var chatStore memory.ChatStore
		if m.db != nil {
			chatStore = m.db
		}
		return memory.New(memory.Config{
			CID:           cid,
			AgentType:     string(agentType),
			SystemPrompt:  prompt,
			Model:         m.cfg.ProviderModel,
			ModelProvider: m.cfg.ProviderName,
			Store:         chatStore,
			Summarizer:    summarizer,
		})
	}
	searcher := tools.NewBraveClient(m.braveAPIKey)

	roster := []agents.Agent{
		agents.NewCasualAgent(m.cfg.AgentName, prov, newMemory(agents.AgentTypeCasual, agents.CasualPrompt(personality, m.cfg.AgentName))),
		agents.NewCoderAgent(prov, newMemory(agents.AgentTypeCoder, agents.CoderPrompt(personality))),
		agents.NewFileAgent(m.workDir, prov, newMemory(agents.AgentTypeFile, agents.FilePrompt(personality, m.workDir))),
		agents.NewRetrievalAgent(prov, prov, personality, newMemory(agents.AgentTypeRetrieval, agents.RetrievalPrompt(personality))),
		agents.NewBrowserAgent(searcher, drv, prov, newMemory(agents.AgentTypeBrowser, agents.BrowserPrompt(personality))),
		agents.NewPlannerAgent(prov, newMemory(agents.AgentTypePlanner, agents.PlannerPrompt(personality))),
	}
	types := make([]agents.AgentType, 0, len(roster))
	for _, agent := range roster {
		types = append(types, agent.Type())
	}

	rtr, err := router.New(ctx, router.Config{
		Agents:    types,
		Embedder:  prov,
		Languages: m.cfg.Languages,
	})
	if err != nil {
		if cerr := drv.Close(); cerr != nil {
			slog.Warn("failed to close browser after session setup error", "cid", cid, "error", cerr)
		}
		return nil, fmt.Errorf("build agent router: %w", err)
	}

	interaction := NewInteraction(InteractionConfig{
		CID:         cid,
		Agents:      roster,
		Router:      rtr,
		Browser:     drv,
		Speaker:     m.speaker,
		Transcriber: m.transcriber,
		Store:       m.db,
		Metrics:     m.metrics,
		BotKey:      opts.BotKey,
		Speak:       m.cfg.Speak,
		Listen:      m.cfg.Listen,
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if cerr := drv.Close(); cerr != nil {
			slog.Warn("failed to close browser of rejected session", "cid", cid, "error", cerr)
		}
		return nil, fmt.Errorf("session manager is shut down")
	}
	if _, exists := m.sessions[cid]; exists {
		m.mu.Unlock()
		if cerr := drv.Close(); cerr != nil {
			slog.Warn("failed to close browser of duplicate session", "cid", cid, "error", cerr)
		}
		return nil, fmt.Errorf("session %s already exists", cid)
	}
	m.sessions[cid] = interaction
	m.mu.Unlock()

	m.metrics.SessionOpened()
	slog.Info("session created", "cid", cid, "browser_port", drv.Port(), "agents", len(roster))

	if m.cfg.RecoverLastSession {
		if err := interaction.LoadLastSession(ctx); err != nil {
			slog.Warn("failed to recover previous session", "cid", cid, "error", err)
		}
	}
	interaction.Greet(ctx)
	return interaction, nil
}

// GetSession looks a session up by conversation id.
func (m *Manager) GetSession(cid string) (*Interaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[cid]
	return s, ok
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseSession tears one session down. Closing an unknown or already
// closed session is a no-op.
func (m *Manager) CloseSession(ctx context.Context, cid string) error {
	return m.closeSession(ctx, cid, "api")
}

func (m *Manager) closeSession(ctx context.Context, cid, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[cid]
	if ok {
		delete(m.sessions, cid)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	err := s.Close(ctx)
	m.metrics.SessionClosed(reason)
	return err
}

// StartReaper launches the background sweep that closes sessions idle for
// longer than the manager timeout. Stopped by Shutdown.
func (m *Manager) StartReaper(ctx context.Context) {
	m.reaper.Add(1)
	go func() {
		defer m.reaper.Done()
		ticker := time.NewTicker(m.timeout)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.reapInactive(ctx)
			}
		}
	}()
}

func (m *Manager) reapInactive(ctx context.Context) {
	now := time.Now()
	var stale []string
	m.mu.Lock()
	for cid, s := range m.sessions {
		if s.IsGenerating() {
			continue
		}
		if now.Sub(s.LastActivity()) > m.timeout {
			stale = append(stale, cid)
		}
	}
	m.mu.Unlock()

	for _, cid := range stale {
		slog.Info("closing inactive session", "cid", cid, "timeout", m.timeout)
		if err := m.closeSession(ctx, cid, "expired"); err != nil {
			slog.Warn("failed to close inactive session", "cid", cid, "error", err)
		}
	}
}

// Shutdown closes every session concurrently and stops the reaper. Safe to
// call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.reaper.Wait()
		return nil
	}
	m.closed = true
	close(m.done)
	snapshot := m.sessions
	m.sessions = make(map[string]*Interaction)
	m.mu.Unlock()

	var g errgroup.Group
	for cid, s := range snapshot {
		g.Go(func() error {
			if err := s.Close(ctx); err != nil {
				return fmt.Errorf("close session %s: %w", cid, err)
			}
			m.metrics.SessionClosed("shutdown")
			return nil
		})
	}
	err := g.Wait()
	m.reaper.Wait()
	slog.Info("session manager stopped", "sessions_closed", len(snapshot))
	return err
}
