// Package session ties one conversation together: the agents, their
// router, the provider and the owned browser, keyed by a conversation id.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/asklly/asklly/agents"
	"github.com/asklly/asklly/browser"
	"github.com/asklly/asklly/memory"
	"github.com/asklly/asklly/metrics"
	"github.com/asklly/asklly/router"
	"github.com/asklly/asklly/speech"
	"github.com/asklly/asklly/store"
)

// retrievalProcessor is the extended dispatch of the knowledge base agent.
type retrievalProcessor interface {
	ProcessRetrieval(ctx context.Context, query, botKey string, db *store.Store) (*agents.Answer, error)
}

// InteractionConfig bundles the collaborators of one session.
type InteractionConfig struct {
	CID    string
	Agents []agents.Agent
	Router *router.Router
	// Browser is the session-owned instance, closed with the session.
	Browser     browser.Driver
	Speaker     speech.Speaker
	Transcriber speech.Transcriber
	Store       *store.Store
	Metrics     *metrics.Exporter
	// BotKey scopes retrieval queries to one registered bot.
	BotKey string
	Speak  bool
	Listen bool
}

// Interaction runs the think loop of a single session. One query is in
// flight at a time; readers can poll the last answer concurrently.
type Interaction struct {
	cid         string
	agentList   []agents.Agent
	agentByType map[agents.AgentType]agents.Agent
	router      *router.Router
	browser     browser.Driver
	speaker     speech.Speaker
	transcriber speech.Transcriber
	db          *store.Store
	metrics     *metrics.Exporter
	speak       bool
	listen      bool

	mu            sync.Mutex
	query         string
	botKey        string
	lastAnswer    string
	lastReasoning string
	lastSources   []string
	currentAgent  agents.Agent
	isGenerating  bool
	claimed       bool
	lastActivity  time.Time
	closed        bool
}

// NewInteraction assembles a session engine. The first agent of the roster
// doubles as the fallback identity for greetings.
func NewInteraction(cfg InteractionConfig) *Interaction {
	i := &Interaction{
		cid:          cfg.CID,
		agentList:    cfg.Agents,
		agentByType:  make(map[agents.AgentType]agents.Agent, len(cfg.Agents)),
		router:       cfg.Router,
		browser:      cfg.Browser,
		speaker:      cfg.Speaker,
		transcriber:  cfg.Transcriber,
		db:           cfg.Store,
		metrics:      cfg.Metrics,
		speak:        cfg.Speak,
		listen:       cfg.Listen,
		botKey:       cfg.BotKey,
		lastActivity: time.Now(),
	}
	if i.speaker == nil {
		i.speaker = speech.NoopSpeaker{}
	}
	if i.transcriber == nil {
		i.transcriber = speech.NoopTranscriber{}
	}
	for _, agent := range cfg.Agents {
		if _, ok := i.agentByType[agent.Type()]; !ok {
			i.agentByType[agent.Type()] = agent
		}
	}
	return i
}

// CID returns the conversation id of this session.
func (i *Interaction) CID() string {
	return i.cid
}

// SetQuery stages the next user query and refreshes activity, keeping the
// session out of the reaper's reach while the turn is pending. Blank input
// stages nothing.
func (i *Interaction) SetQuery(query string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.query = strings.TrimSpace(query)
	i.lastActivity = time.Now()
}

// SetBotKey changes the bot scope for retrieval queries.
func (i *Interaction) SetBotKey(botKey string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.botKey = botKey
	i.lastActivity = time.Now()
}

// TryBeginTurn atomically claims the session for one turn and stages the
// query. It returns false while another turn is claimed or generating, so
// two concurrent callers can never start two generations on one session.
// The claim is released when Think finishes.
func (i *Interaction) TryBeginTurn(query string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.isGenerating || i.claimed {
		return false
	}
	i.claimed = true
	i.query = strings.TrimSpace(query)
	i.lastActivity = time.Now()
	return true
}

func (i *Interaction) releaseTurn() {
	i.mu.Lock()
	i.claimed = false
	i.mu.Unlock()
}

// Query returns the staged query, if any.
func (i *Interaction) Query() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.query
}

// LastAnswer returns the most recent answer text.
func (i *Interaction) LastAnswer() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastAnswer
}

// LastReasoning returns the reasoning trace of the most recent answer.
func (i *Interaction) LastReasoning() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastReasoning
}

// LastSources returns the sources of the most recent answer.
func (i *Interaction) LastSources() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.lastSources))
	copy(out, i.lastSources)
	return out
}

// IsGenerating reports whether a query is currently being processed.
func (i *Interaction) IsGenerating() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.isGenerating
}

// LastActivity returns when the session last processed a query.
func (i *Interaction) LastActivity() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastActivity
}

// AgentTypes lists the roster in registration order.
func (i *Interaction) AgentTypes() []agents.AgentType {
	out := make([]agents.AgentType, 0, len(i.agentList))
	for _, agent := range i.agentList {
		out = append(out, agent.Type())
	}
	return out
}

// BrowserPort returns the debug port of the session browser, zero when the
// session has none.
func (i *Interaction) BrowserPort() int {
	if i.browser == nil {
		return 0
	}
	return i.browser.Port()
}

// CurrentAgentType returns the type of the agent the session last used, or
// empty before the first turn.
func (i *Interaction) CurrentAgentType() agents.AgentType {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.currentAgent == nil {
		return ""
	}
	return i.currentAgent.Type()
}

// Think processes the staged query: route, hand over context on an agent
// switch, dispatch, record the answer. It returns false when there was
// nothing to do and true when an answer was produced.
func (i *Interaction) Think(ctx context.Context, org, uid string) (bool, error) {
	i.mu.Lock()
	query := i.query
	if query == "" {
		i.claimed = false
		i.mu.Unlock()
		return false, nil
	}
	i.claimed = true
	i.lastActivity = time.Now()
	i.mu.Unlock()
	defer i.releaseTurn()

	turn := shortuuid.New()
	logger := slog.With("cid", i.cid, "turn", turn)

	agentType, err := i.router.SelectAgent(ctx, query)
	if err != nil {
		return false, err
	}
	i.metrics.RoutingDecision(string(agentType))

	agent, ok := i.agentByType[agentType]
	if !ok {
		logger.Warn("router picked an agent this session does not have", "agent", agentType)
		return false, nil
	}
	logger.Debug("query routed", "agent", agentType)
	agent.SetOrg(org, uid)

	i.mu.Lock()
	if i.currentAgent != nil && i.currentAgent != agent && i.lastAnswer != "" {
		// Hand the previous answer over so the new agent has the thread.
		agent.Memory().Push(ctx, memory.RoleAssistant, i.lastAnswer)
	}
	i.currentAgent = agent
	i.isGenerating = true
	i.mu.Unlock()

	started := time.Now()
	answer, perr := i.dispatch(ctx, agent, query)

	status := "ok"
	if perr != nil {
		status = "error"
	}
	i.metrics.ObserveQuery(string(agentType), status, time.Since(started).Seconds())

	i.mu.Lock()
	i.isGenerating = false
	i.claimed = false
	i.lastActivity = time.Now()
	if perr == nil && answer != nil {
		i.query = ""
		i.lastAnswer = answer.Content
		i.lastReasoning = answer.Reasoning
		i.lastSources = answer.Sources
	}
	i.mu.Unlock()

	if perr != nil {
		logger.Error("query processing failed", "agent", agentType, "error", perr)
		return false, perr
	}

	if i.speak && answer != nil {
		if err := i.speaker.Speak(ctx, answer.Content); err != nil {
			logger.Warn("failed to speak answer", "error", err)
		}
	}
	return true, nil
}

func (i *Interaction) dispatch(ctx context.Context, agent agents.Agent, query string) (*agents.Answer, error) {
	if agent.Type() == agents.AgentTypeRetrieval {
		if rp, ok := agent.(retrievalProcessor); ok {
			i.mu.Lock()
			botKey := i.botKey
			i.mu.Unlock()
			return rp.ProcessRetrieval(ctx, query, botKey, i.db)
		}
	}
	return agent.Process(ctx, query, i.speak)
}

// Listen blocks on the transcriber and stages what it hears.
func (i *Interaction) Listen(ctx context.Context) error {
	if !i.listen {
		return speech.ErrNotConfigured
	}
	heard, err := i.transcriber.Listen(ctx)
	if err != nil {
		return err
	}
	i.SetQuery(heard)
	return nil
}

// Greet announces the session over the speaker when voice is on.
func (i *Interaction) Greet(ctx context.Context) {
	if !i.speak {
		return
	}
	if err := i.speaker.Speak(ctx, speech.ReadyAnnouncement); err != nil {
		slog.Warn("failed to speak greeting", "cid", i.cid, "error", err)
	}
}

// LoadLastSession restores every agent's stored history except the
// planner's, whose plans are one-shot. Failures are logged per agent and
// do not stop the rest from loading.
func (i *Interaction) LoadLastSession(ctx context.Context) error {
	var firstErr error
	for _, agent := range i.agentList {
		if agent.Type() == agents.AgentTypePlanner {
			continue
		}
		if err := agent.Memory().Load(ctx); err != nil {
			slog.Warn("failed to restore agent memory", "cid", i.cid, "agent", agent.Type(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close tears the session down: browser first, then the voice backends.
// Closing twice is a no-op.
func (i *Interaction) Close(ctx context.Context) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	var firstErr error
	if i.browser != nil {
		if err := i.browser.Close(); err != nil {
			slog.Warn("failed to close session browser", "cid", i.cid, "error", err)
			firstErr = err
		}
	}
	if err := i.speaker.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := i.transcriber.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	slog.Info("session closed", "cid", i.cid)
	return firstErr
}
