// Package router decides which agent of a session answers a query. The
// decision pipeline is language detection, embedding similarity against a
// labeled example bank, then keyword matching, with the casual agent as the
// final fallback. Selection never mutates any state, so the same query
// against the same bank always routes the same way.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/asklly/asklly/agents"
)

// similarityThreshold is the minimum cosine score an embedding match needs
// before it outranks the keyword stage.
const similarityThreshold = 0.55

// warmupConcurrency bounds parallel example embedding at construction.
const warmupConcurrency = 4

// Embedder produces embedding vectors. *provider.Provider satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config describes a router.
type Config struct {
	// Agents lists the selectable types in precedence order. Ties go to
	// the earlier entry. Empty defaults to the session roster.
	Agents []agents.AgentType
	// Embedder enables the similarity stage. Nil routes by keywords only.
	Embedder Embedder
	// Languages are the ISO codes the detector considers.
	Languages []string
	// Examples overrides the built-in routing bank.
	Examples []Example
}

type bankEntry struct {
	agent agents.AgentType
	lang  string
	text  string
	vec   []float32
}

// Router routes queries to agent types. Immutable after New.
type Router struct {
	agents   []agents.AgentType
	embedder Embedder
	detector *LanguageDetector
	bank     []bankEntry
}

// New builds a router and embeds its example bank. With an embedder this
// performs network calls, so construction takes a context.
func New(ctx context.Context, cfg Config) (*Router, error) {
	selectable := cfg.Agents
	if len(selectable) == 0 {
		selectable = []agents.AgentType{
			agents.AgentTypeCasual,
			agents.AgentTypeCoder,
			agents.AgentTypeFile,
			agents.AgentTypeRetrieval,
			agents.AgentTypeBrowser,
			agents.AgentTypePlanner,
		}
	}

	examples := cfg.Examples
	if examples == nil {
		examples = defaultExamples()
	}

	r := &Router{
		agents:   selectable,
		embedder: cfg.Embedder,
		detector: NewLanguageDetector(cfg.Languages),
	}
	for _, example := range examples {
		if !r.selectable(example.Agent) {
			continue
		}
		r.bank = append(r.bank, bankEntry{
			agent: example.Agent,
			lang:  example.Lang,
			text:  example.Text,
		})
	}

	if err := r.embedBank(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) embedBank(ctx context.Context) error {
	if r.embedder == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for i := range r.bank {
		entry := &r.bank[i]
		g.Go(func() error {
			vec, err := r.embedder.Embed(ctx, entry.text)
			if err != nil {
				return fmt.Errorf("embed routing example %q: %w", entry.text, err)
			}
			entry.vec = vec
			return nil
		})
	}
	return g.Wait()
}

func (r *Router) selectable(t agents.AgentType) bool {
	for _, a := range r.agents {
		if a == t {
			return true
		}
	}
	return false
}

// SelectAgent returns the agent type that should answer the query.
func (r *Router) SelectAgent(ctx context.Context, query string) (agents.AgentType, error) {
	lang := r.detector.Detect(query)

	if r.embedder != nil {
		agent, score, err := r.bySimilarity(ctx, query, lang)
		if err != nil {
			slog.Warn("similarity routing failed, falling back to keywords", "error", err)
		} else if score >= similarityThreshold {
			slog.Debug("routed by similarity", "agent", agent, "lang", lang, "score", score)
			return agent, nil
		}
	}

	if agent, ok := r.byKeywords(query); ok {
		slog.Debug("routed by keywords", "agent", agent, "lang", lang)
		return agent, nil
	}

	return agents.AgentTypeCasual, nil
}

// bySimilarity scores the query against the bank and returns the best
// agent. Entries of the detected language are preferred; an agent with no
// examples in that language competes with all of its examples.
func (r *Router) bySimilarity(ctx context.Context, query, lang string) (agents.AgentType, float64, error) {
	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return agents.AgentTypeCasual, 0, err
	}

	scores := map[agents.AgentType]float64{}
	inLang := map[agents.AgentType]bool{}
	for _, entry := range r.bank {
		if entry.vec == nil {
			continue
		}
		sameLang := entry.lang == lang
		if inLang[entry.agent] && !sameLang {
			continue
		}
		score := cosineSimilarity(qvec, entry.vec)
		if sameLang && !inLang[entry.agent] {
			inLang[entry.agent] = true
			scores[entry.agent] = score
			continue
		}
		if score > scores[entry.agent] {
			scores[entry.agent] = score
		}
	}

	best, bestScore := agents.AgentTypeCasual, 0.0
	for _, agent := range r.agents {
		if score, ok := scores[agent]; ok && score > bestScore {
			best, bestScore = agent, score
		}
	}
	return best, bestScore, nil
}

// byKeywords counts keyword hits per agent. Precedence order breaks ties.
func (r *Router) byKeywords(query string) (agents.AgentType, bool) {
	lowered := strings.ToLower(query)

	best, bestHits := agents.AgentTypeCasual, 0
	for _, agent := range r.agents {
		hits := 0
		for _, keyword := range routeKeywords[agent] {
			if strings.Contains(lowered, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = agent, hits
		}
	}
	return best, bestHits > 0
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
