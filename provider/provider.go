// Package provider wraps the text-generation backends behind one client.
// A session owns exactly one Provider; every agent of that session shares it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// RequestExit is the in-band sentinel appended to the interrupt answer.
const RequestExit = "REQUEST_EXIT"

// Message is one entry of a chat history.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Usage carries token accounting for a single completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Config describes one provider backend.
type Config struct {
	Name          string // openai, ollama, test
	Model         string
	ServerAddress string // host:port or full URL of the backend
	IsLocal       bool
}

// unsafeProviders send conversation data to third-party clouds.
var unsafeProviders = []string{"openai", "deepseek", "dsk_deepseek", "together", "google", "openrouter"}

// Provider is a stateless text-generation client over a message history.
type Provider struct {
	name          string
	model         string
	serverAddress string
	isLocal       bool
	apiKey        string
	inDocker      bool
	internalURL   string

	client  *openai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// New builds a Provider for the named backend. Unknown backends and missing
// API keys are configuration errors, fatal to the caller.
func New(cfg Config) (*Provider, error) {
	p := &Provider{
		name:          strings.ToLower(cfg.Name),
		model:         cfg.Model,
		serverAddress: cfg.ServerAddress,
		isLocal:       cfg.IsLocal,
		limiter:       rate.NewLimiter(rate.Limit(2), 4),
		timeout:       120 * time.Second,
	}
	p.internalURL, p.inDocker = dockerInternalURL()

	switch p.name {
	case "openai", "ollama", "test":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Name)
	}

	if p.isUnsafe() && !p.isLocal {
		slog.Warn("using an API provider, conversation data will be sent to the cloud", "provider", p.name)
		key, err := apiKeyFromEnv(p.name)
		if err != nil {
			return nil, err
		}
		p.apiKey = key
	} else if p.name != "ollama" {
		slog.Info("provider initialized", "provider", p.name, "address", p.serverAddress)
	}

	if p.name != "test" {
		clientConfig := openai.DefaultConfig(p.apiKey)
		clientConfig.BaseURL = p.baseURL()
		clientConfig.HTTPClient = newHTTPClient()
		p.client = openai.NewClientWithConfig(clientConfig)
	}

	return p, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string { return p.model }

// Name returns the backend name.
func (p *Provider) Name() string { return p.name }

func (p *Provider) isUnsafe() bool {
	for _, name := range unsafeProviders {
		if p.name == name {
			return true
		}
	}
	return false
}

func (p *Provider) baseURL() string {
	addr := p.serverAddress
	switch p.name {
	case "openai":
		if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
			return addr
		}
		return "https://api.deepinfra.com/v1/openai"
	case "ollama":
		if p.inDocker {
			return strings.TrimRight(p.internalURL, "/") + "/v1"
		}
		if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
			return strings.TrimRight(addr, "/") + "/v1"
		}
		return "http://" + addr + "/v1"
	}
	return addr
}

// Respond generates a completion for the history. Overload, refused
// connections and user interrupts come back as in-band answers; everything
// else is an error.
func (p *Provider) Respond(ctx context.Context, history []Message) (string, error) {
	answer, _, err := p.RespondWithUsage(ctx, history)
	return answer, err
}

// RespondWithUsage is Respond plus token accounting for the call.
func (p *Provider) RespondWithUsage(ctx context.Context, history []Message) (string, Usage, error) {
	slog.Debug("provider request", "provider", p.name, "model", p.model, "messages", len(history))

	if p.name == "test" {
		return testCompletion, Usage{}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return p.normalize(err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: convertMessages(history),
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return p.normalize(err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("provider %s failed: empty response", p.name)
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// normalize maps backend failures onto the in-band answer classes.
func (p *Provider) normalize(err error) (string, Usage, error) {
	if errors.Is(err, context.Canceled) {
		slog.Warn("provider call interrupted by user", "provider", p.name)
		return "Operation interrupted by user. " + RequestExit, Usage{}, nil
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "try again later") {
		return fmt.Sprintf("%s server is overloaded. Please try again later.", p.name), Usage{}, nil
	}
	if strings.Contains(msg, "refused") {
		return fmt.Sprintf("Server %s seem offline. Unable to answer.", p.serverAddress), Usage{}, nil
	}
	return "", Usage{}, fmt.Errorf("provider %s failed: %w", p.name, err)
}

// IsOnline probes the backend address with a TCP dial.
func (p *Provider) IsOnline(timeout time.Duration) bool {
	addr := p.serverAddress
	if addr == "" {
		return false
	}
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "https://"), "http://")
	if idx := strings.Index(addr, "/"); idx >= 0 {
		addr = addr[:idx]
	}
	if !strings.Contains(addr, ":") {
		addr += ":443"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "127.0.0.1" || host == "localhost" {
		return true
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func apiKeyFromEnv(provider string) (string, error) {
	envVar := strings.ToUpper(provider) + "_API_KEY"
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%w: %s not set", ErrMissingAPIKey, envVar)
	}
	return key, nil
}

// dockerInternalURL reads the in-container backend override. Unset means the
// process runs on the host.
func dockerInternalURL() (string, bool) {
	url := os.Getenv("DOCKER_INTERNAL_URL")
	if url == "" {
		return "http://localhost", false
	}
	return url, true
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		switch m.Role {
		case "system":
			out[i] = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content}
		case "assistant":
			out[i] = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		default:
			out[i] = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content}
		}
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt builds a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// testCompletion is the canned answer of the offline test backend: a plan
// envelope exercising the planner parse path without any network.
const testCompletion = "\n\n```json\n{\n  \"plan\": [\n    {\n      \"agent\": \"Web\",\n      \"id\": \"1\",\n      \"need\": null,\n      \"task\": \"Conduct a comprehensive web search to identify at least five AI startups located in Osaka. Use reliable sources and websites such as Crunchbase, TechCrunch, or local Japanese business directories. Capture the company names, their websites, areas of expertise, and any other relevant details.\"\n    },\n    {\n      \"agent\": \"Web\",\n      \"id\": \"2\",\n      \"need\": null,\n      \"task\": \"Perform a similar search to find at least five AI startups in Tokyo. Again, use trusted sources like Crunchbase, TechCrunch, or Japanese business news websites. Gather the same details as for Osaka: company names, websites, areas of focus, and additional information.\"\n    },\n    {\n      \"agent\": \"File\",\n      \"id\": \"3\",\n      \"need\": [\"1\", \"2\"],\n      \"task\": \"Create a new text file named research_japan.txt in the user's home directory. Organize the data collected from both searches into this file, ensuring it is well-structured and formatted for readability. Include headers for Osaka and Tokyo sections, followed by the details of each startup found.\"\n    }\n  ]\n}\n```\n"
