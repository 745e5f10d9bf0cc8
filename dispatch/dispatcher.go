// Package dispatch executes a logical request against the server pool,
// trying servers in randomized order until one yields an acceptable response
// or all are exhausted.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/morphlane/relaychat/convstore"
	"github.com/morphlane/relaychat/llm"
	"github.com/morphlane/relaychat/serverpool"
	"github.com/morphlane/relaychat/textfix"
)

// DefaultSentinels are responses some proxy servers return with HTTP 200
// instead of a proper error status. They count as that server's failure.
var DefaultSentinels = []string{
	"Rate limit exceeded",
	"You exceeded your current quota, please check your plan and billing details.",
}

// Request is one logical chat dispatch: the system role text, prior turns,
// the new user text and the generation parameters.
type Request struct {
	Capability   serverpool.Capability
	SystemPrompt string
	Turns        []convstore.Turn
	NewText      string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// Outcome is the transient result of one Execute call. Never persisted.
type Outcome struct {
	Succeeded bool
	Text      string
	Server    *serverpool.Descriptor
	Exhausted bool
	// Failures counts servers that were tried and failed, whatever the
	// reason. Tests assert on it instead of scraping logs.
	Failures int
}

type Config struct {
	Pool   *serverpool.Pool
	Logger *slog.Logger
	// Sentinels defaults to DefaultSentinels when nil.
	Sentinels []string
	// Fixer optionally scrubs corruption markers from chat responses.
	Fixer *textfix.Fixer
	// ClientFactory builds a driver for a descriptor. Defaults to the
	// openai/gemini drivers; tests inject fakes here.
	ClientFactory func(serverpool.Descriptor) llm.Client
}

type Dispatcher struct {
	pool      *serverpool.Pool
	logger    *slog.Logger
	sentinels []string
	fixer     *textfix.Fixer
	factory   func(serverpool.Descriptor) llm.Client

	mu      sync.Mutex
	clients map[string]llm.Client
}

func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sentinels := cfg.Sentinels
	if sentinels == nil {
		sentinels = DefaultSentinels
	}
	factory := cfg.ClientFactory
	if factory == nil {
		factory = defaultClientFactory
	}
	return &Dispatcher{
		pool:      cfg.Pool,
		logger:    logger,
		sentinels: sentinels,
		fixer:     cfg.Fixer,
		factory:   factory,
		clients:   make(map[string]llm.Client),
	}
}

// Execute tries every capable server in a fresh random order and returns the
// first acceptable response. It never returns an error: per-server failures
// are logged and swallowed, because a missing provider should downgrade the
// answer, not crash the calling flow. No failover state is kept between
// calls; each call re-shuffles and re-tries everything.
func (d *Dispatcher) Execute(ctx context.Context, req Request) Outcome {
	capability := req.Capability
	if capability == "" {
		capability = serverpool.CapabilityChat
	}

	candidates := d.ShuffledCapable(capability)
	if len(candidates) == 0 {
		d.logger.Warn("dispatch_no_capable_servers", "capability", string(capability))
		return Outcome{Exhausted: true}
	}

	requestID := uuid.NewString()
	messages := buildMessages(req)
	outcome := Outcome{}

	for _, server := range candidates {
		server := server
		res, err := d.clientFor(server).Chat(ctx, llm.Request{
			Model:       req.Model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Timeout:     req.Timeout,
		})
		if err != nil {
			outcome.Failures++
			d.logger.Warn("dispatch_server_failed",
				"request_id", requestID,
				"server", server.Label(),
				"error", err.Error())
			continue
		}
		text := res.Text
		if strings.TrimSpace(text) == "" || d.isSentinel(text) {
			outcome.Failures++
			d.logger.Warn("dispatch_server_empty",
				"request_id", requestID,
				"server", server.Label())
			continue
		}
		if d.fixer != nil {
			text = d.fixer.Fix(text)
		}
		outcome.Succeeded = true
		outcome.Text = text
		outcome.Server = &server
		return outcome
	}

	d.logger.Info("dispatch_exhausted",
		"request_id", requestID,
		"capability", string(capability),
		"failures", outcome.Failures)
	outcome.Exhausted = true
	return outcome
}

func (d *Dispatcher) isSentinel(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, s := range d.sentinels {
		if trimmed == s {
			return true
		}
	}
	return false
}

func buildMessages(req Request) []llm.Message {
	messages := make([]llm.Message, 0, len(req.Turns)+2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	for _, t := range req.Turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: req.NewText})
}

func (d *Dispatcher) clientFor(server serverpool.Descriptor) llm.Client {
	// Key on the full identity. Pool entries may share an endpoint and
	// differ only in credential (key rotation); each needs its own client.
	key := server.Name + "|" + server.Driver + "|" + server.Endpoint + "|" + server.Model + "|" + server.APIKey
	d.mu.Lock()
	defer d.mu.Unlock()
	if client, ok := d.clients[key]; ok {
		return client
	}
	client := d.factory(server)
	d.clients[key] = client
	return client
}
