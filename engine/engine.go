// Package engine ties the server pool, dispatcher, history store and chat
// locks together into the send/undo/reset surface the transports call.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/morphlane/relaychat/chatlock"
	"github.com/morphlane/relaychat/convstore"
	"github.com/morphlane/relaychat/dispatch"
)

const (
	// TemperatureUnset tells Send to use the configured default.
	TemperatureUnset = -1

	maxTemperature       = 2
	defaultMaxConcurrent = 24
)

var (
	ErrEmptyChatID = convstore.ErrEmptyChatID
	ErrEmptyText   = fmt.Errorf("engine: empty message text")
)

// Dispatcher is the slice of dispatch.Dispatcher the engine needs. Tests
// substitute a scripted implementation.
type Dispatcher interface {
	Execute(ctx context.Context, req dispatch.Request) dispatch.Outcome
}

type Config struct {
	SystemPrompt string
	// Temperature is the default when a caller passes TemperatureUnset.
	// A low value keeps answers reproducible across failover retries.
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// MaxConcurrent caps in-flight dispatches across all chats.
	MaxConcurrent int64
}

type Engine struct {
	dispatcher Dispatcher
	store      convstore.Store
	locks      *chatlock.Registry
	sem        *semaphore.Weighted
	cfg        Config
	logger     *slog.Logger
}

func New(dispatcher Dispatcher, store convstore.Store, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		dispatcher: dispatcher,
		store:      store,
		locks:      chatlock.NewRegistry(),
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		cfg:        cfg,
		logger:     logger,
	}
}

// Send runs one full read-dispatch-write cycle for a chat and returns the
// assistant text, or an empty string when every server failed. Only caller
// misuse is reported as an error; provider unavailability is an expected
// condition and never one.
//
// Concurrent sends for the same chat serialize on the chat lock, so within
// one chat pairs land in lock-acquisition order. Sends for different chats
// only contend on the global semaphore.
func (e *Engine) Send(ctx context.Context, chatID, text string, temperature float64) (string, error) {
	if chatID == "" {
		return "", ErrEmptyChatID
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if temperature == TemperatureUnset {
		temperature = e.cfg.Temperature
	}
	if temperature < 0 || temperature > maxTemperature {
		return "", fmt.Errorf("engine: temperature %v out of range [0, %d]", temperature, maxTemperature)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("engine: acquire dispatch slot: %w", err)
	}
	defer e.sem.Release(1)

	lock := e.locks.AcquireFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	turns, err := e.store.Read(chatID)
	if err != nil {
		e.logger.Warn("engine_history_read_failed", "chat_id", chatID, "error", err.Error())
		turns = nil
	}

	out := e.dispatcher.Execute(ctx, dispatch.Request{
		SystemPrompt: e.cfg.SystemPrompt,
		Turns:        turns,
		NewText:      text,
		Temperature:  temperature,
		MaxTokens:    e.cfg.MaxTokens,
		Timeout:      e.cfg.Timeout,
	})
	if !out.Succeeded {
		// History untouched: no orphan user turn without an answer.
		return "", nil
	}

	turns = append(turns,
		convstore.Turn{Role: convstore.RoleUser, Content: text},
		convstore.Turn{Role: convstore.RoleAssistant, Content: out.Text},
	)
	if err := e.store.Write(chatID, turns); err != nil {
		// Best-effort durability: the user already has the answer, losing
		// the pair on restart beats refusing to deliver it.
		e.logger.Error("engine_history_write_failed", "chat_id", chatID, "error", err.Error())
	}
	return out.Text, nil
}

// Undo removes the most recent user/assistant pair. No-op on empty history.
func (e *Engine) Undo(chatID string) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	lock := e.locks.AcquireFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	turns, err := e.store.Read(chatID)
	if err != nil {
		return fmt.Errorf("engine: read history: %w", err)
	}
	if len(turns) == 0 {
		return nil
	}
	drop := 2
	if len(turns) < drop {
		drop = len(turns)
	}
	return e.store.Write(chatID, turns[:len(turns)-drop])
}

// Reset discards the chat's history.
func (e *Engine) Reset(chatID string) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	lock := e.locks.AcquireFor(chatID)
	lock.Lock()
	defer lock.Unlock()
	return e.store.Clear(chatID)
}

// History returns the stored turn sequence for a chat.
func (e *Engine) History(chatID string) ([]Turn, error) {
	if chatID == "" {
		return nil, ErrEmptyChatID
	}
	lock := e.locks.AcquireFor(chatID)
	lock.Lock()
	defer lock.Unlock()
	return e.store.Read(chatID)
}

// HistoryAsString renders the stored turns as a plain transcript, one
// "role: content" line per turn with a blank line after each answer.
func (e *Engine) HistoryAsString(chatID string) (string, error) {
	turns, err := e.History(chatID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
		if t.Role == convstore.RoleAssistant {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// Turn re-exported for transports that render history.
type Turn = convstore.Turn
