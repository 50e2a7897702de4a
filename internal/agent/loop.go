// Package agent implements the action-oriented execution loop: one
// inbound message becomes a bounded sequence of LLM calls and tool
// invocations ending in a single reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/clawai/internal/bus"
	"github.com/nextlevelbuilder/clawai/internal/providers"
	"github.com/nextlevelbuilder/clawai/internal/sessions"
	"github.com/nextlevelbuilder/clawai/internal/skills"
	"github.com/nextlevelbuilder/clawai/internal/tools"
)

const (
	defaultMaxSteps = 20

	// stepLimitReply is returned when a turn exhausts its step budget.
	stepLimitReply = "Task execution stopped after reaching step limit."
)

// Config wires a Loop.
type Config struct {
	Bus       *bus.MessageBus
	Provider  providers.Provider
	Model     string
	Workspace string
	Sessions  *sessions.Manager
	Tools     *tools.Registry
	Skills    *skills.Loader
	MaxSteps  int
	Logger    *slog.Logger
}

// Loop is the agent execution engine. It is the single consumer of the
// bus inbound queue; sessions are only ever mutated here.
type Loop struct {
	bus      *bus.MessageBus
	provider providers.Provider
	model    string
	maxSteps int
	sessions *sessions.Manager
	context  *ContextBuilder
	tools    *tools.Registry
	logger   *slog.Logger
}

// New creates an agent loop.
func New(cfg Config) *Loop {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = cfg.Provider.DefaultModel()
	}
	loader := cfg.Skills
	if loader == nil {
		loader = skills.NewLoader("", "")
	}
	return &Loop{
		bus:      cfg.Bus,
		provider: cfg.Provider,
		model:    model,
		maxSteps: cfg.MaxSteps,
		sessions: cfg.Sessions,
		context:  NewContextBuilder(cfg.Workspace, loader),
		tools:    cfg.Tools,
		logger:   cfg.Logger,
	}
}

// Tools exposes the loop's tool registry.
func (l *Loop) Tools() *tools.Registry { return l.tools }

// Context exposes the loop's context builder.
func (l *Loop) Context() *ContextBuilder { return l.context }

// Run consumes inbound messages until ctx is cancelled. A panic inside
// message handling is deliberately not recovered: a broken turn means
// broken shared state, and the process should die loudly.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("agent loop started", "model", l.model)
	for {
		msg, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			l.logger.Info("agent loop stopped")
			return
		}
		// Published even when empty: channel adapters decide what an
		// empty reply means for their platform.
		reply := l.handle(ctx, msg, msg.SessionKey())
		l.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: reply,
		})
	}
}

// ProcessDirect runs one agent turn outside the bus and returns the
// final answer. Used by the CLI, the scheduler, and the heartbeat.
func (l *Loop) ProcessDirect(ctx context.Context, content, sessionKey string) string {
	if sessionKey == "" {
		sessionKey = "cli:direct"
	}
	channel, chatID := splitSessionKey(sessionKey)
	msg := bus.InboundMessage{
		Channel:  channel,
		SenderID: "user",
		ChatID:   chatID,
		Content:  content,
	}
	return l.handle(ctx, msg, sessionKey)
}

// handle runs one full turn for an inbound message and returns the
// final answer.
func (l *Loop) handle(ctx context.Context, msg bus.InboundMessage, sessionKey string) string {
	l.logger.Info("incoming message",
		"channel", msg.Channel, "sender", msg.SenderID, "session", sessionKey)

	session := l.sessions.Get(sessionKey)
	l.tools.SetContext(msg.Channel, msg.ChatID)

	messages := l.context.BuildMessages(session.History(0), msg.Content, msg.Media)
	final := l.runSteps(ctx, messages)

	session.Append(sessions.Message{Role: "user", Content: msg.Content})
	session.Append(sessions.Message{Role: "assistant", Content: final})
	if err := l.sessions.Save(session); err != nil {
		l.logger.Error("failed to persist session", "session", sessionKey, "error", err)
	}

	return final
}

// runSteps is the provider/tool round loop bounded by the step budget.
// Tool failures surface as tool results the model can observe; they
// never abort the turn.
func (l *Loop) runSteps(ctx context.Context, messages []providers.Message) string {
	for step := 1; step <= l.maxSteps; step++ {
		l.logger.Debug("agent step", "step", step, "max", l.maxSteps)

		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			Messages: messages,
			Tools:    l.tools.Definitions(),
			Model:    l.model,
		})
		if err != nil {
			// Providers normalize vendor failures; an error here is a
			// programming bug, but the user still deserves a reply.
			l.logger.Error("provider returned an error", "error", err)
			return fmt.Sprintf("Error: %v", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			l.logger.Debug("executing tool", "tool", tc.Name)
			result := l.tools.Execute(ctx, tc.Name, tc.Arguments)
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	l.logger.Warn("agent loop hit max steps limit", "max", l.maxSteps)
	return stepLimitReply
}

// splitSessionKey derives the tool routing context from a session key.
func splitSessionKey(key string) (channel, chatID string) {
	channel, chatID, ok := strings.Cut(key, ":")
	if !ok {
		return key, "direct"
	}
	return channel, chatID
}
