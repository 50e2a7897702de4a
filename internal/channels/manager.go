package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/clawai/internal/bus"
)

// Manager owns the registered channels: lifecycle, outbound subscription
// wiring, and system-channel announce re-routing.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      *bus.MessageBus
	logger   *slog.Logger
}

// NewManager creates a channel manager bound to the bus. It subscribes
// the "system" channel once so background announcements (subagent
// completions) are re-routed to the conversation they originated from.
func NewManager(msgBus *bus.MessageBus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      msgBus,
		logger:   logger,
	}
	msgBus.Subscribe("system", m.routeSystemMessage)
	return m
}

// Register adds a channel and subscribes its Send to the outbound queue.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	m.channels[ch.Name()] = ch
	m.mu.Unlock()

	m.bus.Subscribe(ch.Name(), func(ctx context.Context, msg bus.OutboundMessage) error {
		if !ch.IsRunning() {
			return fmt.Errorf("channel %s not running", ch.Name())
		}
		return ch.Send(ctx, msg)
	})
}

// StartAll starts every registered channel. A channel that fails to
// start is logged and skipped; the rest keep running.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.channels) == 0 {
		m.logger.Warn("no channels enabled")
		return
	}
	for name, ch := range m.channels {
		m.logger.Info("starting channel", "channel", name)
		if err := ch.Start(ctx); err != nil {
			m.logger.Error("failed to start channel", "channel", name, "error", err)
		}
	}
}

// StopAll stops every registered channel.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		m.logger.Info("stopping channel", "channel", name)
		if err := ch.Stop(ctx); err != nil {
			m.logger.Error("error stopping channel", "channel", name, "error", err)
		}
	}
}

// Get returns a channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns the registered channel names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// Status reports per-channel running state.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}

// routeSystemMessage re-routes a "system" channel reply to the external
// conversation it belongs to. The chat ID of a system message is the
// compound "<origin_channel>:<origin_chat_id>".
func (m *Manager) routeSystemMessage(ctx context.Context, msg bus.OutboundMessage) error {
	origin, chatID, ok := strings.Cut(msg.ChatID, ":")
	if !ok || origin == "" || chatID == "" {
		m.logger.Debug("system message without routable origin", "chat_id", msg.ChatID)
		return nil
	}
	if IsInternalChannel(origin) {
		// cli/cron/heartbeat conversations have no push target.
		return nil
	}

	m.mu.RLock()
	ch, exists := m.channels[origin]
	m.mu.RUnlock()
	if !exists {
		m.logger.Warn("system message for unknown channel", "channel", origin)
		return nil
	}

	return ch.Send(ctx, bus.OutboundMessage{
		Channel:  origin,
		ChatID:   chatID,
		Content:  msg.Content,
		Metadata: msg.Metadata,
	})
}
