// Package channels provides the adapter layer between external chat
// platforms (Telegram, Discord, Feishu, WhatsApp) and the agent runtime.
// Adapters translate platform events into bus.InboundMessage and deliver
// bus.OutboundMessage replies back to the platform.
package channels

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/clawai/internal/bus"
)

// InternalChannels are logical channels that never map to an external
// platform and are excluded from outbound dispatch.
var InternalChannels = map[string]bool{
	"cli":       true,
	"system":    true,
	"cron":      true,
	"heartbeat": true,
}

// IsInternalChannel reports whether a channel name is internal.
func IsInternalChannel(name string) bool {
	return InternalChannels[name]
}

// Channel is the contract every platform adapter satisfies.
type Channel interface {
	// Name returns the channel identifier ("telegram", "discord", ...).
	Name() string

	// Start begins receiving messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning reports whether the channel is actively processing.
	IsRunning() bool

	// IsAllowed reports whether a sender passes the channel allowlist.
	IsAllowed(senderID string) bool
}

// BaseChannel carries the state shared by all adapters. Implementations
// embed it and provide Start/Stop/Send.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	running   bool
	allowList []string
	limiter   *SenderLimiter
}

// NewBaseChannel creates the shared adapter state. An empty allowList
// admits every sender.
func NewBaseChannel(name string, msgBus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       msgBus,
		allowList: allowList,
		limiter:   NewSenderLimiter(),
	}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning reports whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// Bus returns the message bus reference.
func (c *BaseChannel) Bus() *bus.MessageBus { return c.bus }

// HasAllowList reports whether an allowlist is configured.
func (c *BaseChannel) HasAllowList() bool { return len(c.allowList) > 0 }

// IsAllowed checks a sender against the allowlist. Supports the compound
// "id|username" sender format: either component may match an allowlist
// entry, and entries may carry a leading "@" on usernames.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(allowed, "@")
		if senderID == allowed || senderID == trimmed ||
			idPart == allowed || idPart == trimmed ||
			userPart == allowed || userPart == trimmed {
			return true
		}
	}
	return false
}

// HandleMessage applies the allowlist and per-sender rate limit, then
// publishes the message to the bus. This is the single entry point every
// adapter uses to forward received messages.
func (c *BaseChannel) HandleMessage(senderID, chatID, content string, media []string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}
	if !c.limiter.Allow(senderID) {
		return
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Channel:  c.name,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
		Media:    media,
		Metadata: metadata,
	})
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// SplitMessage breaks content into chunks of at most maxLen bytes,
// preferring to cut at a newline in the second half of the chunk so
// platform-side messages stay readable.
func SplitMessage(content string, maxLen int) []string {
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndexByte(content[:maxLen], '\n'); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, content[:cutAt])
		content = content[cutAt:]
	}
	return chunks
}
