package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/nextlevelbuilder/clawai/internal/bus"
)

// MessageTool delivers a message to a chat channel through the bus.
// The delivery target defaults to the conversation being processed;
// SetContext is called by the agent loop before each turn.
type MessageTool struct {
	bus *bus.MessageBus

	mu      sync.Mutex
	channel string
	chatID  string
}

// NewMessageTool creates the message tool bound to the given bus.
func NewMessageTool(b *bus.MessageBus) *MessageTool {
	return &MessageTool{bus: b}
}

func (t *MessageTool) Name() string { return "message" }

func (t *MessageTool) Description() string {
	return "Send a message to the user on the current chat channel."
}

func (t *MessageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Message text to send",
			},
			"channel": map[string]interface{}{
				"type":        "string",
				"description": "Override delivery channel",
			},
			"chat_id": map[string]interface{}{
				"type":        "string",
				"description": "Override delivery chat id",
			},
		},
		"required": []interface{}{"message"},
	}
}

// SetContext records the conversation the tool should deliver to.
func (t *MessageTool) SetContext(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *MessageTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	content := stringArg(args, "message")

	t.mu.Lock()
	channel := t.channel
	chatID := t.chatID
	t.mu.Unlock()

	if c := stringArg(args, "channel"); c != "" {
		channel = c
	}
	if c := stringArg(args, "chat_id"); c != "" {
		chatID = c
	}

	if channel == "" || chatID == "" {
		return ErrorResult("Error: message context not set (channel/chat_id missing)")
	}

	t.bus.PublishOutbound(bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: content,
	})
	return NewResult(fmt.Sprintf("Message sent to %s:%s", channel, chatID))
}
