// Package feishu implements the Feishu/Lark channel over the open
// platform APIs: a long-connection WebSocket for events and REST for
// message delivery. Default domain is Lark Global (open.larksuite.com).
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/clawai/internal/bus"
	"github.com/nextlevelbuilder/clawai/internal/channels"
	"github.com/nextlevelbuilder/clawai/internal/config"
)

const (
	textChunkLimit = 4000
	dedupTTL       = 5 * time.Minute
)

// mentionPlaceholderRe matches the @_user_N placeholders Feishu injects
// into message text for mentions.
var mentionPlaceholderRe = regexp.MustCompile(`@_user_\d+\s*`)

// MessageEvent is the im.message.receive_v1 event shape.
type MessageEvent struct {
	Header struct {
		EventType string `json:"event_type"`
	} `json:"header"`
	Event struct {
		Sender struct {
			SenderID struct {
				OpenID string `json:"open_id"`
			} `json:"sender_id"`
		} `json:"sender"`
		Message struct {
			MessageID   string `json:"message_id"`
			ChatID      string `json:"chat_id"`
			ChatType    string `json:"chat_type"` // "p2p" or "group"
			MessageType string `json:"message_type"`
			Content     string `json:"content"`
			Mentions    []struct {
				Key string `json:"key"`
				ID  struct {
					OpenID string `json:"open_id"`
				} `json:"id"`
			} `json:"mentions"`
		} `json:"message"`
	} `json:"event"`
}

// Channel connects to Feishu/Lark.
type Channel struct {
	*channels.BaseChannel
	cfg       config.FeishuConfig
	client    *LarkClient
	wsClient  *WSClient
	botOpenID string
	dedup     sync.Map // message_id → struct{}
}

// New creates a Feishu/Lark channel from config.
func New(cfg config.FeishuConfig, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("feishu appId and appSecret are required")
	}

	client := NewLarkClient(cfg.AppID, cfg.AppSecret, resolveDomain(""))

	return &Channel{
		BaseChannel: channels.NewBaseChannel("feishu", msgBus, cfg.AllowFrom),
		cfg:         cfg,
		client:      client,
	}, nil
}

// Start probes the bot identity and opens the event long connection.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting feishu/lark bot")

	if openID, err := c.client.GetBotInfo(ctx); err != nil {
		slog.Warn("feishu bot probe failed (will continue)", "error", err)
	} else {
		c.botOpenID = openID
		slog.Info("feishu bot connected", "bot_open_id", openID)
	}

	c.wsClient = NewWSClient(c.client, c)
	if err := c.wsClient.Start(ctx); err != nil {
		return fmt.Errorf("start feishu ws: %w", err)
	}

	c.SetRunning(true)
	return nil
}

// Stop shuts down the channel.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping feishu/lark bot")
	if c.wsClient != nil {
		c.wsClient.Stop()
	}
	c.SetRunning(false)
	return nil
}

// Send delivers an outbound message. Content with code blocks or tables
// is sent as a markdown card, plain text as chunked post messages.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("feishu bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("empty chat ID for feishu send")
	}
	if msg.Content == "" {
		return nil
	}

	receiveIDType := resolveReceiveIDType(msg.ChatID)

	if shouldUseCard(msg.Content) {
		card, err := json.Marshal(buildMarkdownCard(msg.Content))
		if err != nil {
			return fmt.Errorf("marshal card: %w", err)
		}
		if _, err := c.client.SendMessage(ctx, receiveIDType, msg.ChatID, "interactive", string(card)); err != nil {
			return fmt.Errorf("feishu send card: %w", err)
		}
		return nil
	}

	for _, chunk := range channels.SplitMessage(msg.Content, textChunkLimit) {
		if _, err := c.client.SendMessage(ctx, receiveIDType, msg.ChatID, "post", buildPostContent(chunk)); err != nil {
			return fmt.Errorf("feishu send text: %w", err)
		}
	}
	return nil
}

// HandleEvent implements WSEventHandler for the long connection.
func (c *Channel) HandleEvent(ctx context.Context, payload []byte) error {
	var event MessageEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		slog.Debug("feishu: parse event failed", "error", err)
		return nil
	}
	if event.Header.EventType == "im.message.receive_v1" {
		c.handleMessageEvent(ctx, &event)
	}
	return nil
}

func (c *Channel) handleMessageEvent(_ context.Context, event *MessageEvent) {
	msg := &event.Event.Message
	if msg.MessageID == "" || c.isDuplicate(msg.MessageID) {
		return
	}

	senderID := event.Event.Sender.SenderID.OpenID
	if senderID == "" || senderID == c.botOpenID {
		return
	}

	// Group chats are mention-gated.
	if msg.ChatType == "group" && !c.mentionsBot(event) {
		return
	}

	content := extractText(msg.MessageType, msg.Content)
	if content == "" {
		return
	}

	slog.Debug("feishu message received",
		"sender_id", senderID,
		"chat_id", msg.ChatID,
		"preview", channels.Truncate(content, 50),
	)

	c.HandleMessage(senderID, msg.ChatID, content, nil, map[string]string{
		"message_id": msg.MessageID,
		"chat_type":  msg.ChatType,
	})
}

func (c *Channel) mentionsBot(event *MessageEvent) bool {
	if c.botOpenID == "" {
		return false
	}
	for _, m := range event.Event.Message.Mentions {
		if m.ID.OpenID == c.botOpenID {
			return true
		}
	}
	return false
}

// isDuplicate reports whether messageID was already processed. Entries
// expire after dedupTTL.
func (c *Channel) isDuplicate(messageID string) bool {
	_, loaded := c.dedup.LoadOrStore(messageID, struct{}{})
	if !loaded {
		go func() {
			time.Sleep(dedupTTL)
			c.dedup.Delete(messageID)
		}()
	}
	return loaded
}

// extractText pulls the user-visible text out of a message content
// payload. Mention placeholders are stripped.
func extractText(messageType, content string) string {
	switch messageType {
	case "text":
		var body struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(content), &body); err != nil {
			return ""
		}
		return strings.TrimSpace(mentionPlaceholderRe.ReplaceAllString(body.Text, ""))
	case "post":
		var body struct {
			Content [][]struct {
				Tag  string `json:"tag"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal([]byte(content), &body); err != nil {
			return ""
		}
		var lines []string
		for _, row := range body.Content {
			var parts []string
			for _, el := range row {
				if el.Tag == "text" || el.Tag == "md" {
					parts = append(parts, el.Text)
				}
			}
			if len(parts) > 0 {
				lines = append(lines, strings.Join(parts, ""))
			}
		}
		return strings.TrimSpace(mentionPlaceholderRe.ReplaceAllString(strings.Join(lines, "\n"), ""))
	default:
		return ""
	}
}

func resolveDomain(domain string) string {
	switch domain {
	case "feishu":
		return "https://open.feishu.cn"
	case "", "lark":
		return "https://open.larksuite.com"
	default:
		if !strings.HasPrefix(domain, "http") {
			return "https://" + domain
		}
		return domain
	}
}

func resolveReceiveIDType(id string) string {
	switch {
	case strings.HasPrefix(id, "oc_"):
		return "chat_id"
	case strings.HasPrefix(id, "ou_"):
		return "open_id"
	case strings.HasPrefix(id, "on_"):
		return "union_id"
	default:
		return "chat_id"
	}
}

func buildPostContent(text string) string {
	content := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"content": [][]map[string]interface{}{
				{{"tag": "md", "text": text}},
			},
		},
	}
	data, _ := json.Marshal(content)
	return string(data)
}

func buildMarkdownCard(text string) map[string]interface{} {
	return map[string]interface{}{
		"schema": "2.0",
		"config": map[string]interface{}{
			"wide_screen_mode": true,
		},
		"body": map[string]interface{}{
			"elements": []map[string]interface{}{
				{"tag": "markdown", "content": text},
			},
		},
	}
}

// shouldUseCard detects content that benefits from card rendering.
func shouldUseCard(text string) bool {
	return strings.Contains(text, "```") ||
		strings.Contains(text, "| --- ") ||
		strings.Contains(text, "|---|")
}

var _ channels.Channel = (*Channel)(nil)
