package tools

import (
	"context"
	"sync"
)

// SpawnTool hands a task to the subagent manager for background
// execution. The origin context set by the agent loop routes the
// completion report back to the right chat.
type SpawnTool struct {
	manager *SubagentManager

	mu            sync.Mutex
	originChannel string
	originChatID  string
}

// NewSpawnTool creates the spawn tool.
func NewSpawnTool(manager *SubagentManager) *SpawnTool {
	return &SpawnTool{
		manager:       manager,
		originChannel: "cli",
		originChatID:  "direct",
	}
}

func (t *SpawnTool) Name() string { return "spawn" }

func (t *SpawnTool) Description() string {
	return "Spawn a background subagent to handle a task asynchronously. " +
		"Use this for complex or long-running work that does not need to block the main agent."
}

func (t *SpawnTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "Task description for the subagent",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Optional short label for the task (used for logging or UI display)",
			},
		},
		"required": []interface{}{"task"},
	}
}

// SetContext records the origin conversation for result announcements.
func (t *SpawnTool) SetContext(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.originChannel = channel
	t.originChatID = chatID
}

func (t *SpawnTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task := stringArg(args, "task")
	label := stringArg(args, "label")

	t.mu.Lock()
	channel := t.originChannel
	chatID := t.originChatID
	t.mu.Unlock()

	ack := t.manager.Spawn(ctx, task, label, channel, chatID)
	return NewResult(ack)
}
