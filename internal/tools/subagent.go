package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/clawai/internal/bus"
	"github.com/nextlevelbuilder/clawai/internal/providers"
)

const (
	subagentMaxIterations = 15
	subagentIDLength      = 8
	subagentLabelMaxLen   = 30
)

// SubagentManager runs focused background tasks in isolated agent
// instances. Each subagent gets its own tool registry (no message,
// spawn, or cron tools) and its own message history; the only way
// results flow back is a completion report on the "system" channel.
type SubagentManager struct {
	provider  providers.Provider
	model     string
	workspace string
	msgBus    *bus.MessageBus

	// createTools builds the restricted registry for one subagent run.
	createTools func() *Registry

	mu      sync.Mutex
	running map[string]string // id -> label
}

// NewSubagentManager creates a subagent manager.
func NewSubagentManager(
	provider providers.Provider,
	model string,
	workspace string,
	msgBus *bus.MessageBus,
	createTools func() *Registry,
) *SubagentManager {
	return &SubagentManager{
		provider:    provider,
		model:       model,
		workspace:   workspace,
		msgBus:      msgBus,
		createTools: createTools,
		running:     make(map[string]string),
	}
}

// ActiveCount returns the number of currently running subagents.
func (sm *SubagentManager) ActiveCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.running)
}

// Spawn starts a background subagent and returns an acknowledgement
// for the calling model. The task itself runs in a goroutine; its
// completion report arrives later as an inbound bus message.
func (sm *SubagentManager) Spawn(ctx context.Context, task, label, originChannel, originChatID string) string {
	taskID := uuid.NewString()[:subagentIDLength]
	if label == "" {
		label = truncateLabel(task, subagentLabelMaxLen)
	}

	sm.mu.Lock()
	sm.running[taskID] = label
	sm.mu.Unlock()

	go sm.run(taskID, task, label, originChannel, originChatID)

	slog.Info("spawned subagent", "id", taskID, "label", label)
	return fmt.Sprintf("Subagent [%s] started (id: %s). I'll notify you when it completes.", label, taskID)
}

// run executes the subagent loop and announces the outcome. Failures
// become failure reports; this function never panics outward.
func (sm *SubagentManager) run(taskID, task, label, originChannel, originChatID string) {
	defer func() {
		sm.mu.Lock()
		delete(sm.running, taskID)
		sm.mu.Unlock()
	}()

	// Detached from the spawning turn: the subagent outlives it.
	ctx := context.Background()

	result, err := sm.execute(ctx, taskID, task)
	status := "ok"
	if err != nil {
		status = "error"
		result = fmt.Sprintf("Error: %v", err)
		slog.Error("subagent failed", "id", taskID, "error", err)
	} else {
		slog.Info("subagent completed", "id", taskID)
	}

	sm.announce(task, result, status, originChannel, originChatID)
}

// execute runs the LLM/tool loop with the restricted registry.
func (sm *SubagentManager) execute(ctx context.Context, taskID, task string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subagent panic: %v", r)
		}
	}()

	registry := sm.createTools()
	messages := []providers.Message{
		{Role: "system", Content: sm.buildPrompt(task)},
		{Role: "user", Content: task},
	}

	for iteration := 1; iteration <= subagentMaxIterations; iteration++ {
		resp, chatErr := sm.provider.Chat(ctx, providers.ChatRequest{
			Messages: messages,
			Tools:    registry.Definitions(),
			Model:    sm.model,
		})
		if chatErr != nil {
			return "", fmt.Errorf("LLM call failed at iteration %d: %w", iteration, chatErr)
		}
		if resp.FinishReason == providers.FinishError || resp.FinishReason == providers.FinishTimeout {
			return "", fmt.Errorf("LLM call failed at iteration %d: %s", iteration, resp.Content)
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				return "Task completed with no output.", nil
			}
			return resp.Content, nil
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			slog.Debug("subagent tool call", "id", taskID, "tool", tc.Name)
			toolResult := registry.Execute(ctx, tc.Name, tc.Arguments)
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    toolResult.ForLLM,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	return "Task completed but reached the maximum iteration limit.", nil
}

// announce publishes the completion report back through the bus. The
// agent loop picks it up as a regular inbound message and summarizes
// it for the user on the origin chat.
func (sm *SubagentManager) announce(task, result, status, originChannel, originChatID string) {
	statusText := "completed successfully"
	if status != "ok" {
		statusText = "failed"
	}

	content := fmt.Sprintf(`[Task %s]

Task:
%s

Result:
%s

Summarize this naturally for the user in 1-2 sentences.
Do not mention internal agent mechanics.`, statusText, task, result)

	sm.msgBus.PublishInbound(bus.InboundMessage{
		Channel:   "system",
		SenderID:  "subagent",
		ChatID:    originChannel + ":" + originChatID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

func (sm *SubagentManager) buildPrompt(task string) string {
	return fmt.Sprintf(`# Subagent

You are a focused subagent spawned by the main agent.

## Task
%s

## Rules
- Complete only the assigned task
- Do not initiate side objectives
- Be concise and factual
- Provide a clear final summary

## Capabilities
- Read and write files in the workspace
- Execute shell commands
- Search and fetch web content

## Restrictions
- No direct user interaction
- No spawning other agents
- No access to main agent conversation history

## Workspace
%s

When finished, return a clear summary of your findings or actions.`, task, sm.workspace)
}

func truncateLabel(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
