package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nextlevelbuilder/clawai/internal/cron"
)

const cronJobNameMaxLen = 32

// CronTool lets the model schedule reminders and recurring tasks.
// Added jobs deliver their agent reply to the conversation that
// created them, so the tool requires delivery context.
type CronTool struct {
	service *cron.Service

	mu      sync.Mutex
	channel string
	chatID  string
}

// NewCronTool creates the cron tool backed by the scheduler service.
func NewCronTool(service *cron.Service) *CronTool {
	return &CronTool{service: service}
}

func (t *CronTool) Name() string { return "cron" }

func (t *CronTool) Description() string {
	return "Schedule reminders and recurring tasks."
}

func (t *CronTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"enum":        []interface{}{"add", "list", "remove"},
				"description": "Action to perform",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Reminder message (required for add)",
			},
			"every_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Run every N seconds (recurring)",
			},
			"cron_expr": map[string]interface{}{
				"type":        "string",
				"description": "Cron expression, e.g. '0 9 * * *'",
			},
			"job_id": map[string]interface{}{
				"type":        "string",
				"description": "Job ID (required for remove)",
			},
		},
		"required": []interface{}{"action"},
	}
}

// SetContext binds the delivery target for scheduled messages.
func (t *CronTool) SetContext(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *CronTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	action := stringArg(args, "action")
	switch action {
	case "add":
		return t.handleAdd(args)
	case "list":
		return t.handleList()
	case "remove":
		return t.handleRemove(args)
	default:
		return cronError(fmt.Sprintf("Unknown action: %s", action))
	}
}

func (t *CronTool) handleAdd(args map[string]interface{}) *Result {
	message := stringArg(args, "message")
	if message == "" {
		return cronError("message is required for add")
	}

	t.mu.Lock()
	channel := t.channel
	chatID := t.chatID
	t.mu.Unlock()
	if channel == "" || chatID == "" {
		return cronError("Missing delivery context (channel/chat_id)")
	}

	everySeconds := intArg(args, "every_seconds", 0)
	cronExpr := stringArg(args, "cron_expr")

	var schedule cron.Schedule
	switch {
	case everySeconds > 0:
		schedule = cron.Schedule{Kind: cron.KindEvery, EveryMs: int64(everySeconds) * 1000}
	case cronExpr != "":
		schedule = cron.Schedule{Kind: cron.KindCron, Expr: cronExpr}
	default:
		return cronError("either every_seconds or cron_expr is required")
	}

	name := message
	if len(name) > cronJobNameMaxLen {
		name = name[:cronJobNameMaxLen]
	}

	job, err := t.service.AddJob(name, schedule, cron.Payload{
		Kind:    cron.PayloadAgentTurn,
		Message: message,
		Deliver: true,
		Channel: channel,
		To:      chatID,
	}, false)
	if err != nil {
		return cronError(err.Error())
	}

	return cronOK(map[string]interface{}{
		"id":       job.ID,
		"name":     job.Name,
		"schedule": schedule.Kind,
	})
}

func (t *CronTool) handleList() *Result {
	jobs := t.service.ListJobs(false)
	items := make([]map[string]interface{}, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, map[string]interface{}{
			"id":       j.ID,
			"name":     j.Name,
			"schedule": j.Schedule.Kind,
		})
	}
	return cronOK(map[string]interface{}{
		"count": len(items),
		"jobs":  items,
	})
}

func (t *CronTool) handleRemove(args map[string]interface{}) *Result {
	jobID := stringArg(args, "job_id")
	if jobID == "" {
		return cronError("job_id is required for remove")
	}
	if !t.service.RemoveJob(jobID) {
		return cronError(fmt.Sprintf("Job not found: %s", jobID))
	}
	return cronOK(map[string]interface{}{
		"removed": true,
		"job_id":  jobID,
	})
}

func cronOK(data map[string]interface{}) *Result {
	payload, _ := json.Marshal(map[string]interface{}{"ok": true, "data": data})
	return NewResult(string(payload))
}

func cronError(message string) *Result {
	payload, _ := json.Marshal(map[string]interface{}{"ok": false, "error": message})
	return ErrorResult(string(payload))
}
