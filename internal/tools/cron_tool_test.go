package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/clawai/internal/cron"
)

func newTestCronTool(t *testing.T) *CronTool {
	t.Helper()
	store := filepath.Join(t.TempDir(), "jobs.json")
	service := cron.NewService(store, func(ctx context.Context, job *cron.Job) (string, error) {
		return "", nil
	})
	return NewCronTool(service)
}

func decodeCronResult(t *testing.T, res *Result) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(res.ForLLM), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", res.ForLLM, err)
	}
	return payload
}

func TestCronToolAddListRemove(t *testing.T) {
	tool := newTestCronTool(t)
	tool.SetContext("telegram", "99")
	ctx := context.Background()

	addRes := tool.Execute(ctx, map[string]interface{}{
		"action":        "add",
		"message":       "drink water",
		"every_seconds": float64(300),
	})
	added := decodeCronResult(t, addRes)
	if added["ok"] != true {
		t.Fatalf("add failed: %v", added)
	}
	jobID := added["data"].(map[string]interface{})["id"].(string)
	if jobID == "" {
		t.Fatal("no job id returned")
	}

	listRes := tool.Execute(ctx, map[string]interface{}{"action": "list"})
	listed := decodeCronResult(t, listRes)
	data := listed["data"].(map[string]interface{})
	if data["count"].(float64) != 1 {
		t.Fatalf("expected 1 job: %v", data)
	}

	removeRes := tool.Execute(ctx, map[string]interface{}{"action": "remove", "job_id": jobID})
	removed := decodeCronResult(t, removeRes)
	if removed["ok"] != true {
		t.Fatalf("remove failed: %v", removed)
	}

	finalList := decodeCronResult(t, tool.Execute(ctx, map[string]interface{}{"action": "list"}))
	if finalList["data"].(map[string]interface{})["count"].(float64) != 0 {
		t.Fatal("job not removed")
	}
}

func TestCronToolRequiresContext(t *testing.T) {
	tool := newTestCronTool(t)

	res := tool.Execute(context.Background(), map[string]interface{}{
		"action":        "add",
		"message":       "x",
		"every_seconds": float64(60),
	})
	payload := decodeCronResult(t, res)
	if payload["ok"] != false {
		t.Fatalf("expected failure: %v", payload)
	}
	if payload["error"] != "Missing delivery context (channel/chat_id)" {
		t.Fatalf("error %q", payload["error"])
	}
}

func TestCronToolRejectsBadRequests(t *testing.T) {
	tool := newTestCronTool(t)
	tool.SetContext("cli", "direct")
	ctx := context.Background()

	cases := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"no message", map[string]interface{}{"action": "add", "every_seconds": float64(60)}, "message is required for add"},
		{"no schedule", map[string]interface{}{"action": "add", "message": "x"}, "either every_seconds or cron_expr is required"},
		{"remove without id", map[string]interface{}{"action": "remove"}, "job_id is required for remove"},
		{"unknown action", map[string]interface{}{"action": "purge"}, "Unknown action: purge"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := decodeCronResult(t, tool.Execute(ctx, tc.args))
			if payload["ok"] != false || payload["error"] != tc.want {
				t.Fatalf("got %v, want error %q", payload, tc.want)
			}
		})
	}
}

func TestCronToolCronExpression(t *testing.T) {
	tool := newTestCronTool(t)
	tool.SetContext("cli", "direct")

	payload := decodeCronResult(t, tool.Execute(context.Background(), map[string]interface{}{
		"action":    "add",
		"message":   "morning briefing",
		"cron_expr": "0 9 * * *",
	}))
	if payload["ok"] != true {
		t.Fatalf("add failed: %v", payload)
	}
	if payload["data"].(map[string]interface{})["schedule"] != "cron" {
		t.Fatalf("schedule kind %v", payload["data"])
	}
}
