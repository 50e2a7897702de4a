package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExecEcho(t *testing.T) {
	tool := NewExecTool(t.TempDir(), false)
	res := tool.Execute(context.Background(), map[string]interface{}{"command": "echo hello"})

	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if strings.TrimSpace(res.ForLLM) != "hello" {
		t.Fatalf("got %q", res.ForLLM)
	}
}

func TestExecNoOutput(t *testing.T) {
	tool := NewExecTool(t.TempDir(), false)
	res := tool.Execute(context.Background(), map[string]interface{}{"command": "true"})

	if res.ForLLM != "(no output)" {
		t.Fatalf("got %q", res.ForLLM)
	}
}

func TestExecStderrAndExitCode(t *testing.T) {
	tool := NewExecTool(t.TempDir(), false)
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command": "echo out; echo err >&2; exit 3",
	})

	if !strings.Contains(res.ForLLM, "out") {
		t.Fatalf("stdout missing: %q", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "STDERR:\nerr") {
		t.Fatalf("stderr block missing: %q", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "Exit code: 3") {
		t.Fatalf("exit code missing: %q", res.ForLLM)
	}
}

func TestExecDenyPattern(t *testing.T) {
	tool := NewExecTool(t.TempDir(), false)
	for _, cmd := range []string{"rm -rf /", "sudo reboot", "dd if=/dev/zero of=/dev/sda"} {
		res := tool.Execute(context.Background(), map[string]interface{}{"command": cmd})
		if !res.IsError {
			t.Fatalf("command %q not blocked", cmd)
		}
		if !strings.HasPrefix(res.ForLLM, "Error: command blocked by safety guard") {
			t.Fatalf("got %q", res.ForLLM)
		}
	}
}

func TestExecAllowlist(t *testing.T) {
	tool := NewExecTool(t.TempDir(), false, WithAllowPatterns([]string{`^echo\b`}))

	if res := tool.Execute(context.Background(), map[string]interface{}{"command": "echo ok"}); res.IsError {
		t.Fatalf("allowed command blocked: %s", res.ForLLM)
	}
	res := tool.Execute(context.Background(), map[string]interface{}{"command": "ls"})
	if !res.IsError || res.ForLLM != "Error: command blocked by safety guard (not in allowlist)" {
		t.Fatalf("got %q", res.ForLLM)
	}
}

func TestExecTimeout(t *testing.T) {
	tool := NewExecTool(t.TempDir(), false, WithExecTimeout(time.Second))
	res := tool.Execute(context.Background(), map[string]interface{}{"command": "sleep 5"})

	if !res.IsError {
		t.Fatal("expected error")
	}
	if res.ForLLM != "Error: command timed out after 1 seconds" {
		t.Fatalf("got %q", res.ForLLM)
	}
}

func TestExecWorkspaceRestriction(t *testing.T) {
	ws := t.TempDir()
	tool := NewExecTool(ws, true)

	t.Run("traversal blocked", func(t *testing.T) {
		res := tool.Execute(context.Background(), map[string]interface{}{"command": "cat ../secret"})
		if !res.IsError || res.ForLLM != "Error: command blocked (path traversal detected)" {
			t.Fatalf("got %q", res.ForLLM)
		}
	})

	t.Run("outside path blocked", func(t *testing.T) {
		res := tool.Execute(context.Background(), map[string]interface{}{"command": "cat /etc/passwd"})
		if !res.IsError || res.ForLLM != "Error: command blocked (path outside working directory)" {
			t.Fatalf("got %q", res.ForLLM)
		}
	})

	t.Run("inside path allowed", func(t *testing.T) {
		inside := filepath.Join(ws, "data.txt")
		if err := os.WriteFile(inside, []byte("ok"), 0o644); err != nil {
			t.Fatal(err)
		}
		res := tool.Execute(context.Background(), map[string]interface{}{"command": "cat " + inside})
		if res.IsError {
			t.Fatalf("unexpected error: %s", res.ForLLM)
		}
	})

	t.Run("symlink escape blocked", func(t *testing.T) {
		outside := t.TempDir()
		link := filepath.Join(ws, "leak")
		if err := os.Symlink(outside, link); err != nil {
			t.Skipf("symlink not supported: %v", err)
		}
		res := tool.Execute(context.Background(), map[string]interface{}{"command": "ls " + link})
		if !res.IsError || res.ForLLM != "Error: command blocked (path outside working directory)" {
			t.Fatalf("got %q", res.ForLLM)
		}
	})
}

func TestFormatExecOutputTruncation(t *testing.T) {
	big := strings.Repeat("x", maxExecOutputChars+500)
	out := formatExecOutput([]byte(big), nil, 0)

	if len(out) <= maxExecOutputChars {
		t.Fatal("truncation marker missing")
	}
	if !strings.Contains(out, "... (truncated, 500 more chars)") {
		t.Fatalf("unexpected tail: %q", out[len(out)-60:])
	}
}
