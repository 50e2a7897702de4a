package heartbeat

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsActionable(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty", "", false},
		{"only headers", "# Tasks\n## Today\n", false},
		{"only comments", "<!-- nothing here -->\n", false},
		{"empty checkboxes", "- [ ]\n* [ ]\n- [x]\n* [x]\n", false},
		{"header plus task", "# Tasks\n- water the plants\n", true},
		{"filled checkbox", "- [ ] send the weekly report\n", true},
		{"plain text", "remember to check the backups\n", true},
		{"whitespace only", "   \n\t\n", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsActionable(tc.content); got != tc.want {
				t.Fatalf("IsActionable(%q) = %v, want %v", tc.content, got, tc.want)
			}
		})
	}
}

func TestIsOKResponse(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"HEARTBEAT_OK", true},
		{"heartbeat_ok", true},
		{"HEARTBEATOK", true},
		{"All quiet. HEARTBEAT_OK", true},
		{"I watered the plants.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isOKResponse(tc.reply); got != tc.want {
			t.Fatalf("isOKResponse(%q) = %v, want %v", tc.reply, got, tc.want)
		}
	}
}

func TestTriggerNowSkipsWithoutFile(t *testing.T) {
	called := false
	s := NewService(t.TempDir(), func(ctx context.Context, prompt string) (string, error) {
		called = true
		return "", nil
	})

	if reply := s.TriggerNow(context.Background()); reply != "" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if called {
		t.Fatal("callback invoked without heartbeat file")
	}
}

func TestTriggerNowRunsCallback(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, Filename), []byte("- check the logs\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotPrompt string
	s := NewService(ws, func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "HEARTBEAT_OK", nil
	})

	reply := s.TriggerNow(context.Background())
	if reply != "HEARTBEAT_OK" {
		t.Fatalf("reply %q", reply)
	}
	if gotPrompt != Prompt {
		t.Fatalf("prompt %q", gotPrompt)
	}
}

func TestTriggerNowSkipsNonActionable(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, Filename), []byte("# Tasks\n- [ ]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	called := false
	s := NewService(ws, func(ctx context.Context, prompt string) (string, error) {
		called = true
		return "", nil
	})

	s.TriggerNow(context.Background())
	if called {
		t.Fatal("callback invoked for non-actionable file")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s := NewService(t.TempDir(), func(ctx context.Context, prompt string) (string, error) {
		return "", nil
	}, WithInterval(10*time.Millisecond))

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()
}
