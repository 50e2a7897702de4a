// Package heartbeat wakes the agent periodically when the workspace
// HEARTBEAT.md file lists something worth acting on.
package heartbeat

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultInterval between heartbeat ticks.
	DefaultInterval = 30 * time.Minute

	// Filename of the workspace prompt file.
	Filename = "HEARTBEAT.md"

	// Prompt sent to the agent on an actionable tick.
	Prompt = "Read HEARTBEAT.md in your workspace (if it exists).\n" +
		"Follow any instructions or tasks listed there.\n" +
		"If nothing needs attention, reply with just: HEARTBEAT_OK\n"

	okToken = "HEARTBEATOK"
)

// Callback runs one agent turn for a heartbeat prompt and returns the
// agent's reply.
type Callback func(ctx context.Context, prompt string) (string, error)

// Service is the periodic self-wake loop.
type Service struct {
	workspace string
	callback  Callback
	interval  time.Duration
	logger    *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithInterval overrides the tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a heartbeat service over the given workspace.
func NewService(workspace string, callback Callback, opts ...Option) *Service {
	s := &Service{
		workspace: workspace,
		callback:  callback,
		interval:  DefaultInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// File returns the path of the heartbeat prompt file.
func (s *Service) File() string {
	return filepath.Join(s.workspace, Filename)
}

// Start launches the tick loop. Idempotent.
func (s *Service) Start(ctx context.Context) {
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(ctx)
	s.logger.Info("heartbeat service started", "interval", s.interval)
}

// Stop cancels the sleeping loop and waits for it to exit. Idempotent.
func (s *Service) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh = nil
	s.logger.Info("heartbeat service stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// TriggerNow runs one heartbeat cycle immediately and returns the
// agent's reply, or "" when the tick was skipped.
func (s *Service) TriggerNow(ctx context.Context) string {
	return s.tick(ctx)
}

func (s *Service) tick(ctx context.Context) string {
	content, err := os.ReadFile(s.File())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read heartbeat file", "error", err)
		}
		return ""
	}

	if !IsActionable(string(content)) {
		s.logger.Debug("heartbeat: no actionable tasks")
		return ""
	}

	s.logger.Info("heartbeat: task detected, waking agent")
	reply, err := s.callback(ctx, Prompt)
	if err != nil {
		s.logger.Error("heartbeat execution failed", "error", err)
		return ""
	}

	if isOKResponse(reply) {
		s.logger.Info("heartbeat: agent reported OK")
	} else {
		s.logger.Info("heartbeat: task executed")
	}
	return reply
}

// IsActionable reports whether heartbeat file content contains real
// tasks. Headers, HTML comments, blank lines, and bare checkbox
// templates do not count.
func IsActionable(content string) bool {
	skip := map[string]bool{
		"- [ ]": true,
		"* [ ]": true,
		"- [x]": true,
		"* [x]": true,
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "<!--") {
			continue
		}
		if skip[line] {
			continue
		}
		return true
	}
	return false
}

// isOKResponse detects the OK token regardless of case or underscores.
func isOKResponse(response string) bool {
	if response == "" {
		return false
	}
	normalized := strings.ReplaceAll(strings.ToUpper(response), "_", "")
	return strings.Contains(normalized, okToken)
}
