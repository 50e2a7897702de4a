package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxExecOutputChars = 10000

// defaultDenyPatterns match destructive or system-level commands.
var defaultDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\bdel\s+/[fq]\b`),
	regexp.MustCompile(`\brmdir\s+/s\b`),
	regexp.MustCompile(`\b(format|mkfs|diskpart)\b`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`>\s*/dev/sd`),
	regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`),
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`), // fork bomb
}

// ExecTool runs shell commands under a denylist, an optional allowlist,
// an optional workspace confinement, and a hard timeout.
type ExecTool struct {
	timeout             time.Duration
	workingDir          string
	restrictToWorkspace bool
	denyPatterns        []*regexp.Regexp
	allowPatterns       []*regexp.Regexp
}

// ExecOption configures an ExecTool.
type ExecOption func(*ExecTool)

// WithExecTimeout sets the command timeout.
func WithExecTimeout(d time.Duration) ExecOption {
	return func(t *ExecTool) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithAllowPatterns sets an allowlist: a command must match at least one.
func WithAllowPatterns(patterns []string) ExecOption {
	return func(t *ExecTool) {
		for _, p := range patterns {
			if re, err := regexp.Compile(p); err == nil {
				t.allowPatterns = append(t.allowPatterns, re)
			}
		}
	}
}

// NewExecTool creates the shell execution tool rooted at workingDir.
func NewExecTool(workingDir string, restrictToWorkspace bool, opts ...ExecOption) *ExecTool {
	t := &ExecTool{
		timeout:             60 * time.Second,
		workingDir:          workingDir,
		restrictToWorkspace: restrictToWorkspace,
		denyPatterns:        defaultDenyPatterns,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *ExecTool) Name() string { return "exec" }

func (t *ExecTool) Description() string {
	return "Execute a shell command and return its output. Commands are guarded and time-limited."
}

func (t *ExecTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Shell command to execute",
			},
			"working_dir": map[string]interface{}{
				"type":        "string",
				"description": "Optional working directory override",
			},
		},
		"required": []interface{}{"command"},
	}
}

func (t *ExecTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	command := stringArg(args, "command")
	cwd := stringArg(args, "working_dir")
	if cwd == "" {
		cwd = t.workingDir
	}

	if guardErr := t.checkCommandSafety(command, cwd); guardErr != "" {
		return ErrorResult(guardErr)
	}

	execCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return Errorf("Error: command timed out after %d seconds", int(t.timeout.Seconds()))
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Errorf("Error: failed to execute command: %v", err)
		}
	}

	return NewResult(formatExecOutput(stdout.Bytes(), stderr.Bytes(), exitCode))
}

// checkCommandSafety returns a guard error string, or "" when the command passes.
func (t *ExecTool) checkCommandSafety(command, cwd string) string {
	lower := strings.ToLower(strings.TrimSpace(command))

	for _, re := range t.denyPatterns {
		if re.MatchString(lower) {
			return "Error: command blocked by safety guard (dangerous pattern detected)"
		}
	}

	if len(t.allowPatterns) > 0 {
		allowed := false
		for _, re := range t.allowPatterns {
			if re.MatchString(lower) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "Error: command blocked by safety guard (not in allowlist)"
		}
	}

	if t.restrictToWorkspace {
		if strings.Contains(command, "../") || strings.Contains(command, `..\`) {
			return "Error: command blocked (path traversal detected)"
		}
		base, err := filepath.Abs(cwd)
		if err == nil {
			if sym, symErr := filepath.EvalSymlinks(base); symErr == nil {
				base = sym
			}
			for _, token := range absolutePathTokens(command) {
				resolved := resolveExisting(token)
				if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
					return "Error: command blocked (path outside working directory)"
				}
			}
		}
	}

	return ""
}

var absPathTokenRe = regexp.MustCompile(`/[^\s"']+`)

// absolutePathTokens extracts the absolute-path-like tokens from a command.
// Well-known interpreter and device paths are ignored.
func absolutePathTokens(command string) []string {
	var out []string
	for _, tok := range absPathTokenRe.FindAllString(command, -1) {
		switch {
		case strings.HasPrefix(tok, "/dev/null"),
			strings.HasPrefix(tok, "/bin/"),
			strings.HasPrefix(tok, "/usr/bin/"),
			strings.HasPrefix(tok, "/usr/local/bin/"):
			continue
		}
		out = append(out, tok)
	}
	return out
}

// resolveExisting resolves symlinks on the longest existing prefix of path,
// so containment checks cannot be escaped via links or not-yet-created files.
func resolveExisting(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	probe := abs
	var tail []string
	for {
		if resolved, err := filepath.EvalSymlinks(probe); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return abs
		}
		tail = append(tail, filepath.Base(probe))
		probe = parent
	}
}

// formatExecOutput normalizes and caps process output.
func formatExecOutput(stdout, stderr []byte, exitCode int) string {
	var parts []string
	if len(stdout) > 0 {
		parts = append(parts, string(stdout))
	}
	if errText := strings.TrimSpace(string(stderr)); errText != "" {
		parts = append(parts, "STDERR:\n"+errText)
	}
	if exitCode != 0 {
		parts = append(parts, fmt.Sprintf("Exit code: %d", exitCode))
	}

	result := "(no output)"
	if len(parts) > 0 {
		result = strings.Join(parts, "\n")
	}

	if len(result) > maxExecOutputChars {
		over := len(result) - maxExecOutputChars
		result = result[:maxExecOutputChars] + fmt.Sprintf("\n... (truncated, %d more chars)", over)
	}
	return result
}
