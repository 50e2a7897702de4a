package agent

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nextlevelbuilder/clawai/internal/providers"
	"github.com/nextlevelbuilder/clawai/internal/sessions"
	"github.com/nextlevelbuilder/clawai/internal/skills"
)

// bootstrapFiles are the optional workspace documents injected into the
// system prompt, in this order.
var bootstrapFiles = []string{
	"IDENTITY.md",
	"AGENTS.md",
	"TOOLS.md",
	"USER.md",
	"SOUL.md",
}

// ContextBuilder assembles the system prompt and message array for a
// turn: identity, bootstrap documents, memory snapshot, always-on
// skills, and the skills index, separated by horizontal rules.
type ContextBuilder struct {
	workspace string
	memory    *MemoryStore
	skills    *skills.Loader
}

// NewContextBuilder creates a builder over the workspace.
func NewContextBuilder(workspace string, loader *skills.Loader) *ContextBuilder {
	return &ContextBuilder{
		workspace: workspace,
		memory:    NewMemoryStore(workspace),
		skills:    loader,
	}
}

// Memory exposes the underlying memory store.
func (c *ContextBuilder) Memory() *MemoryStore { return c.memory }

// BuildSystemPrompt renders the full system prompt.
func (c *ContextBuilder) BuildSystemPrompt() string {
	sections := []string{c.identity()}

	if bootstrap := c.loadBootstrap(); bootstrap != "" {
		sections = append(sections, bootstrap)
	}
	if memory := c.memory.Context(); memory != "" {
		sections = append(sections, memory)
	}
	if always := c.skills.AlwaysOn(); len(always) > 0 {
		if body := c.skills.LoadActive(always); body != "" {
			sections = append(sections, "# Active Skills\n\n"+body)
		}
	}
	if index := c.skills.BuildIndex(); index != "" {
		sections = append(sections, skillsIndexSection(index))
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func (c *ContextBuilder) identity() string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	return fmt.Sprintf(`# ClawAI

You are ClawAI, a lightweight, action-oriented personal AI assistant.

Your purpose is to:
- Plan tasks
- Execute tools
- Complete real-world actions end-to-end

## Capabilities
You can:
- Read, write, and edit files
- Execute shell commands
- Search and fetch web content
- Send messages to external channels
- Spawn sub-agents for background work

## Runtime Context
**Current Time:** %s

**Workspace:** %s

- Memory: %s/memory/MEMORY.md
- Daily logs: %s/memory/YYYY-MM-DD.md
- Skills: %s/skills/<skill-name>/SKILL.md

## Operating Rules
- Prefer direct answers when no tools are required
- Use tools only when they help complete the task
- Explain actions briefly and clearly
- Persist long-term knowledge into MEMORY.md`,
		now, c.workspace, c.workspace, c.workspace, c.workspace)
}

func (c *ContextBuilder) loadBootstrap() string {
	var parts []string
	for _, name := range bootstrapFiles {
		data, err := os.ReadFile(filepath.Join(c.workspace, name))
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", name, string(data)))
	}
	return strings.Join(parts, "\n\n")
}

func skillsIndexSection(index string) string {
	return "# Available Skills\n\n" +
		"The following skills extend your capabilities.\n\n" +
		"To use a skill:\n" +
		"1. Read its SKILL.md file using the `read_file` tool\n" +
		"2. Follow the instructions inside\n\n" +
		"Some skills may require dependencies to be installed first.\n\n" +
		index
}

// BuildMessages assembles the LLM message array for one turn: system
// prompt, projected history, then the current user message (with any
// image attachments).
func (c *ContextBuilder) BuildMessages(history []sessions.Message, current string, media []string) []providers.Message {
	messages := []providers.Message{
		{Role: "system", Content: c.BuildSystemPrompt()},
	}
	for _, m := range history {
		messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
	}

	userMsg := providers.Message{Role: "user", Content: current}
	userMsg.Images = loadImages(media)
	return append(messages, userMsg)
}

// loadImages reads the recognized image attachments from media paths.
// Non-image or unreadable paths are skipped.
func loadImages(media []string) []providers.ImageContent {
	var images []providers.ImageContent
	for _, path := range media {
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if !strings.HasPrefix(mimeType, "image/") {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		images = append(images, providers.ImageContent{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		})
	}
	return images
}
