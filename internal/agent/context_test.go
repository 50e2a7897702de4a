package agent

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/clawai/internal/sessions"
	"github.com/nextlevelbuilder/clawai/internal/skills"
)

func newTestBuilder(t *testing.T) (*ContextBuilder, string) {
	t.Helper()
	ws := t.TempDir()
	loader := skills.NewLoader(filepath.Join(ws, "skills"), "")
	return NewContextBuilder(ws, loader), ws
}

func TestSystemPromptIncludesBootstrapFiles(t *testing.T) {
	builder, ws := newTestBuilder(t)

	os.WriteFile(filepath.Join(ws, "IDENTITY.md"), []byte("I am Claw."), 0o644)
	os.WriteFile(filepath.Join(ws, "USER.md"), []byte("The user likes jazz."), 0o644)
	// Unknown files are never injected.
	os.WriteFile(filepath.Join(ws, "NOTES.md"), []byte("private"), 0o644)

	prompt := builder.BuildSystemPrompt()

	if !strings.Contains(prompt, "## IDENTITY.md\n\nI am Claw.") {
		t.Fatalf("identity file missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "## USER.md\n\nThe user likes jazz.") {
		t.Fatalf("user file missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "private") {
		t.Fatal("unexpected file injected into prompt")
	}

	// Bootstrap order is fixed: IDENTITY before USER.
	if strings.Index(prompt, "## IDENTITY.md") > strings.Index(prompt, "## USER.md") {
		t.Fatal("bootstrap files out of order")
	}
}

func TestSystemPromptIncludesMemory(t *testing.T) {
	builder, _ := newTestBuilder(t)

	if err := builder.Memory().AppendLongTerm("User was born in Da Nang."); err != nil {
		t.Fatal(err)
	}
	if err := builder.Memory().AppendToday("Booked the flight."); err != nil {
		t.Fatal(err)
	}

	prompt := builder.BuildSystemPrompt()
	if !strings.Contains(prompt, "# Long-term Memory\n\nUser was born in Da Nang.") {
		t.Fatalf("long-term memory missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "# Today's Notes") || !strings.Contains(prompt, "Booked the flight.") {
		t.Fatalf("daily notes missing:\n%s", prompt)
	}
}

func TestSystemPromptIncludesSkillsIndex(t *testing.T) {
	builder, ws := newTestBuilder(t)

	dir := filepath.Join(ws, "skills", "weather")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "---\ndescription: check the forecast\n---\nuse the weather API"
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	prompt := builder.BuildSystemPrompt()
	if !strings.Contains(prompt, "# Available Skills") {
		t.Fatalf("skills section missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "<name>weather</name>") {
		t.Fatalf("skills index missing:\n%s", prompt)
	}
	// Non-always skills stay out of the prompt body.
	if strings.Contains(prompt, "use the weather API") {
		t.Fatal("skill body leaked into prompt")
	}
}

func TestBuildMessagesShape(t *testing.T) {
	builder, _ := newTestBuilder(t)

	history := []sessions.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	messages := builder.BuildMessages(history, "new question", nil)

	if len(messages) != 4 {
		t.Fatalf("got %d messages", len(messages))
	}
	if messages[0].Role != "system" {
		t.Fatalf("first message role %q", messages[0].Role)
	}
	if messages[1].Content != "earlier question" || messages[2].Content != "earlier answer" {
		t.Fatalf("history not preserved: %+v", messages[1:3])
	}
	last := messages[len(messages)-1]
	if last.Role != "user" || last.Content != "new question" {
		t.Fatalf("current message wrong: %+v", last)
	}
}

func TestLoadImagesSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "shot.png")
	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(png, []byte("fakepngdata"), 0o644)
	os.WriteFile(txt, []byte("not an image"), 0o644)

	images := loadImages([]string{png, txt, filepath.Join(dir, "missing.jpg")})
	if len(images) != 1 {
		t.Fatalf("got %d images", len(images))
	}
	if images[0].MimeType != "image/png" {
		t.Fatalf("mime %q", images[0].MimeType)
	}
	decoded, err := base64.StdEncoding.DecodeString(images[0].Data)
	if err != nil || string(decoded) != "fakepngdata" {
		t.Fatalf("payload %q err %v", decoded, err)
	}
}

func TestMemoryDailyFileHeader(t *testing.T) {
	store := NewMemoryStore(t.TempDir())

	if err := store.AppendToday("first entry"); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendToday("second entry"); err != nil {
		t.Fatal(err)
	}

	today := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(store.DailyFile(today))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# "+today+"\n\n") {
		t.Fatalf("missing date header:\n%s", content)
	}
	if strings.Count(content, "# "+today) != 1 {
		t.Fatalf("header duplicated:\n%s", content)
	}
	if !strings.Contains(content, "first entry\n\nsecond entry") {
		t.Fatalf("entries not appended:\n%s", content)
	}
}
