package feishu

import (
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name        string
		messageType string
		content     string
		want        string
	}{
		{"plain text", "text", `{"text":"hello world"}`, "hello world"},
		{"mention stripped", "text", `{"text":"@_user_1 do the thing"}`, "do the thing"},
		{"post rows joined", "post", `{"content":[[{"tag":"text","text":"line one"}],[{"tag":"text","text":"line two"}]]}`, "line one\nline two"},
		{"unsupported type", "image", `{"image_key":"img_x"}`, ""},
		{"invalid json", "text", `{`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.messageType, tt.content); got != tt.want {
				t.Fatalf("extractText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveReceiveIDType(t *testing.T) {
	tests := map[string]string{
		"oc_abc123": "chat_id",
		"ou_abc123": "open_id",
		"on_abc123": "union_id",
		"whatever":  "chat_id",
	}
	for id, want := range tests {
		if got := resolveReceiveIDType(id); got != want {
			t.Fatalf("resolveReceiveIDType(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestResolveDomain(t *testing.T) {
	tests := map[string]string{
		"":                    "https://open.larksuite.com",
		"lark":                "https://open.larksuite.com",
		"feishu":              "https://open.feishu.cn",
		"custom.example.com":  "https://custom.example.com",
		"https://my.lark.dev": "https://my.lark.dev",
	}
	for domain, want := range tests {
		if got := resolveDomain(domain); got != want {
			t.Fatalf("resolveDomain(%q) = %q, want %q", domain, got, want)
		}
	}
}

func TestShouldUseCard(t *testing.T) {
	if !shouldUseCard("see:\n```go\ncode\n```") {
		t.Fatal("code block not detected")
	}
	if shouldUseCard("just a plain sentence") {
		t.Fatal("plain text misdetected")
	}
}
