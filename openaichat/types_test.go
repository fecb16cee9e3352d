package openaichat

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestImageFromURLAcceptsHTTPAndDataURIs(t *testing.T) {
	for _, url := range []string{
		"https://example.com/cat.png",
		"http://localhost:8000/dog.jpg",
		"data:image/png;base64,iVBORw0KGgo=",
	} {
		if _, err := ImageFromURL(url); err != nil {
			t.Errorf("expected %q accepted, got %v", url, err)
		}
	}
}

func TestImageFromURLRejectsOtherSchemes(t *testing.T) {
	for _, url := range []string{
		"ftp://example.com/cat.png",
		"file:///etc/passwd",
		"not a url",
		"",
	} {
		_, err := ImageFromURL(url)
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("expected ValidationError for %q, got %v", url, err)
		}
	}
}

func TestImageFromBase64BuildsDataURI(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
	img, err := ImageFromBase64(data, "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "data:image/png;base64," + data
	if img.URL() != want {
		t.Errorf("expected %q, got %q", want, img.URL())
	}
}

func TestImageFromBase64RejectsMalformedData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid characters", "abc!def="},
		{"bad length", "abcde"},
		{"padding in the middle", "ab=cdefg"},
		{"too much padding", "a==="},
		{"empty", ""},
	}
	for _, tt := range tests {
		_, err := ImageFromBase64(tt.data, "image/png")
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
		}
	}
}

func TestImageFromBase64RejectsNonImageMediaType(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("x"))
	_, err := ImageFromBase64(data, "text/plain")
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestImageDetailDefaultsToAuto(t *testing.T) {
	img, err := ImageFromURL("https://example.com/cat.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Detail() != DetailAuto {
		t.Errorf("expected auto, got %q", img.Detail())
	}
	if img.WithDetail(DetailHigh).Detail() != DetailHigh {
		t.Error("expected WithDetail to override")
	}
}

func TestMessageTextContent(t *testing.T) {
	msg := AssistantMessage(
		Text("first"),
		ToolUse("call_1", "tool", nil),
		Text("second"),
	)
	if got := msg.TextContent(); got != "first\nsecond" {
		t.Errorf("expected newline-joined text, got %q", got)
	}
	if uses := msg.ToolUses(); len(uses) != 1 || uses[0].ID != "call_1" {
		t.Errorf("unexpected tool uses: %+v", uses)
	}
}

func TestMessageConstructors(t *testing.T) {
	if m := SystemMessage("be helpful"); m.Role != RoleSystem {
		t.Errorf("expected system role, got %q", m.Role)
	}
	if m := UserMessage("hi"); m.Role != RoleUser || m.TextContent() != "hi" {
		t.Errorf("unexpected user message: %+v", m)
	}
	m := ToolResultMessage("call_1", "result text", false)
	if m.Role != RoleTool {
		t.Errorf("expected tool role, got %q", m.Role)
	}
	tr := m.Content[0].ToolResult
	if tr == nil || tr.ToolUseID != "call_1" || tr.Content != "result text" || tr.IsError {
		t.Errorf("unexpected tool result: %+v", tr)
	}
}

func TestTruncateForError(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := truncateForError(long, 160)
	if len(got) > 170 {
		t.Errorf("expected truncation near 160 chars, got %d", len(got))
	}
	if truncateForError("short", 160) != "short" {
		t.Error("short strings must pass through unchanged")
	}
}
