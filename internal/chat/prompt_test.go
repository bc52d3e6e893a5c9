package chat

import (
	"strings"
	"testing"

	"github.com/hyperjump/kaiwa/internal/models"
)

func TestBuildPrompt_NoHistory(t *testing.T) {
	prompt := BuildPrompt(nil, 0, "ctx text", "what?")

	if !strings.HasPrefix(prompt, "Answer the question based on the provided context only.") {
		t.Error("empty history: prompt should start with the instruction")
	}
	if !strings.Contains(prompt, "Context:\nctx text") {
		t.Error("prompt missing context")
	}
	if !strings.HasSuffix(prompt, "Question: what?\nAnswer:") {
		t.Errorf("prompt tail wrong: %q", prompt[len(prompt)-40:])
	}
}

func TestBuildPrompt_HistoryOrderAndRoles(t *testing.T) {
	history := []models.Turn{
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleAssistant, Text: "hello"},
	}
	prompt := BuildPrompt(history, 0, "c", "next")

	userAt := strings.Index(prompt, "User: hi")
	aiAt := strings.Index(prompt, "AI: hello")
	if userAt < 0 || aiAt < 0 {
		t.Fatalf("history not rendered: %q", prompt)
	}
	if userAt > aiAt {
		t.Error("history rendered out of order")
	}

	// The conversation comes first; instruction, context, and question follow.
	instructionAt := strings.Index(prompt, "Answer the question based on the provided context only.")
	contextAt := strings.Index(prompt, "Context:")
	questionAt := strings.Index(prompt, "Question: next")
	if instructionAt < aiAt {
		t.Error("instruction should follow the conversation history")
	}
	if !(instructionAt < contextAt && contextAt < questionAt) {
		t.Errorf("section order wrong: instruction=%d context=%d question=%d",
			instructionAt, contextAt, questionAt)
	}
	if userAt != 0 {
		t.Errorf("prompt should start with the oldest turn, starts at %d", userAt)
	}
}

func TestBuildPrompt_HistoryLimit(t *testing.T) {
	history := []models.Turn{
		{Role: models.RoleUser, Text: "oldest"},
		{Role: models.RoleAssistant, Text: "middle"},
		{Role: models.RoleUser, Text: "newest"},
	}
	prompt := BuildPrompt(history, 2, "c", "q")

	if strings.Contains(prompt, "oldest") {
		t.Error("turn beyond the limit should be dropped")
	}
	if !strings.Contains(prompt, "middle") || !strings.Contains(prompt, "newest") {
		t.Error("most recent turns should survive the limit")
	}
}
