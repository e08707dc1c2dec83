package llm

import "testing"

func TestToYandexMessages_DropsEmptyInstruction(t *testing.T) {
	got := toYandexMessages([]Message{
		{Role: RoleSystem, Content: ""},
		{Role: RoleUser, Content: "hola"},
		{Role: RoleAssistant, Content: "buenas"},
	})
	if len(got) != 2 {
		t.Fatalf("want 2 messages, got %d: %+v", len(got), got)
	}
	if got[0].Role != RoleUser || got[0].Content != "hola" || got[1].Role != RoleAssistant {
		t.Fatalf("unexpected mapping: %+v", got)
	}
}

func TestToYandexMessages_KeepsInstruction(t *testing.T) {
	got := toYandexMessages([]Message{
		{Role: RoleSystem, Content: "sé breve"},
		{Role: RoleUser, Content: "hola"},
	})
	if len(got) != 2 || got[0].Role != RoleSystem || got[0].Content != "sé breve" {
		t.Fatalf("instruction turn lost: %+v", got)
	}
}
