package types

import (
	"encoding/json"
	"testing"
)

func TestMessageContentUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantText  string
		wantParts int
		wantErr   bool
	}{
		{
			name:     "plain string form",
			input:    `"hello world"`,
			wantText: "hello world",
		},
		{
			name:      "block array form",
			input:     `[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AA=="}}]`,
			wantParts: 2,
		},
		{
			name:      "empty array",
			input:     `[]`,
			wantParts: 0,
		},
		{
			name:    "object is invalid",
			input:   `{"text":"hi"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var content MessageContent
			err := json.Unmarshal([]byte(tt.input), &content)

			if tt.wantErr {
				if err == nil {
					t.Fatal("Unmarshal() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() unexpected error: %v", err)
			}
			if content.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", content.Text, tt.wantText)
			}
			if len(content.Parts) != tt.wantParts {
				t.Errorf("Parts = %d, want %d", len(content.Parts), tt.wantParts)
			}
		})
	}
}

func TestMessageContentUnmarshalImageBlock(t *testing.T) {
	input := `[{"type":"image_url","image_url":{"url":"data:image/png;base64,AA=="}}]`
	var content MessageContent
	if err := json.Unmarshal([]byte(input), &content); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if content.Parts[0].ImageURL == nil {
		t.Fatal("ImageURL is nil for image_url block")
	}
	if content.Parts[0].ImageURL.URL != "data:image/png;base64,AA==" {
		t.Errorf("URL = %q, want the data uri", content.Parts[0].ImageURL.URL)
	}
}

func TestCompletionRequestDecode(t *testing.T) {
	input := `{
		"model": "gemini",
		"chat_id": "chat-1",
		"messages": [
			{"role": "user", "content": "fix bug"},
			{"role": "user", "content": [{"type":"text","text":"with blocks"}]}
		]
	}`

	var req CompletionRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if req.ChatID != "chat-1" {
		t.Errorf("ChatID = %q, want chat-1", req.ChatID)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Content.Text != "fix bug" {
		t.Errorf("first message text = %q, want 'fix bug'", req.Messages[0].Content.Text)
	}
	if len(req.Messages[1].Content.Parts) != 1 {
		t.Errorf("second message parts = %d, want 1", len(req.Messages[1].Content.Parts))
	}
}
