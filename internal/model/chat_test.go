package model

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		input  string
		want   Mode
		wantOK bool
	}{
		{input: "Default", want: ModeDefault, wantOK: true},
		{input: "Code", want: ModeCode, wantOK: true},
		{input: "Architect", want: ModeArchitect, wantOK: true},
		{input: "Debug", want: ModeDebug, wantOK: true},
		{input: "Ask", want: ModeAsk, wantOK: true},
		{input: "code", wantOK: false},
		{input: "", wantOK: false},
		{input: "Wizard", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseMode(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseMode(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseMode(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSessionMetadataRoundTrip(t *testing.T) {
	session := &ChatSession{ChatID: "chat-1"}
	md := SessionMetadata{
		ChatID:         "chat-1",
		SessionID:      "chat-1",
		ClientMode:     "free",
		ConversationID: "conv-9",
		ResponseID:     "resp-3",
		ChoiceID:       "choice-0",
		Turn:           4,
	}

	if err := session.SetMetadata(md); err != nil {
		t.Fatalf("SetMetadata() unexpected error: %v", err)
	}
	if session.Metadata == "" {
		t.Fatal("Metadata column is empty after SetMetadata")
	}

	got, err := session.MetadataValue()
	if err != nil {
		t.Fatalf("MetadataValue() unexpected error: %v", err)
	}
	if got != md {
		t.Errorf("MetadataValue() = %+v, want %+v", got, md)
	}
}

func TestMessageMetaEncode(t *testing.T) {
	meta := MessageMeta{Type: "system_prompt", Mode: "Code", ClientMode: "free"}
	encoded := meta.Encode()
	if encoded == "" {
		t.Fatal("Encode() returned empty string")
	}

	want := `{"type":"system_prompt","mode":"Code","client_mode":"free"}`
	if encoded != want {
		t.Errorf("Encode() = %s, want %s", encoded, want)
	}
}
