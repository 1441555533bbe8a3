package chat

import (
	"testing"

	"github.com/ashwinyue/gemini-relay/internal/model"
)

func TestPromptFor(t *testing.T) {
	tests := []struct {
		mode       model.Mode
		wantPrompt bool
	}{
		{mode: model.ModeDefault, wantPrompt: false},
		{mode: model.ModeCode, wantPrompt: true},
		{mode: model.ModeArchitect, wantPrompt: true},
		{mode: model.ModeDebug, wantPrompt: true},
		{mode: model.ModeAsk, wantPrompt: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			text, ok := PromptFor(tt.mode)
			if ok != tt.wantPrompt {
				t.Fatalf("PromptFor(%s) ok = %v, want %v", tt.mode, ok, tt.wantPrompt)
			}
			if tt.wantPrompt && text == "" {
				t.Errorf("PromptFor(%s) returned empty prompt", tt.mode)
			}
			if !tt.wantPrompt && text != "" {
				t.Errorf("PromptFor(%s) = %q, want empty", tt.mode, text)
			}
		})
	}
}
