package chat

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ashwinyue/gemini-relay/internal/model"
	"github.com/ashwinyue/gemini-relay/internal/service/types"
	"github.com/ashwinyue/gemini-relay/internal/testutil"
)

func activeService(t *testing.T, store *mockStore, gw *mockGateway) *Service {
	t.Helper()
	store.seedSession("chat-1", model.ModeDefault, false)
	svc := newTestService(t, store, gw)
	if err := svc.SetActive(context.Background(), "chat-1"); err != nil {
		t.Fatalf("SetActive() unexpected error: %v", err)
	}
	return svc
}

func TestCompleteNoActiveSession(t *testing.T) {
	svc := newTestService(t, newMockStore(), newMockGateway())

	_, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{testutil.UserText("hello")},
	})
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("Complete() error = %v, want ErrNoActiveSession", err)
	}
}

func TestCompletePointerCorruptionResetsPointer(t *testing.T) {
	svc := newTestService(t, newMockStore(), newMockGateway())
	svc.activeID = "ghost" // 指针指向缓存中不存在的会话

	_, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{testutil.UserText("hello")},
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Complete() error = %v, want ErrSessionNotFound", err)
	}
	if _, ok := svc.ActiveChatID(); ok {
		t.Error("active pointer not reset after consistency fault")
	}
}

func TestCompleteNoUserMessage(t *testing.T) {
	svc := activeService(t, newMockStore(), newMockGateway())

	_, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{{Role: "system", Content: types.MessageContent{Text: "be nice"}}},
	})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("Complete() error = %v, want ErrNoContent", err)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	tests := []struct {
		name string
		msg  types.ChatMessage
	}{
		{name: "empty text", msg: testutil.UserText("")},
		{name: "empty blocks", msg: testutil.UserParts()},
		{
			name: "only unsupported image",
			msg:  testutil.UserParts(testutil.ImagePart(testutil.DataURI("image/bmp", []byte{0x42, 0x4d}))),
		},
		{
			name: "only remote image reference",
			msg:  testutil.UserParts(testutil.ImagePart("https://example.com/cat.png")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := activeService(t, newMockStore(), newMockGateway())

			_, err := svc.Complete(context.Background(), &types.CompletionRequest{
				Messages: []types.ChatMessage{tt.msg},
			})
			if !errors.Is(err, ErrNoContent) {
				t.Fatalf("Complete() error = %v, want ErrNoContent", err)
			}
		})
	}
}

func TestCompleteImageOnlySucceeds(t *testing.T) {
	store := newMockStore()
	gw := newMockGateway()
	svc := activeService(t, store, gw)

	resp, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{
			testutil.UserParts(testutil.ImagePart(testutil.PNGDataURI())),
		},
	})
	if err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}
	if resp.ChatID != "chat-1" {
		t.Errorf("ChatID = %s, want chat-1", resp.ChatID)
	}

	if len(gw.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(gw.sends))
	}
	if len(gw.sends[0].images) != 1 {
		t.Fatalf("images sent = %d, want 1", len(gw.sends[0].images))
	}

	// 临时文件在调用结束后释放
	if _, err := os.Stat(gw.sends[0].images[0]); !os.IsNotExist(err) {
		t.Errorf("temp file %s still exists after completion", gw.sends[0].images[0])
	}

	userMsgs := store.messagesByRole("chat-1", model.RoleUser)
	if len(userMsgs) != 1 {
		t.Fatalf("user messages = %d, want 1", len(userMsgs))
	}
	if meta := messageMeta(t, userMsgs[0]); meta.Attachments != 1 {
		t.Errorf("user message attachments = %d, want 1", meta.Attachments)
	}
}

func TestCompleteFullTurn(t *testing.T) {
	store := newMockStore()
	store.seedSession("chat-1", model.ModeCode, false)
	gw := newMockGateway()
	gw.reply = "try a nil check"
	svc := newTestService(t, store, gw)

	if err := svc.SetActive(context.Background(), "chat-1"); err != nil {
		t.Fatalf("SetActive() unexpected error: %v", err)
	}
	metadataBefore := store.sessions["chat-1"].Metadata

	resp, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{testutil.UserText("fix bug")},
	})
	if err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}

	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "try a nil check" {
		t.Errorf("response choices = %+v, want the gateway reply", resp.Choices)
	}
	if resp.ChatID != "chat-1" {
		t.Errorf("ChatID = %s, want chat-1", resp.ChatID)
	}

	// 一轮补全追加 user、assistant 两条消息（激活时已有一条 system）
	if got := len(store.messagesByRole("chat-1", model.RoleUser)); got != 1 {
		t.Errorf("user messages = %d, want 1", got)
	}
	assistantMsgs := store.messagesByRole("chat-1", model.RoleAssistant)
	if len(assistantMsgs) != 1 {
		t.Fatalf("assistant messages = %d, want 1", len(assistantMsgs))
	}
	if assistantMsgs[0].Content != "try a nil check" {
		t.Errorf("assistant content = %q, want the gateway reply", assistantMsgs[0].Content)
	}
	if meta := messageMeta(t, assistantMsgs[0]); meta.ResponseLength != len("try a nil check") {
		t.Errorf("assistant response_length = %d, want %d", meta.ResponseLength, len("try a nil check"))
	}

	// 续接元数据在成功一轮后必然变化
	if store.sessions["chat-1"].Metadata == metadataBefore {
		t.Error("session metadata unchanged after completed turn")
	}
}

func TestCompleteGatewayFailureStillCleansUp(t *testing.T) {
	store := newMockStore()
	gw := newMockGateway()
	svc := activeService(t, store, gw)
	gw.sendErr = errors.New("provider timeout")

	_, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{
			testutil.UserParts(
				testutil.TextPart("describe this"),
				testutil.ImagePart(testutil.PNGDataURI()),
			),
		},
	})

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("Complete() error = %v, want GatewayError", err)
	}

	// 发送失败时用户消息已尽力持久化，助手消息不应出现
	if got := len(store.messagesByRole("chat-1", model.RoleUser)); got != 1 {
		t.Errorf("user messages = %d, want 1", got)
	}
	if got := len(store.messagesByRole("chat-1", model.RoleAssistant)); got != 0 {
		t.Errorf("assistant messages = %d, want 0", got)
	}
}

func TestCompletePersistenceFailureIsBestEffort(t *testing.T) {
	store := newMockStore()
	store.createMsgErr = errors.New("disk full")
	gw := newMockGateway()
	svc := activeService(t, store, gw)

	resp, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{testutil.UserText("hello")},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v, want nil despite message persistence failure", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices = %d, want 1", len(resp.Choices))
	}
}

func TestCompleteMetadataWriteFailureKeepsCacheStale(t *testing.T) {
	store := newMockStore()
	gw := newMockGateway()
	svc := activeService(t, store, gw)

	state, _ := svc.cache.get("chat-1")
	turnBefore := state.Metadata.Turn

	store.updateMetaNoop = true
	if _, err := svc.Complete(context.Background(), &types.CompletionRequest{
		Messages: []types.ChatMessage{testutil.UserText("hello")},
	}); err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}

	// 存储写入失败时缓存保持旧值，不镜像未提交的状态
	state, _ = svc.cache.get("chat-1")
	if state.Metadata.Turn != turnBefore {
		t.Errorf("cache turn = %d after failed metadata write, want %d", state.Metadata.Turn, turnBefore)
	}
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name       string
		content    types.MessageContent
		wantText   string
		wantImages int
	}{
		{
			name:     "plain string content",
			content:  types.MessageContent{Text: "hello"},
			wantText: "hello",
		},
		{
			name: "text blocks joined in order",
			content: types.MessageContent{Parts: []types.ContentPart{
				testutil.TextPart("first"),
				testutil.TextPart("second"),
			}},
			wantText: "first\nsecond",
		},
		{
			name: "mixed text and inline image",
			content: types.MessageContent{Parts: []types.ContentPart{
				testutil.TextPart("look"),
				testutil.ImagePart("data:image/png;base64,AAAA"),
			}},
			wantText:   "look",
			wantImages: 1,
		},
		{
			name: "remote image ignored",
			content: types.MessageContent{Parts: []types.ContentPart{
				testutil.ImagePart("https://example.com/a.png"),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, images := extractContent(tt.content)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if len(images) != tt.wantImages {
				t.Errorf("images = %d, want %d", len(images), tt.wantImages)
			}
		})
	}
}

func TestMaterializeImage(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantPath bool
		wantErr  bool
	}{
		{name: "valid png", uri: testutil.PNGDataURI(), wantPath: true},
		{name: "disallowed type skipped silently", uri: testutil.DataURI("image/bmp", []byte{1, 2})},
		{name: "svg not allowed", uri: testutil.DataURI("image/svg+xml", []byte("<svg/>"))},
		{name: "broken base64", uri: "data:image/png;base64,!!!", wantErr: true},
		{name: "not a data uri", uri: "https://example.com/a.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := materializeImage(tt.uri)
			if path != "" {
				defer os.Remove(path)
			}

			if tt.wantErr {
				if err == nil {
					t.Fatal("materializeImage() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("materializeImage() unexpected error: %v", err)
			}
			if tt.wantPath && path == "" {
				t.Error("materializeImage() returned empty path for allowed type")
			}
			if !tt.wantPath && path != "" {
				t.Errorf("materializeImage() = %q for disallowed type, want empty", path)
			}
		})
	}
}
