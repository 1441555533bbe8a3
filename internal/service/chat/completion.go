package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinyue/gemini-relay/internal/model"
	"github.com/ashwinyue/gemini-relay/internal/service/types"
)

// allowedImageTypes 内联图片允许的媒体类型及落盘扩展名
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpeg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// Complete 处理一轮补全：内容抽取、附件落盘、网关调用、
// 消息持久化、元数据对账。临时文件在所有退出路径上释放。
func (s *Service) Complete(ctx context.Context, req *types.CompletionRequest) (*types.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return nil, fmt.Errorf("%w: activate a chat first", ErrNoActiveSession)
	}
	chatID := s.activeID

	state, ok := s.cache.get(chatID)
	if !ok {
		// 指针指向缓存中不存在的会话：内部不一致，复位指针
		log.Printf("Chat service: active pointer %s missing from cache, resetting", chatID)
		s.activeID = ""
		return nil, fmt.Errorf("%w: active chat %s missing from cache", ErrSessionNotFound, chatID)
	}

	userMsg, ok := lastUserMessage(req.Messages)
	if !ok {
		return nil, fmt.Errorf("%w: no user message", ErrNoContent)
	}
	text, dataURIs := extractContent(userMsg.Content)

	imagePaths, cleanup := materializeImages(dataURIs)
	defer cleanup()

	if text == "" && len(imagePaths) == 0 {
		return nil, ErrNoContent
	}

	clientMode := string(s.gateway.Mode())
	s.persistMessage(chatID, model.RoleUser, text, model.MessageMeta{
		ClientMode:  clientMode,
		Attachments: len(imagePaths),
	})

	handle, err := s.handleFor(ctx, chatID, state.Metadata)
	if err != nil {
		return nil, &GatewayError{Op: "load chat", Err: err}
	}
	reply, err := s.gateway.Send(ctx, handle, text, imagePaths)
	if err != nil {
		return nil, &GatewayError{Op: "send message", Err: err}
	}

	s.persistMessage(chatID, model.RoleAssistant, reply, model.MessageMeta{
		ClientMode:     clientMode,
		ResponseLength: len(reply),
	})
	s.reconcileMetadata(chatID, handle.Metadata())

	modelName := req.Model
	if modelName == "" {
		modelName = "gemini"
	}
	return &types.CompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   modelName,
		Choices: []types.CompletionChoice{{
			Index:        0,
			Message:      types.ResponseMessage{Role: model.RoleAssistant, Content: reply},
			FinishReason: "stop",
		}},
		ChatID: chatID,
	}, nil
}

// lastUserMessage 取输入序列中最后一条 user 消息
func lastUserMessage(messages []types.ChatMessage) (types.ChatMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i], true
		}
	}
	return types.ChatMessage{}, false
}

// extractContent 抽取消息内容：文本块按序换行拼接，
// 图片块只收集内联 data: 负载，远端引用一律忽略
func extractContent(content types.MessageContent) (string, []string) {
	if content.Parts == nil {
		return content.Text, nil
	}
	var texts []string
	var dataURIs []string
	for _, part := range content.Parts {
		switch part.Type {
		case "text":
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
		case "image_url":
			if part.ImageURL != nil && strings.HasPrefix(part.ImageURL.URL, "data:") {
				dataURIs = append(dataURIs, part.ImageURL.URL)
			}
		}
	}
	return strings.Join(texts, "\n"), dataURIs
}

// materializeImages 将内联图片落盘为临时文件。
// 媒体类型不在允许清单内或负载损坏的图片静默跳过。
// 返回的 cleanup 释放全部已落盘文件。
func materializeImages(dataURIs []string) ([]string, func()) {
	var paths []string
	for _, uri := range dataURIs {
		path, err := materializeImage(uri)
		if err != nil {
			log.Printf("Chat service: skipping image attachment: %v", err)
			continue
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	cleanup := func() {
		for _, path := range paths {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("Chat service: failed to remove temp file %s: %v", path, err)
			}
		}
	}
	return paths, cleanup
}

// materializeImage 解码单个 data URI；类型不被允许时返回空路径且无错误
func materializeImage(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", fmt.Errorf("not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", fmt.Errorf("malformed data uri")
	}
	mediaType, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, "base64") {
		return "", fmt.Errorf("unsupported data uri encoding")
	}

	ext, allowed := allowedImageTypes[strings.ToLower(strings.TrimSpace(mediaType))]
	if !allowed {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}

	f, err := os.CreateTemp("", "attachment-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
