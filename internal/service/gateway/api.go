package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/gemini-relay/internal/config"
	"github.com/ashwinyue/gemini-relay/internal/model"
)

// APIClient 付费通道：通过 OpenAI 兼容端点访问模型。
// API 端无服务器侧会话，按句柄维护内存中的对话历史。
type APIClient struct {
	chatModel ecomodel.ChatModel
	modelName string
}

// NewAPIClient 创建付费通道客户端，缺少 API key 视为致命错误
func NewAPIClient(ctx context.Context, cfg *config.PaidConfig) (*APIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for paid mode")
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	log.Printf("Gateway: paid client initialized (model: %s)", cfg.Model)
	return &APIClient{chatModel: cm, modelName: cfg.Model}, nil
}

type apiHandle struct {
	mu      sync.Mutex
	md      model.SessionMetadata
	history []*schema.Message
}

func (h *apiHandle) Metadata() model.SessionMetadata {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.md
}

// StartNew 为新会话建立句柄
func (c *APIClient) StartNew(ctx context.Context, chatID string) (Handle, error) {
	return &apiHandle{
		md: model.SessionMetadata{
			ChatID:     chatID,
			SessionID:  chatID,
			ClientMode: string(ClientModePaid),
		},
	}, nil
}

// Load 从持久化元数据恢复句柄。API 端无会话状态，
// 内存历史无法恢复，续接依赖元数据中的轮次计数。
func (c *APIClient) Load(ctx context.Context, md model.SessionMetadata) (Handle, error) {
	md.ClientMode = string(ClientModePaid)
	return &apiHandle{md: md}, nil
}

// Send 发送一轮消息，图片以 data URI 内联在多模态内容块中
func (c *APIClient) Send(ctx context.Context, h Handle, text string, imagePaths []string) (string, error) {
	handle, ok := h.(*apiHandle)
	if !ok {
		return "", fmt.Errorf("handle does not belong to paid client")
	}

	userMsg, err := buildUserMessage(text, imagePaths)
	if err != nil {
		return "", err
	}

	handle.mu.Lock()
	messages := make([]*schema.Message, 0, len(handle.history)+1)
	messages = append(messages, handle.history...)
	messages = append(messages, userMsg)
	handle.mu.Unlock()

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate failed: %w", err)
	}

	handle.mu.Lock()
	handle.history = append(handle.history, userMsg, resp)
	handle.md.Turn++
	handle.mu.Unlock()

	return resp.Content, nil
}

// Close 释放通道资源
func (c *APIClient) Close() {}

func buildUserMessage(text string, imagePaths []string) (*schema.Message, error) {
	if len(imagePaths) == 0 {
		return schema.UserMessage(text), nil
	}

	parts := make([]schema.ChatMessagePart, 0, len(imagePaths)+1)
	if text != "" {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: text,
		})
	}
	for _, path := range imagePaths {
		uri, mimeType, err := encodeImageFile(path)
		if err != nil {
			log.Printf("Gateway: skipping unreadable image %s: %v", path, err)
			continue
		}
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{
				URL:      uri,
				MIMEType: mimeType,
			},
		})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no sendable content")
	}
	return &schema.Message{Role: schema.User, MultiContent: parts}, nil
}

func encodeImageFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	mimeType := mimeTypeByExtension(filepath.Ext(path))
	uri := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return uri, mimeType, nil
}

func mimeTypeByExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}
