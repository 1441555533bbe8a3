// Package types 定义补全接口的线格式类型（OpenAI 兼容）。
package types

import (
	"encoding/json"
	"fmt"
)

// ContentPart 消息内容块，text 或 image_url 二选一
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 图片引用，URL 可为 data: 内联负载
type ImageURL struct {
	URL string `json:"url"`
}

// MessageContent 消息内容，兼容纯字符串与内容块数组两种形式
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// UnmarshalJSON 兼容 "content": "..." 与 "content": [...] 两种编码
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid message content: %w", err)
	}
	c.Parts = parts
	return nil
}

// MarshalJSON 有内容块时编码为数组，否则编码为字符串
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// ChatMessage 补全请求中的单条消息
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// CompletionRequest 补全请求
type CompletionRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	ChatID   string        `json:"chat_id,omitempty"`
	Stream   bool          `json:"stream,omitempty"`
}

// CompletionChoice 补全结果候选
type CompletionChoice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage 补全结果消息
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse 补全响应，chat_id 标记实际服务的会话
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	ChatID  string             `json:"chat_id"`
}
