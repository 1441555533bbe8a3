// Package gateway 封装对模型提供方的两种接入通道：
// 基于 cookie 会话的免费通道与基于 API key 的付费通道。
package gateway

import (
	"context"

	"github.com/ashwinyue/gemini-relay/internal/model"
)

// ClientMode 接入通道
type ClientMode string

const (
	ClientModeFree ClientMode = "free"
	ClientModePaid ClientMode = "paid"
)

// ParseClientMode 解析通道名，未知返回 false
func ParseClientMode(s string) (ClientMode, bool) {
	switch ClientMode(s) {
	case ClientModeFree, ClientModePaid:
		return ClientMode(s), true
	}
	return "", false
}

// Handle 一个活动会话的句柄，持有续接状态
type Handle interface {
	// Metadata 返回当前续接元数据，每次成功发送后都会变化
	Metadata() model.SessionMetadata
}

// Client 单通道客户端契约
type Client interface {
	// StartNew 为新会话建立句柄
	StartNew(ctx context.Context, chatID string) (Handle, error)
	// Load 从持久化元数据恢复句柄
	Load(ctx context.Context, md model.SessionMetadata) (Handle, error)
	// Send 发送文本与本地图片文件，返回模型回复文本
	Send(ctx context.Context, h Handle, text string, imagePaths []string) (string, error)
	// Close 释放通道资源
	Close()
}
