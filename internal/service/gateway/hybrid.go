package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ashwinyue/gemini-relay/internal/config"
	"github.com/ashwinyue/gemini-relay/internal/model"
)

// Hybrid 双通道网关，运行期可切换
type Hybrid struct {
	mu     sync.Mutex
	cfg    *config.GeminiConfig
	mode   ClientMode
	client Client
}

// NewHybrid 按配置初始化网关
func NewHybrid(ctx context.Context, cfg *config.GeminiConfig) (*Hybrid, error) {
	mode, ok := ParseClientMode(cfg.ClientMode)
	if !ok {
		return nil, fmt.Errorf("unknown client mode: %q", cfg.ClientMode)
	}
	client, err := newClient(ctx, mode, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", mode, err)
	}
	return &Hybrid{cfg: cfg, mode: mode, client: client}, nil
}

func newClient(ctx context.Context, mode ClientMode, cfg *config.GeminiConfig) (Client, error) {
	switch mode {
	case ClientModePaid:
		return NewAPIClient(ctx, &cfg.Paid)
	default:
		return NewWebClient(ctx, &cfg.Free)
	}
}

// Mode 当前通道
func (g *Hybrid) Mode() ClientMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Switch 切换通道。旧通道的全部活动句柄随之失效，
// 调用方需要自行丢弃缓存的句柄并从持久化元数据重新加载。
func (g *Hybrid) Switch(mode ClientMode) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if mode == g.mode {
		return true, nil
	}

	client, err := newClient(context.Background(), mode, g.cfg)
	if err != nil {
		log.Printf("Gateway: failed to switch to %s mode: %v", mode, err)
		return false, fmt.Errorf("failed to switch to %s mode: %w", mode, err)
	}

	g.client.Close()
	g.client = client
	g.mode = mode
	log.Printf("Gateway: switched to %s mode", mode)
	return true, nil
}

// StartNew 为新会话建立句柄
func (g *Hybrid) StartNew(ctx context.Context, chatID string) (Handle, error) {
	return g.current().StartNew(ctx, chatID)
}

// Load 从持久化元数据恢复句柄
func (g *Hybrid) Load(ctx context.Context, md model.SessionMetadata) (Handle, error) {
	return g.current().Load(ctx, md)
}

// Send 发送一轮消息
func (g *Hybrid) Send(ctx context.Context, h Handle, text string, imagePaths []string) (string, error) {
	return g.current().Send(ctx, h, text, imagePaths)
}

// Close 释放当前通道
func (g *Hybrid) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client.Close()
}

func (g *Hybrid) current() Client {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client
}
