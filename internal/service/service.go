package service

import (
	"context"
	"fmt"

	"github.com/ashwinyue/gemini-relay/internal/config"
	"github.com/ashwinyue/gemini-relay/internal/repository"
	"github.com/ashwinyue/gemini-relay/internal/service/auth"
	"github.com/ashwinyue/gemini-relay/internal/service/chat"
	"github.com/ashwinyue/gemini-relay/internal/service/gateway"
)

// Services 服务集合
type Services struct {
	Chat *chat.Service
	Auth *auth.Service

	Config  *config.Config
	Gateway *gateway.Hybrid
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config) (*Services, error) {
	ctx := context.Background()

	gw, err := gateway.NewHybrid(ctx, &cfg.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	chatSvc, err := chat.NewService(repo.Chat, gw)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat service: %w", err)
	}

	return &Services{
		Chat:    chatSvc,
		Auth:    auth.NewService(repo, &cfg.Auth),
		Config:  cfg,
		Gateway: gw,
	}, nil
}
