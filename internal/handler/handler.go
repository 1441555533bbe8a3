package handler

import (
	"github.com/ashwinyue/gemini-relay/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat       *ChatHandler
	Completion *CompletionHandler
	Auth       *AuthHandler
	System     *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:       NewChatHandler(svc),
		Completion: NewCompletionHandler(svc),
		Auth:       NewAuthHandler(svc),
		System:     NewSystemHandler(svc),
	}
}
