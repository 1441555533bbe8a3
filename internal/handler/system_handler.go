package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/gemini-relay/internal/service"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "ok",
		"version":     h.svc.Config.App.Version,
		"client_mode": h.svc.Chat.ClientMode(),
	})
}
