package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/gemini-relay/internal/service"
	"github.com/ashwinyue/gemini-relay/internal/service/types"
)

// CompletionHandler 补全处理器
type CompletionHandler struct {
	svc *service.Services
}

// NewCompletionHandler 创建补全处理器
func NewCompletionHandler(svc *service.Services) *CompletionHandler {
	return &CompletionHandler{svc: svc}
}

// CreateCompletion 处理一轮补全
// POST /api/v1/chats/completions
// 请求携带 chat_id 时先切换活动会话，再执行补全
func (h *CompletionHandler) CreateCompletion(c *gin.Context) {
	var req types.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if req.ChatID != "" {
		if err := h.svc.Chat.SetActive(ctx, req.ChatID); err != nil {
			Error(c, err)
			return
		}
	}

	resp, err := h.svc.Chat.Complete(ctx, &req)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(200, resp)
}
