package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/gemini-relay/internal/service"
	"github.com/ashwinyue/gemini-relay/internal/service/chat"
)

// ChatHandler 会话处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建会话处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateChat 创建会话
// POST /api/v1/chats
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req chat.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.Chat.CreateChat(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, session)
}

// ListChats 列出会话
// GET /api/v1/chats
func (h *ChatHandler) ListChats(c *gin.Context) {
	sessions, err := h.svc.Chat.ListChats()
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, sessions)
}

// GetChat 获取会话
// GET /api/v1/chats/:id
func (h *ChatHandler) GetChat(c *gin.Context) {
	session, err := h.svc.Chat.GetChat(c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, session)
}

// DeleteChat 删除会话
// DELETE /api/v1/chats/:id
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	if err := h.svc.Chat.DeleteChat(c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

// UpdateModeRequest 模式切换请求
type UpdateModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// UpdateChatMode 切换会话模式
// PUT /api/v1/chats/:id/mode
func (h *ChatHandler) UpdateChatMode(c *gin.Context) {
	var req UpdateModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chatID := c.Param("id")
	if err := h.svc.Chat.UpdateChatMode(c.Request.Context(), chatID, req.Mode); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"chat_id": chatID, "mode": req.Mode})
}

// GetActive 获取活动会话
// GET /api/v1/chats/active
func (h *ChatHandler) GetActive(c *gin.Context) {
	chatID, ok := h.svc.Chat.ActiveChatID()
	if !ok {
		Success(c, gin.H{"active_chat_id": nil})
		return
	}
	Success(c, gin.H{"active_chat_id": chatID})
}

// SetActiveRequest 活动会话切换请求，chat_id 为空表示清除
type SetActiveRequest struct {
	ChatID string `json:"chat_id"`
}

// SetActive 切换活动会话
// POST /api/v1/chats/active
func (h *ChatHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Chat.SetActive(c.Request.Context(), req.ChatID); err != nil {
		Error(c, err)
		return
	}
	if req.ChatID == "" {
		Success(c, gin.H{"active_chat_id": nil})
		return
	}
	Success(c, gin.H{"active_chat_id": req.ChatID})
}

// GetMessages 获取会话消息
// GET /api/v1/chats/:id/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	chatID := c.Param("id")
	messages, err := h.svc.Chat.GetMessages(chatID)
	if err != nil {
		Error(c, err)
		return
	}

	count, err := h.svc.Chat.CountMessages(chatID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"messages": messages, "total": count})
}

// GetClientMode 获取网关通道
// GET /api/v1/chats/client-mode
func (h *ChatHandler) GetClientMode(c *gin.Context) {
	Success(c, gin.H{"client_mode": h.svc.Chat.ClientMode()})
}

// SetClientModeRequest 网关通道切换请求
type SetClientModeRequest struct {
	ClientMode string `json:"client_mode" binding:"required"`
}

// SetClientMode 切换网关通道
// POST /api/v1/chats/client-mode
func (h *ChatHandler) SetClientMode(c *gin.Context) {
	var req SetClientModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Chat.SetClientMode(req.ClientMode); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"client_mode": h.svc.Chat.ClientMode()})
}
