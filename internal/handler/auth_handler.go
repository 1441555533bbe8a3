package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/gemini-relay/internal/middleware"
	"github.com/ashwinyue/gemini-relay/internal/service"
	"github.com/ashwinyue/gemini-relay/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register 注册用户
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, user)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}
	if !resp.Success {
		Unauthorized(c, resp.Message)
		return
	}
	Success(c, resp)
}

// Me 当前用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "not authenticated")
		return
	}
	Success(c, user)
}

// CreateAPIKeyRequest 密钥创建请求
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateAPIKey 签发 API 密钥
// POST /api/v1/auth/api-keys
func (h *AuthHandler) CreateAPIKey(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "not authenticated")
		return
	}

	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Auth.CreateAPIKey(c.Request.Context(), user.ID, req.Name)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, resp)
}

// ListAPIKeys 列出 API 密钥
// GET /api/v1/auth/api-keys
func (h *AuthHandler) ListAPIKeys(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "not authenticated")
		return
	}

	keys, err := h.svc.Auth.ListAPIKeys(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, keys)
}

// RevokeAPIKey 撤销 API 密钥
// DELETE /api/v1/auth/api-keys/:id
func (h *AuthHandler) RevokeAPIKey(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "not authenticated")
		return
	}

	revoked, err := h.svc.Auth.RevokeAPIKey(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	if !revoked {
		NotFound(c, "api key not found")
		return
	}
	NoContent(c)
}
