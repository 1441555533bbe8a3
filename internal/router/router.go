package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/gemini-relay/internal/handler"
	"github.com/ashwinyue/gemini-relay/internal/middleware"
	"github.com/ashwinyue/gemini-relay/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Auth 认证（注册登录无需凭据）
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)

			authed := authGroup.Group("")
			authed.Use(middleware.RequireAuth(svc))
			{
				authed.GET("/me", h.Auth.Me)
				authed.POST("/api-keys", h.Auth.CreateAPIKey)
				authed.GET("/api-keys", h.Auth.ListAPIKeys)
				authed.DELETE("/api-keys/:id", h.Auth.RevokeAPIKey)
			}
		}

		// Chat 会话
		chats := v1.Group("/chats")
		chats.Use(middleware.RequireAuth(svc))
		{
			chats.POST("", h.Chat.CreateChat)
			chats.GET("", h.Chat.ListChats)
			chats.GET("/active", h.Chat.GetActive)
			chats.POST("/active", h.Chat.SetActive)
			chats.GET("/client-mode", h.Chat.GetClientMode)
			chats.POST("/client-mode", h.Chat.SetClientMode)
			chats.POST("/completions", h.Completion.CreateCompletion)
			chats.GET("/:id", h.Chat.GetChat)
			chats.DELETE("/:id", h.Chat.DeleteChat)
			chats.PUT("/:id/mode", h.Chat.UpdateChatMode)
			chats.GET("/:id/messages", h.Chat.GetMessages)
		}
	}

	return r
}
