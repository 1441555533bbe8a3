package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/gemini-relay/internal/service/chat"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg})
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Msg: msg})
}

// Conflict 409 错误响应
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, ErrorResponse{Code: 409, Msg: msg})
}

// UnprocessableEntity 422 错误响应
func UnprocessableEntity(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: 422, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: msg})
}

// BadGateway 502 错误响应
func BadGateway(c *gin.Context, msg string) {
	c.JSON(http.StatusBadGateway, ErrorResponse{Code: 502, Msg: msg})
}

// Error 按业务错误分类映射 HTTP 状态码
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var gatewayErr *chat.GatewayError
	var persistErr *chat.PersistenceError
	switch {
	case errors.Is(err, chat.ErrInvalidMode):
		UnprocessableEntity(c, err.Error())
	case errors.Is(err, chat.ErrNoActiveSession), errors.Is(err, chat.ErrNoContent):
		BadRequest(c, err.Error())
	case errors.Is(err, chat.ErrSessionNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, chat.ErrSessionExists):
		Conflict(c, err.Error())
	case errors.As(err, &gatewayErr):
		BadGateway(c, err.Error())
	case errors.As(err, &persistErr):
		InternalServerError(c, err.Error())
	default:
		InternalServerError(c, err.Error())
	}
}
