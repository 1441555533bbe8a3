package chat

import (
	"errors"
	"fmt"
)

// 业务错误分类，处理层据此映射 HTTP 状态码
var (
	// ErrInvalidMode 未知会话模式
	ErrInvalidMode = errors.New("invalid mode")
	// ErrNoActiveSession 没有活动会话
	ErrNoActiveSession = errors.New("no active session")
	// ErrNoContent 请求中没有可用内容
	ErrNoContent = errors.New("no usable content in request")
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists 会话已存在
	ErrSessionExists = errors.New("session already exists")
)

// PersistenceError 存储写入失败或影响零行
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence failed: %s: no rows affected", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// GatewayError 模型网关调用失败
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway failed: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
