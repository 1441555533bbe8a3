package model

import (
	"encoding/json"
	"time"
)

// Mode 会话模式（固定枚举）
type Mode string

const (
	ModeDefault   Mode = "Default"
	ModeCode      Mode = "Code"
	ModeArchitect Mode = "Architect"
	ModeDebug     Mode = "Debug"
	ModeAsk       Mode = "Ask"
)

// AllModes 所有合法模式
var AllModes = []Mode{ModeDefault, ModeCode, ModeArchitect, ModeDebug, ModeAsk}

// ParseMode 解析模式字符串，未知模式返回 false
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeDefault, ModeCode, ModeArchitect, ModeDebug, ModeAsk:
		return Mode(s), true
	}
	return "", false
}

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// SessionMetadata 会话续接元数据（提供方相关的不透明续接令牌）
type SessionMetadata struct {
	ChatID         string `json:"chat_id"`
	SessionID      string `json:"session_id"`
	ClientMode     string `json:"client_mode"`
	ConversationID string `json:"conversation_id,omitempty"`
	ResponseID     string `json:"response_id,omitempty"`
	ChoiceID       string `json:"choice_id,omitempty"`
	Turn           int    `json:"turn"`
}

// ChatSession 聊天会话
type ChatSession struct {
	ChatID      string        `gorm:"primaryKey;size:36" json:"chat_id"`
	Metadata    string        `gorm:"type:text;not null" json:"-"`
	Description string        `gorm:"size:255" json:"description"`
	Mode        string        `gorm:"size:20;default:Default" json:"mode"`
	PromptSent  bool          `gorm:"default:false;not null" json:"prompt_sent"`
	LastUpdated time.Time     `gorm:"autoUpdateTime" json:"last_updated"`
	Messages    []ChatMessage `gorm:"foreignKey:ChatID;references:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

// SetMetadata 序列化并写入元数据
func (s *ChatSession) SetMetadata(md SessionMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return err
	}
	s.Metadata = string(data)
	return nil
}

// MetadataValue 反序列化元数据
func (s *ChatSession) MetadataValue() (SessionMetadata, error) {
	var md SessionMetadata
	err := json.Unmarshal([]byte(s.Metadata), &md)
	return md, err
}

// ChatMessage 聊天消息（只追加，不可变）
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string    `gorm:"index;size:36;not null" json:"chat_id"`
	Role      string    `gorm:"size:20;index" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
}

// MessageMeta 消息结构化元数据
type MessageMeta struct {
	Type           string `json:"type,omitempty"`
	Mode           string `json:"mode,omitempty"`
	ClientMode     string `json:"client_mode,omitempty"`
	Attachments    int    `json:"attachments,omitempty"`
	ResponseLength int    `json:"response_length,omitempty"`
}

// Encode 序列化为 JSON 字符串
func (m MessageMeta) Encode() string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "sessions"
}

func (ChatMessage) TableName() string {
	return "messages"
}
