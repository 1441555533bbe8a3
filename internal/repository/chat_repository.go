package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinyue/gemini-relay/internal/model"
)

// SessionState 缓存水合所需的会话状态切片
type SessionState struct {
	Metadata   string
	Mode       string
	PromptSent bool
}

// ChatRepository 聊天数据访问
//
// 写操作返回 (ok, err)：ok 表示确有一行受影响，err 表示存储层故障。
// 主键冲突、目标行不存在等按 ok=false 报告，不算错误。
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建聊天仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession 创建会话，主键冲突返回 false
func (r *ChatRepository) CreateSession(session *model.ChatSession) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(session)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetSessionByID 获取会话
func (r *ChatRepository) GetSessionByID(chatID string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("chat_id = ?", chatID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions 按最近更新时间列出会话
func (r *ChatRepository) ListSessions() ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	err := r.db.Order("last_updated DESC").Find(&sessions).Error
	return sessions, err
}

// GetAllForHydration 读取全部会话状态，用于启动时缓存水合
func (r *ChatRepository) GetAllForHydration() (map[string]SessionState, error) {
	var sessions []model.ChatSession
	if err := r.db.Find(&sessions).Error; err != nil {
		return nil, err
	}
	states := make(map[string]SessionState, len(sessions))
	for _, s := range sessions {
		states[s.ChatID] = SessionState{
			Metadata:   s.Metadata,
			Mode:       s.Mode,
			PromptSent: s.PromptSent,
		}
	}
	return states, nil
}

// UpdateMetadata 更新会话元数据
func (r *ChatRepository) UpdateMetadata(chatID, metadata string) (bool, error) {
	result := r.db.Model(&model.ChatSession{}).
		Where("chat_id = ?", chatID).
		Update("metadata", metadata)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateDescription 更新会话描述
func (r *ChatRepository) UpdateDescription(chatID, description string) (bool, error) {
	result := r.db.Model(&model.ChatSession{}).
		Where("chat_id = ?", chatID).
		Update("description", description)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateModeAndResetFlag 切换模式并复位提示词标记，单条原子 UPDATE
func (r *ChatRepository) UpdateModeAndResetFlag(chatID, mode string) (bool, error) {
	result := r.db.Model(&model.ChatSession{}).
		Where("chat_id = ?", chatID).
		Updates(map[string]interface{}{"mode": mode, "prompt_sent": false})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkPromptSent 标记提示词已送达
func (r *ChatRepository) MarkPromptSent(chatID string) (bool, error) {
	result := r.db.Model(&model.ChatSession{}).
		Where("chat_id = ?", chatID).
		Update("prompt_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteSession 删除会话及其全部消息，同一事务
func (r *ChatRepository) DeleteSession(chatID string) (bool, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ChatMessage{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.ChatSession{}, "chat_id = ?", chatID)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

// CreateMessage 追加消息
func (r *ChatRepository) CreateMessage(msg *model.ChatMessage) (bool, error) {
	result := r.db.Create(msg)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetMessagesByChatID 按时间顺序获取会话消息
func (r *ChatRepository) GetMessagesByChatID(chatID string) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.Where("chat_id = ?", chatID).Order("timestamp ASC").Find(&messages).Error
	return messages, err
}

// CountMessagesByChatID 统计会话消息数
func (r *ChatRepository) CountMessagesByChatID(chatID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).Where("chat_id = ?", chatID).Count(&count).Error
	return count, err
}
