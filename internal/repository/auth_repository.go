package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/gemini-relay/internal/model"
)

// AuthRepository 认证数据访问
type AuthRepository struct {
	db *gorm.DB
}

// NewAuthRepository 创建认证仓库
func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// CreateUser 创建用户
func (r *AuthRepository) CreateUser(user *model.User) error {
	return r.db.Create(user).Error
}

// GetUserByID 获取用户
func (r *AuthRepository) GetUserByID(id string) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 按用户名获取用户
func (r *AuthRepository) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 按邮箱获取用户
func (r *AuthRepository) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAPIKey 创建 API 密钥
func (r *AuthRepository) CreateAPIKey(key *model.APIKey) error {
	return r.db.Create(key).Error
}

// GetAPIKeyByHash 按哈希获取有效的 API 密钥
func (r *AuthRepository) GetAPIKeyByHash(hash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.Where("key_hash = ? AND is_active = ?", hash, true).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListAPIKeysByUser 列出用户的 API 密钥
func (r *AuthRepository) ListAPIKeysByUser(userID string) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// TouchAPIKey 更新密钥最近使用时间
func (r *AuthRepository) TouchAPIKey(id string) error {
	now := time.Now()
	return r.db.Model(&model.APIKey{}).Where("id = ?", id).Update("last_used", &now).Error
}

// DeleteAPIKey 删除用户的 API 密钥
func (r *AuthRepository) DeleteAPIKey(userID, id string) (bool, error) {
	result := r.db.Delete(&model.APIKey{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
