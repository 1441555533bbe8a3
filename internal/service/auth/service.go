package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/gemini-relay/internal/config"
	"github.com/ashwinyue/gemini-relay/internal/model"
	"github.com/ashwinyue/gemini-relay/internal/repository"
)

// APIKeyPrefix API 密钥明文前缀
const APIKeyPrefix = "gemini_"

// Service 认证服务
type Service struct {
	repo        *repository.Repositories
	jwtSecret   string
	tokenExpiry time.Duration
}

// NewService 创建认证服务。未配置 JWT 密钥时生成随机密钥，
// 重启后已签发的令牌全部失效。
func NewService(repo *repository.Repositories, cfg *config.AuthConfig) *Service {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		randomBytes := make([]byte, 32)
		if _, err := rand.Read(randomBytes); err != nil {
			panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
		}
		secret = base64.StdEncoding.EncodeToString(randomBytes)
		log.Println("Warning: no JWT secret configured, generated an ephemeral one")
	}

	expiry := time.Duration(cfg.TokenExpiry) * time.Minute
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{repo: repo, jwtSecret: secret, tokenExpiry: expiry}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// Register 注册用户
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	// 检查用户名和邮箱是否已被占用
	if existing, _ := s.repo.Auth.GetUserByUsername(req.Username); existing != nil {
		return nil, errors.New("user with this username already exists")
	}
	if existing, _ := s.repo.Auth.GetUserByEmail(req.Email); existing != nil {
		return nil, errors.New("user with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}
	if err := s.repo.Auth.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login 用户登录
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.Auth.GetUserByUsername(req.Username)
	if err != nil || user == nil {
		return &LoginResponse{Success: false, Message: "Invalid username or password"}, nil
	}
	if !user.IsActive {
		return &LoginResponse{Success: false, Message: "Account is disabled"}, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return &LoginResponse{Success: false, Message: "Invalid username or password"}, nil
	}

	token, err := s.generateToken(user)
	if err != nil {
		return &LoginResponse{Success: false, Message: "Login failed"}, err
	}
	return &LoginResponse{Success: true, Message: "Login successful", User: user, Token: token}, nil
}

// ValidateToken 验证访问令牌，返回对应用户
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user ID in token")
	}

	user, err := s.repo.Auth.GetUserByID(userID)
	if err != nil || user == nil {
		return nil, errors.New("user not found")
	}
	if !user.IsActive {
		return nil, errors.New("account is disabled")
	}
	return user, nil
}

// CreateAPIKeyResponse 密钥创建响应，明文只在此处返回一次
type CreateAPIKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAPIKey 为用户签发 API 密钥，库中只保留哈希
func (s *Service) CreateAPIKey(ctx context.Context, userID, name string) (*CreateAPIKeyResponse, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	plaintext := APIKeyPrefix + hex.EncodeToString(randomBytes)

	key := &model.APIKey{
		ID:       uuid.New().String(),
		UserID:   userID,
		Name:     name,
		KeyHash:  hashAPIKey(plaintext),
		IsActive: true,
	}
	if err := s.repo.Auth.CreateAPIKey(key); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}
	return &CreateAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plaintext,
		CreatedAt: key.CreatedAt,
	}, nil
}

// VerifyAPIKey 校验 API 密钥并更新最近使用时间
func (s *Service) VerifyAPIKey(ctx context.Context, plaintext string) (*model.User, error) {
	if !strings.HasPrefix(plaintext, APIKeyPrefix) {
		return nil, errors.New("invalid api key")
	}
	key, err := s.repo.Auth.GetAPIKeyByHash(hashAPIKey(plaintext))
	if err != nil || key == nil {
		return nil, errors.New("invalid api key")
	}

	user, err := s.repo.Auth.GetUserByID(key.UserID)
	if err != nil || user == nil || !user.IsActive {
		return nil, errors.New("invalid api key")
	}

	if err := s.repo.Auth.TouchAPIKey(key.ID); err != nil {
		log.Printf("Auth service: failed to touch api key %s: %v", key.ID, err)
	}
	return user, nil
}

// ListAPIKeys 列出用户的 API 密钥
func (s *Service) ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return s.repo.Auth.ListAPIKeysByUser(userID)
}

// RevokeAPIKey 撤销密钥，返回 false 表示密钥不存在或不属于该用户
func (s *Service) RevokeAPIKey(ctx context.Context, userID, keyID string) (bool, error) {
	return s.repo.Auth.DeleteAPIKey(userID, keyID)
}

func (s *Service) generateToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.tokenExpiry).Unix(),
		"iat":     time.Now().Unix(),
		"type":    "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func hashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
