// Package chat 实现会话状态同步与提示词投递的编排核心：
// 进程内缓存与持久存储的一致性、单一活动会话指针、
// 以及“每次模式激活至多投递一次”系统提示词的状态机。
package chat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinyue/gemini-relay/internal/model"
	"github.com/ashwinyue/gemini-relay/internal/repository"
	"github.com/ashwinyue/gemini-relay/internal/service/gateway"
)

// Store 会话持久化契约，由 repository.ChatRepository 实现
type Store interface {
	CreateSession(session *model.ChatSession) (bool, error)
	GetSessionByID(chatID string) (*model.ChatSession, error)
	ListSessions() ([]*model.ChatSession, error)
	GetAllForHydration() (map[string]repository.SessionState, error)
	UpdateMetadata(chatID, metadata string) (bool, error)
	UpdateDescription(chatID, description string) (bool, error)
	UpdateModeAndResetFlag(chatID, mode string) (bool, error)
	MarkPromptSent(chatID string) (bool, error)
	DeleteSession(chatID string) (bool, error)
	CreateMessage(msg *model.ChatMessage) (bool, error)
	GetMessagesByChatID(chatID string) ([]*model.ChatMessage, error)
	CountMessagesByChatID(chatID string) (int64, error)
}

// Gateway 模型网关契约，由 gateway.Hybrid 实现
type Gateway interface {
	StartNew(ctx context.Context, chatID string) (gateway.Handle, error)
	Load(ctx context.Context, md model.SessionMetadata) (gateway.Handle, error)
	Send(ctx context.Context, h gateway.Handle, text string, imagePaths []string) (string, error)
	Switch(mode gateway.ClientMode) (bool, error)
	Mode() gateway.ClientMode
}

// Service 会话编排服务。
// 一把互斥锁串行化所有会话变更，保证每次调用内
// 存储写入先于对应的缓存镜像。
type Service struct {
	mu       sync.Mutex
	store    Store
	gateway  Gateway
	cache    *sessionCache
	activeID string
	handles  map[string]gateway.Handle
}

// NewService 创建编排服务并整体水合缓存
func NewService(store Store, gw Gateway) (*Service, error) {
	s := &Service{
		store:   store,
		gateway: gw,
		cache:   newSessionCache(),
		handles: make(map[string]gateway.Handle),
	}
	if err := s.hydrate(); err != nil {
		return nil, fmt.Errorf("failed to hydrate session cache: %w", err)
	}
	return s, nil
}

func (s *Service) hydrate() error {
	states, err := s.store.GetAllForHydration()
	if err != nil {
		return err
	}
	for chatID, state := range states {
		session := &model.ChatSession{ChatID: chatID, Metadata: state.Metadata}
		md, err := session.MetadataValue()
		if err != nil {
			log.Printf("Warning: chat %s has unreadable metadata, skipping: %v", chatID, err)
			continue
		}
		mode, ok := model.ParseMode(state.Mode)
		if !ok {
			log.Printf("Warning: chat %s has unknown mode %q, skipping", chatID, state.Mode)
			continue
		}
		s.cache.put(chatID, &sessionState{
			Metadata:   md,
			Mode:       mode,
			PromptSent: state.PromptSent,
		})
	}
	log.Printf("Chat service: hydrated %d sessions", s.cache.len())
	return nil
}

// CreateChatRequest 创建会话请求
type CreateChatRequest struct {
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

// CreateChat 创建会话。新会话 prompt_sent=false，
// 提示词在首次激活时才投递。
func (s *Service) CreateChat(ctx context.Context, req *CreateChatRequest) (*model.ChatSession, error) {
	modeStr := req.Mode
	if modeStr == "" {
		modeStr = string(model.ModeDefault)
	}
	mode, ok := model.ParseMode(modeStr)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chatID := uuid.New().String()
	handle, err := s.gateway.StartNew(ctx, chatID)
	if err != nil {
		return nil, &GatewayError{Op: "start new chat", Err: err}
	}
	md := handle.Metadata()

	session := &model.ChatSession{
		ChatID:      chatID,
		Description: req.Description,
		Mode:        string(mode),
		PromptSent:  false,
		LastUpdated: time.Now(),
	}
	if err := session.SetMetadata(md); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	created, err := s.store.CreateSession(session)
	if err != nil {
		return nil, &PersistenceError{Op: "create session", Err: err}
	}
	if !created {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, chatID)
	}

	s.cache.put(chatID, &sessionState{Metadata: md, Mode: mode, PromptSent: false})
	s.handles[chatID] = handle
	log.Printf("Chat service: created chat %s (mode: %s)", chatID, mode)
	return session, nil
}

// GetChat 获取会话
func (s *Service) GetChat(chatID string) (*model.ChatSession, error) {
	session, err := s.store.GetSessionByID(chatID)
	if err != nil {
		return nil, &PersistenceError{Op: "get session", Err: err}
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, chatID)
	}
	return session, nil
}

// ListChats 按最近更新时间列出会话
func (s *Service) ListChats() ([]*model.ChatSession, error) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		return nil, &PersistenceError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// ActiveChatID 当前活动会话 id，无活动会话返回 false
func (s *Service) ActiveChatID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID, s.activeID != ""
}

// SetActive 切换活动会话。chatID 为空时仅清除指针。
// 激活时若当前模式的提示词尚未投递，同步投递一次；
// 投递失败不阻止激活，标记保持 false 供下次重试。
func (s *Service) SetActive(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chatID == "" {
		s.activeID = ""
		log.Println("Chat service: active chat cleared")
		return nil
	}

	if _, ok := s.cache.get(chatID); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, chatID)
	}

	s.sendPromptIfNeeded(ctx, chatID)
	s.activeID = chatID
	log.Printf("Chat service: active chat set to %s", chatID)
	return nil
}

// UpdateChatMode 切换会话模式：校验、原子存储更新、缓存镜像；
// 会话处于活动状态时同步重投新模式的提示词。
func (s *Service) UpdateChatMode(ctx context.Context, chatID, newMode string) error {
	mode, ok := model.ParseMode(newMode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, newMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.get(chatID); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, chatID)
	}

	updated, err := s.store.UpdateModeAndResetFlag(chatID, string(mode))
	if err != nil {
		return &PersistenceError{Op: "update mode", Err: err}
	}
	if !updated {
		return &PersistenceError{Op: "update mode"}
	}
	s.cache.setMode(chatID, mode, false)
	log.Printf("Chat service: chat %s mode changed to %s", chatID, mode)

	if s.activeID == chatID {
		s.sendPromptIfNeeded(ctx, chatID)
	}
	return nil
}

// DeleteChat 删除会话及其消息；若该会话处于活动状态，清除指针
func (s *Service) DeleteChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.store.DeleteSession(chatID)
	if err != nil {
		return &PersistenceError{Op: "delete session", Err: err}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, chatID)
	}

	s.cache.remove(chatID)
	delete(s.handles, chatID)
	if s.activeID == chatID {
		s.activeID = ""
	}
	log.Printf("Chat service: deleted chat %s", chatID)
	return nil
}

// GetMessages 按时间顺序获取会话消息
func (s *Service) GetMessages(chatID string) ([]*model.ChatMessage, error) {
	if _, err := s.GetChat(chatID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessagesByChatID(chatID)
	if err != nil {
		return nil, &PersistenceError{Op: "get messages", Err: err}
	}
	return messages, nil
}

// CountMessages 统计会话消息数
func (s *Service) CountMessages(chatID string) (int64, error) {
	count, err := s.store.CountMessagesByChatID(chatID)
	if err != nil {
		return 0, &PersistenceError{Op: "count messages", Err: err}
	}
	return count, nil
}

// ClientMode 当前网关通道
func (s *Service) ClientMode() string {
	return string(s.gateway.Mode())
}

// SetClientMode 切换网关通道，成功后丢弃全部活动句柄，
// 后续发送从持久化元数据惰性重载
func (s *Service) SetClientMode(clientMode string) error {
	mode, ok := gateway.ParseClientMode(clientMode)
	if !ok {
		return fmt.Errorf("%w: unknown client mode %q", ErrInvalidMode, clientMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switched, err := s.gateway.Switch(mode)
	if err != nil {
		return &GatewayError{Op: "switch client mode", Err: err}
	}
	if switched {
		s.handles = make(map[string]gateway.Handle)
	}
	return nil
}

// sendPromptIfNeeded 在需要时投递当前模式的系统提示词。
// 仅当模式有提示词且 prompt_sent=false 时发送；
// 成功后追加 system 消息行，再以两次独立写更新元数据与标记，
// 各自成功才镜像到缓存。任何失败只记录日志，标记保持 false。
// 调用方必须已持有 s.mu。
func (s *Service) sendPromptIfNeeded(ctx context.Context, chatID string) {
	state, ok := s.cache.get(chatID)
	if !ok {
		return
	}
	prompt, hasPrompt := PromptFor(state.Mode)
	if !hasPrompt || state.PromptSent {
		return
	}

	log.Printf("Chat service: sending %s prompt for chat %s", state.Mode, chatID)
	handle, err := s.handleFor(ctx, chatID, state.Metadata)
	if err != nil {
		log.Printf("Chat service: failed to load handle for %s: %v", chatID, err)
		return
	}
	if _, err := s.gateway.Send(ctx, handle, prompt, nil); err != nil {
		log.Printf("Chat service: prompt send failed for %s: %v", chatID, err)
		return
	}

	// 系统消息行为尽力而为，失败不回滚已送达的提示词
	s.persistMessage(chatID, model.RoleSystem, prompt, model.MessageMeta{
		Type:       "system_prompt",
		Mode:       string(state.Mode),
		ClientMode: string(s.gateway.Mode()),
	})

	s.reconcileMetadata(chatID, handle.Metadata())

	marked, err := s.store.MarkPromptSent(chatID)
	if err != nil || !marked {
		log.Printf("Chat service: failed to mark prompt sent for %s: %v", chatID, err)
		return
	}
	s.cache.setPromptSent(chatID, true)
}

// handleFor 复用或从元数据重载活动句柄。调用方必须已持有 s.mu。
func (s *Service) handleFor(ctx context.Context, chatID string, md model.SessionMetadata) (gateway.Handle, error) {
	if handle, ok := s.handles[chatID]; ok {
		return handle, nil
	}
	handle, err := s.gateway.Load(ctx, md)
	if err != nil {
		return nil, err
	}
	s.handles[chatID] = handle
	return handle, nil
}

// reconcileMetadata 先写存储，成功后才镜像到缓存。
// 失败的续接状态保持陈旧，等待下一次成功轮次覆盖。
func (s *Service) reconcileMetadata(chatID string, md model.SessionMetadata) {
	session := &model.ChatSession{ChatID: chatID}
	if err := session.SetMetadata(md); err != nil {
		log.Printf("Chat service: failed to encode metadata for %s: %v", chatID, err)
		return
	}
	updated, err := s.store.UpdateMetadata(chatID, session.Metadata)
	if err != nil || !updated {
		log.Printf("Chat service: failed to persist metadata for %s: %v", chatID, err)
		return
	}
	s.cache.setMetadata(chatID, md)
}

// persistMessage 尽力而为地追加消息行
func (s *Service) persistMessage(chatID, role, content string, meta model.MessageMeta) {
	msg := &model.ChatMessage{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  meta.Encode(),
	}
	if ok, err := s.store.CreateMessage(msg); err != nil || !ok {
		log.Printf("Chat service: failed to persist %s message for %s: %v", role, chatID, err)
	}
}
