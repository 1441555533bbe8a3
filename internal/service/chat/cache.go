package chat

import "github.com/ashwinyue/gemini-relay/internal/model"

// sessionState 缓存中的单个会话状态
type sessionState struct {
	Metadata   model.SessionMetadata
	Mode       model.Mode
	PromptSent bool
}

// sessionCache 进程内会话状态镜像。
// 启动时整体水合，之后只在对应存储写入确认成功后更新；
// 除删除外没有任何淘汰策略。调用方负责串行化访问。
type sessionCache struct {
	entries map[string]*sessionState
}

func newSessionCache() *sessionCache {
	return &sessionCache{entries: make(map[string]*sessionState)}
}

func (c *sessionCache) get(chatID string) (*sessionState, bool) {
	state, ok := c.entries[chatID]
	return state, ok
}

func (c *sessionCache) put(chatID string, state *sessionState) {
	c.entries[chatID] = state
}

func (c *sessionCache) setMetadata(chatID string, md model.SessionMetadata) {
	if state, ok := c.entries[chatID]; ok {
		state.Metadata = md
	}
}

func (c *sessionCache) setMode(chatID string, mode model.Mode, promptSent bool) {
	if state, ok := c.entries[chatID]; ok {
		state.Mode = mode
		state.PromptSent = promptSent
	}
}

func (c *sessionCache) setPromptSent(chatID string, sent bool) {
	if state, ok := c.entries[chatID]; ok {
		state.PromptSent = sent
	}
}

func (c *sessionCache) remove(chatID string) {
	delete(c.entries, chatID)
}

func (c *sessionCache) len() int {
	return len(c.entries)
}
