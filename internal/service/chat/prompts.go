package chat

import "github.com/ashwinyue/gemini-relay/internal/model"

// modePrompts 每个非 Default 模式对应一条固定指令，Default 无指令
var modePrompts = map[model.Mode]string{
	model.ModeCode:      "You are an expert programmer. Provide clear, well-documented code solutions with explanations.",
	model.ModeArchitect: "You are a software architect. Design scalable, maintainable solutions with best practices.",
	model.ModeDebug:     "You are a debugging expert. Help identify and fix issues systematically.",
	model.ModeAsk:       "You are a helpful assistant. Answer questions clearly and provide useful information.",
}

// PromptFor 返回模式的系统指令，Default 模式返回 false
func PromptFor(mode model.Mode) (string, bool) {
	text, ok := modePrompts[mode]
	return text, ok
}
