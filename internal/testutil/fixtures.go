// Package testutil 提供测试辅助工具
package testutil

import (
	"encoding/base64"

	"github.com/ashwinyue/gemini-relay/internal/service/types"
)

// tinyPNG 1x1 像素的有效 PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// PNGDataURI 返回内联 PNG 的 data URI
func PNGDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)
}

// DataURI 按指定媒体类型构造内联 data URI
func DataURI(mediaType string, payload []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

// UserText 构造纯文本 user 消息
func UserText(text string) types.ChatMessage {
	return types.ChatMessage{
		Role:    "user",
		Content: types.MessageContent{Text: text},
	}
}

// UserParts 构造内容块形式的 user 消息
func UserParts(parts ...types.ContentPart) types.ChatMessage {
	return types.ChatMessage{
		Role:    "user",
		Content: types.MessageContent{Parts: parts},
	}
}

// TextPart 构造文本内容块
func TextPart(text string) types.ContentPart {
	return types.ContentPart{Type: "text", Text: text}
}

// ImagePart 构造图片内容块
func ImagePart(url string) types.ContentPart {
	return types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: url}}
}
