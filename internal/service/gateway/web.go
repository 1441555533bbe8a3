package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ashwinyue/gemini-relay/internal/config"
	"github.com/ashwinyue/gemini-relay/internal/model"
)

const (
	webAppURL      = "https://gemini.google.com/app"
	webGenerateURL = "https://gemini.google.com/_/BardChatUi/data/assistant.lamda.BardFrontendService/StreamGenerate"
	webUploadURL   = "https://content-push.googleapis.com/upload/"
	webUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0"
)

var accessTokenRe = regexp.MustCompile(`"SNlM0e":"(.*?)"`)

// WebClient 免费通道：复用浏览器会话 cookie 访问网页端。
// 凭据来自配置/环境变量，或本机 Firefox 配置目录的 cookie 库；
// 两者都缺失时仍尝试匿名初始化，由服务端决定是否放行。
type WebClient struct {
	httpClient  *http.Client
	accessToken string
}

// NewWebClient 创建免费通道客户端
func NewWebClient(ctx context.Context, cfg *config.FreeConfig) (*WebClient, error) {
	psid, psidts := cfg.SecurePSID, cfg.SecurePSIDTS
	if psid == "" {
		var err error
		psid, psidts, err = LoadFirefoxCookies(cfg.FirefoxProfile)
		if err != nil {
			log.Printf("Warning: no session cookies available (%v), attempting anonymous init", err)
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := &http.Client{Jar: jar, Timeout: timeout}

	if psid != "" {
		base, _ := url.Parse("https://gemini.google.com/")
		cookies := []*http.Cookie{{Name: "__Secure-1PSID", Value: psid}}
		if psidts != "" {
			cookies = append(cookies, &http.Cookie{Name: "__Secure-1PSIDTS", Value: psidts})
		}
		jar.SetCookies(base, cookies)
	}

	c := &WebClient{httpClient: client}
	if err := c.refreshAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize web session: %w", err)
	}

	log.Println("Gateway: free client initialized")
	return c, nil
}

func (c *WebClient) refreshAccessToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, webAppURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	m := accessTokenRe.FindSubmatch(body)
	if m == nil {
		return fmt.Errorf("access token not found, cookies may be expired")
	}
	c.accessToken = string(m[1])
	return nil
}

type webHandle struct {
	md model.SessionMetadata
}

func (h *webHandle) Metadata() model.SessionMetadata {
	return h.md
}

// StartNew 为新会话建立句柄，续接三元组留空，首次发送后由服务端分配
func (c *WebClient) StartNew(ctx context.Context, chatID string) (Handle, error) {
	return &webHandle{
		md: model.SessionMetadata{
			ChatID:     chatID,
			SessionID:  chatID,
			ClientMode: string(ClientModeFree),
		},
	}, nil
}

// Load 从持久化元数据恢复句柄
func (c *WebClient) Load(ctx context.Context, md model.SessionMetadata) (Handle, error) {
	md.ClientMode = string(ClientModeFree)
	return &webHandle{md: md}, nil
}

// Send 发送一轮消息并更新句柄中的续接三元组
func (c *WebClient) Send(ctx context.Context, h Handle, text string, imagePaths []string) (string, error) {
	handle, ok := h.(*webHandle)
	if !ok {
		return "", fmt.Errorf("handle does not belong to free client")
	}

	var uploads [][]interface{}
	for _, path := range imagePaths {
		id, err := c.uploadImage(ctx, path)
		if err != nil {
			log.Printf("Gateway: image upload failed for %s: %v", path, err)
			continue
		}
		uploads = append(uploads, []interface{}{[]interface{}{id}, filepath.Base(path)})
	}

	reply, conversation, response, choice, err := c.generate(ctx, handle.md, text, uploads)
	if err != nil {
		return "", err
	}

	handle.md.ConversationID = conversation
	handle.md.ResponseID = response
	handle.md.ChoiceID = choice
	handle.md.Turn++
	return reply, nil
}

// Close 释放通道资源
func (c *WebClient) Close() {}

func (c *WebClient) generate(ctx context.Context, md model.SessionMetadata, text string, uploads [][]interface{}) (reply, conversation, response, choice string, err error) {
	prompt := []interface{}{text, 0, nil, nil, nil, nil}
	if len(uploads) > 0 {
		prompt[3] = uploads
	}
	continuation := []interface{}{md.ConversationID, md.ResponseID, md.ChoiceID}

	inner, err := json.Marshal([]interface{}{prompt, nil, continuation})
	if err != nil {
		return "", "", "", "", err
	}
	outer, err := json.Marshal([]interface{}{nil, string(inner)})
	if err != nil {
		return "", "", "", "", err
	}

	form := url.Values{}
	form.Set("f.req", string(outer))
	form.Set("at", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webGenerateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", "", "", fmt.Errorf("generate returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", "", "", err
	}
	return parseGenerateResponse(body)
}

// parseGenerateResponse 解析批量 RPC 响应。响应是逐行的 JSON 片段，
// 有效负载在 "wrb.fr" 帧中再嵌套一层 JSON 字符串。
func parseGenerateResponse(body []byte) (reply, conversation, response, choice string, err error) {
	for _, line := range bytes.Split(body, []byte("\n")) {
		if !bytes.Contains(line, []byte("wrb.fr")) {
			continue
		}
		var frame []interface{}
		if jsonErr := json.Unmarshal(line, &frame); jsonErr != nil {
			continue
		}
		payload := extractPayload(frame)
		if payload == "" {
			continue
		}
		var data []interface{}
		if jsonErr := json.Unmarshal([]byte(payload), &data); jsonErr != nil {
			continue
		}
		reply, conversation, response, choice = extractAnswer(data)
		if reply != "" {
			return reply, conversation, response, choice, nil
		}
	}
	return "", "", "", "", fmt.Errorf("no answer frame in response")
}

func extractPayload(frame []interface{}) string {
	for _, item := range frame {
		entry, ok := item.([]interface{})
		if !ok || len(entry) < 3 {
			continue
		}
		if kind, ok := entry[0].(string); !ok || kind != "wrb.fr" {
			continue
		}
		if payload, ok := entry[2].(string); ok {
			return payload
		}
	}
	return ""
}

func extractAnswer(data []interface{}) (reply, conversation, response, choice string) {
	if len(data) > 1 {
		if ids, ok := data[1].([]interface{}); ok {
			if len(ids) > 0 {
				conversation, _ = ids[0].(string)
			}
			if len(ids) > 1 {
				response, _ = ids[1].(string)
			}
		}
	}
	if len(data) > 4 {
		if candidates, ok := data[4].([]interface{}); ok && len(candidates) > 0 {
			if first, ok := candidates[0].([]interface{}); ok {
				if len(first) > 0 {
					choice, _ = first[0].(string)
				}
				if len(first) > 1 {
					if parts, ok := first[1].([]interface{}); ok && len(parts) > 0 {
						reply, _ = parts[0].(string)
					}
				}
			}
		}
	}
	return reply, conversation, response, choice
}

func (c *WebClient) uploadImage(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webUploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Push-ID", "feeds/mcudyrk2a4khkz")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	id, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(id)), nil
}
