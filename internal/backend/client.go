package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pos-next/internal/config"
)

var (
	// ErrConfigInvalid 后端配置非法
	ErrConfigInvalid = errors.New("backend config invalid")
	// ErrRequestFailed 后端请求失败（网络层）
	ErrRequestFailed = errors.New("backend request failed")
	// ErrResponseInvalid 后端响应无法解析
	ErrResponseInvalid = errors.New("backend response invalid")
	// ErrUnauthorized 后端拒绝当前令牌
	ErrUnauthorized = errors.New("backend unauthorized")
	// ErrNotFound 后端资源不存在
	ErrNotFound = errors.New("backend resource not found")
)

// APIError 后端业务错误，保留后端原始错误文案
type APIError struct {
	StatusCode int
	Message    string
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fmt.Sprintf("backend error (status %d)", e.StatusCode)
}

// envelope 后端统一响应包
type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

// Client 零售后端 REST 客户端
type Client struct {
	baseURL      string
	token        string
	merchantName string
	httpClient   *http.Client
}

// NewClient 创建后端客户端
func NewClient(cfg config.BackendConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		merchantName: strings.TrimSpace(cfg.MerchantName),
		httpClient:   &http.Client{Timeout: timeout},
	}, nil
}

// MerchantName 二维码收款展示名
func (c *Client) MerchantName() string {
	return c.merchantName
}

// tokenFromContext 请求级令牌覆盖
type tokenKey struct{}

// WithToken 将收银员令牌注入上下文，后续后端调用优先使用
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) resolveToken(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok && v != "" {
		return v
	}
	return c.token
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, params interface{}, dest interface{}) error {
	return c.do(ctx, http.MethodPost, path, params, dest)
}

func (c *Client) do(ctx context.Context, method, path string, params interface{}, dest interface{}) error {
	var reqBody io.Reader
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		reqBody = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.resolveToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, messageOf(body))
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, messageOf(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: messageOf(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if env.StatusCode != 0 && env.StatusCode != 200 {
		return &APIError{StatusCode: env.StatusCode, Message: env.Msg}
	}
	if dest == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}

func messageOf(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && strings.TrimSpace(env.Msg) != "" {
		return env.Msg
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 255 {
		trimmed = trimmed[:255]
	}
	return trimmed
}
