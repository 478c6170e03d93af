// Package auth delegates token verification to the auth service
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

var (
	// ErrUnauthorized token 缺失或校验失败
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden 用户无风控管理权限
	ErrForbidden = errors.New("forbidden")
)

// 放行的角色
const (
	RoleAdmin       = "admin"
	RoleRiskManager = "risk_manager"
)

// User 认证服务返回的用户信息
type User struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// IsRiskManager 检查用户是否具备风控管理权限
func (u *User) IsRiskManager() bool {
	for _, r := range u.Roles {
		if r == RoleAdmin || r == RoleRiskManager {
			return true
		}
	}
	return false
}

// Client 认证服务客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建认证服务客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// VerifyToken 校验 Bearer token 并返回用户信息
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("auth service request failed", "error", err)
		return nil, fmt.Errorf("auth service unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var user User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("decode auth response: %w", err)
		}
		return &user, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		logger.Error("auth service returned unexpected status", "status", resp.StatusCode)
		return nil, fmt.Errorf("auth service status %d", resp.StatusCode)
	}
}
