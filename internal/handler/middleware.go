// Package handler 提供风控服务的 HTTP 处理器
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saturn-mousehunter/saturn-risk/internal/auth"
	"github.com/saturn-mousehunter/saturn-risk/internal/metrics"
)

const ctxUserKey = "auth_user"

// TokenVerifier 校验 token 并返回用户
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.User, error)
}

// RequireRiskManager 认证中间件, 只放行 admin/risk_manager 角色
// verifier 为 nil 时跳过认证 (本地开发)
func RequireRiskManager(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		user, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
			return
		}

		if !user.IsRiskManager() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "risk manager role required"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// CurrentUser 取出认证中间件写入的用户, 未认证时返回 nil
func CurrentUser(c *gin.Context) *auth.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*auth.User)
	return user
}

// Metrics 请求指标中间件
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}

// bearerToken 从 Authorization 头提取 Bearer token
func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
