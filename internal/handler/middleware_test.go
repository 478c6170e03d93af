package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/saturn-mousehunter/saturn-risk/internal/auth"
)

type stubVerifier struct {
	user *auth.User
	err  error
}

func (s *stubVerifier) VerifyToken(ctx context.Context, token string) (*auth.User, error) {
	return s.user, s.err
}

func authTestRouter(verifier TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireRiskManager(verifier), func(c *gin.Context) {
		user := CurrentUser(c)
		if user != nil {
			c.JSON(http.StatusOK, gin.H{"user": user.Username})
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRiskManagerAllowsManager(t *testing.T) {
	r := authTestRouter(&stubVerifier{user: &auth.User{UserID: "u1", Username: "alice", Roles: []string{auth.RoleRiskManager}}})

	w := doRequest(r, "Bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestRequireRiskManagerRejectsMissingToken(t *testing.T) {
	r := authTestRouter(&stubVerifier{err: auth.ErrUnauthorized})

	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRiskManagerRejectsOtherRoles(t *testing.T) {
	r := authTestRouter(&stubVerifier{user: &auth.User{UserID: "u2", Username: "bob", Roles: []string{"viewer"}}})

	w := doRequest(r, "Bearer good-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRiskManagerAuthServiceDown(t *testing.T) {
	r := authTestRouter(&stubVerifier{err: errors.New("connection refused")})

	w := doRequest(r, "Bearer good-token")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireRiskManagerNilVerifierSkipsAuth(t *testing.T) {
	r := authTestRouter(nil)

	w := doRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "", bearerToken("abc"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Basic abc"))
}
