// Package auth 准备连接服务端时携带的凭据，并在拨号前检查 token 是否过期。
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jinga80/medical-law/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredentials = errors.New("no session cookie or token configured")
	ErrTokenExpired  = errors.New("token expired")
	ErrInvalidToken  = errors.New("invalid token")
)

// SessionCookieName 是服务端会话 cookie 的名字。
const SessionCookieName = "sessionid"

// Claims 只读取客户端关心的字段，签名由服务端校验。
type Claims struct {
	UserID models.ID `json:"uid"`
	jwt.RegisteredClaims
}

type Credentials struct {
	SessionCookie string
	Token         string
}

// Header 生成握手请求头：会话 cookie 与 Bearer token 都是可选的，至少要有一个。
func Header(c Credentials) (http.Header, error) {
	cookie := strings.TrimSpace(c.SessionCookie)
	token := strings.TrimSpace(c.Token)
	if cookie == "" && token == "" {
		return nil, ErrNoCredentials
	}
	h := make(http.Header)
	if cookie != "" {
		h.Set("Cookie", (&http.Cookie{Name: SessionCookieName, Value: cookie}).String())
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h, nil
}

// CheckToken 不验证签名，只解析声明并检查过期时间。没有 exp 的 token 视为不过期。
func CheckToken(tokenStr string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return claims, fmt.Errorf("%w at %s", ErrTokenExpired, claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return claims, nil
}
