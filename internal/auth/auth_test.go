package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jinga80/medical-law/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, userID models.ID, exp time.Time) string {
	t.Helper()
	claims := Claims{UserID: userID}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestHeader(t *testing.T) {
	tests := []struct {
		name       string
		creds      Credentials
		wantCookie string
		wantAuthz  string
		wantErr    error
	}{
		{"cookie only", Credentials{SessionCookie: "abc"}, "sessionid=abc", "", nil},
		{"token only", Credentials{Token: "t0k"}, "", "Bearer t0k", nil},
		{"both", Credentials{SessionCookie: "abc", Token: "t0k"}, "sessionid=abc", "Bearer t0k", nil},
		{"blank", Credentials{SessionCookie: "  "}, "", "", ErrNoCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Header(tt.creds)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Header() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := h.Get("Cookie"); got != tt.wantCookie {
				t.Errorf("Header() Cookie = %q, want %q", got, tt.wantCookie)
			}
			if got := h.Get("Authorization"); got != tt.wantAuthz {
				t.Errorf("Header() Authorization = %q, want %q", got, tt.wantAuthz)
			}
		})
	}
}

func TestCheckToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		wantUID models.ID
		wantErr error
	}{
		{"valid token", signToken(t, "42", now.Add(time.Hour)), "42", nil},
		{"no expiry", signToken(t, "7", time.Time{}), "7", nil},
		{"expired", signToken(t, "42", now.Add(-time.Minute)), "42", ErrTokenExpired},
		{"expires now", signToken(t, "42", now), "42", ErrTokenExpired},
		{"invalid token", "invalid.token.here", "", ErrInvalidToken},
		{"empty token", "", "", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := CheckToken(tt.token, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckToken() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantUID != "" && claims.UserID != tt.wantUID {
				t.Errorf("CheckToken() UserID = %v, want %v", claims.UserID, tt.wantUID)
			}
		})
	}
}

func TestCheckToken_NumericUserID(t *testing.T) {
	// 服务端以数字形式写入 uid
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": 42})
	s, err := token.SignedString([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	claims, err := CheckToken(s, time.Now())
	if err != nil {
		t.Fatalf("CheckToken() error = %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("CheckToken() UserID = %v, want 42", claims.UserID)
	}
	if strings.Count(s, ".") != 2 {
		t.Errorf("unexpected token shape %q", s)
	}
}
