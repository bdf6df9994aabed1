// Package auth 驗證管理員 Bearer token
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken 缺少 Bearer token
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken token 無效或過期
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotAdmin 使用者不是管理員
	ErrNotAdmin = errors.New("admin role required")
)

// RoleStore 查詢使用者角色
type RoleStore interface {
	UserRole(ctx context.Context, userID string) (string, error)
}

// Claims token 內容
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Principal 已驗證的使用者
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Verifier HS256 token 驗證器
type Verifier struct {
	secret    []byte
	roles     RoleStore
	adminRole string
}

// NewVerifier 建立驗證器
func NewVerifier(secret string, roles RoleStore, adminRole string) *Verifier {
	if adminRole == "" {
		adminRole = "admin"
	}
	return &Verifier{secret: []byte(secret), roles: roles, adminRole: adminRole}
}

// Sign 簽發 token
func (v *Verifier) Sign(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse 驗證簽章並取出 claims，只接受 HS256
func (v *Verifier) Parse(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify 解析 Authorization 標頭並確認使用者具管理員角色。
// 角色不符時仍回傳 Principal，方便回應中附上信箱。
func (v *Verifier) Verify(ctx context.Context, header string) (*Principal, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return nil, ErrMissingToken
	}
	claims, err := v.Parse(raw)
	if err != nil {
		return nil, err
	}

	p := &Principal{UserID: claims.Subject, Email: claims.Email}
	role, err := v.roles.UserRole(ctx, claims.Subject)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrNotAdmin, err)
	}
	p.Role = role
	if role != v.adminRole {
		return p, ErrNotAdmin
	}
	return p, nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	return raw, raw != ""
}
