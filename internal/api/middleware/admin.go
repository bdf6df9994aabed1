package middleware

import (
	"context"
	"errors"
	"net/http"

	"horeca-ingredients/internal/core/auth"
	"horeca-ingredients/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// TokenVerifier 驗證 Authorization 標頭
type TokenVerifier interface {
	Verify(ctx context.Context, header string) (*auth.Principal, error)
}

// RequireAdmin 僅允許管理員；失敗時在任何 AI 或資料庫寫入前回傳 403
func RequireAdmin(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := v.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			resp := common.ErrorResponse{
				Error: "Unauthorized: admin privileges required",
				Code:  common.ErrCodeUnauthorized,
			}
			if p != nil && errors.Is(err, auth.ErrNotAdmin) {
				resp.UserEmail = p.Email
			}
			common.LogWarn("管理員驗證失敗",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusForbidden, resp)
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom 取得已驗證的使用者
func PrincipalFrom(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}
