// Package handlers 提供各處理器共用的回應工具
package handlers

import (
	"errors"
	"net/http"

	"horeca-ingredients/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 依錯誤類型輸出統一的錯誤回應
func RespondError(c *gin.Context, err error) {
	status, code := common.StatusOf(err)
	resp := common.ErrorResponse{Error: err.Error(), Code: code}

	var ce *common.CustomError
	if errors.As(err, &ce) && status >= http.StatusInternalServerError {
		// 伺服器錯誤不回傳內部細節
		resp.Error = ce.Message
	} else if status >= http.StatusInternalServerError {
		resp.Error = "Internal server error"
	}

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogWarn("請求處理失敗", fields...)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// BindJSON 解析請求體；失敗時直接回應 400 並回傳 false
func BindJSON(c *gin.Context, v any) bool {
	if err := common.DecodeJSON(c.Request.Body, v); err != nil {
		RespondError(c, common.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}
