// Package prices 處理多國價格更新請求
package prices

import (
	"context"
	"net/http"

	"horeca-ingredients/internal/api/handlers"
	"horeca-ingredients/internal/core/pricing"

	"github.com/gin-gonic/gin"
)

// Updater 價格更新
type Updater interface {
	Update(ctx context.Context, req pricing.Request) (*pricing.Summary, error)
}

// Response 價格更新回應
type Response struct {
	Success bool             `json:"success"`
	Summary *pricing.Summary `json:"summary"`
}

// Handler 價格處理器
type Handler struct {
	updater Updater
}

// NewHandler 建立價格處理器
func NewHandler(u Updater) *Handler {
	return &Handler{updater: u}
}

// Update POST /api/v1/prices/update
func (h *Handler) Update(c *gin.Context) {
	var req pricing.Request
	if !handlers.BindJSON(c, &req) {
		return
	}
	sum, err := h.updater.Update(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Summary: sum})
}
