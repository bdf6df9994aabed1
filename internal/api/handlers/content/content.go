// Package content 處理內容生成與入庫請求
package content

import (
	"context"
	"encoding/json"
	"net/http"

	"horeca-ingredients/internal/api/handlers"
	"horeca-ingredients/internal/api/middleware"
	"horeca-ingredients/internal/core/generation"
	"horeca-ingredients/internal/core/ingest"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generator 內容生成
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Response, error)
}

// Ingester 內容入庫
type Ingester interface {
	Ingest(ctx context.Context, b ingest.Batch) (*ingest.Result, error)
}

// SaveRequest 入庫請求
type SaveRequest struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
	Mode string            `json:"generation_mode,omitempty"`
}

// Handler 內容處理器
type Handler struct {
	generator Generator
	ingester  Ingester
}

// NewHandler 建立內容處理器
func NewHandler(g Generator, i Ingester) *Handler {
	return &Handler{generator: g, ingester: i}
}

// Generate POST /api/v1/content/generate
func (h *Handler) Generate(c *gin.Context) {
	var req generation.Request
	if !handlers.BindJSON(c, &req) {
		return
	}

	common.LogInfo("開始處理內容生成請求",
		zap.String("type", req.Type),
		zap.Int("count", req.Count),
		zap.Int("list", len(req.IngredientsList)),
		zap.String("category", req.Category),
	)

	resp, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Save POST /api/v1/content/save
func (h *Handler) Save(c *gin.Context) {
	var req SaveRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	ct, err := model.ParseContentType(req.Type)
	if err != nil {
		handlers.RespondError(c, common.NewValidationError(err.Error()))
		return
	}
	records, err := model.DecodeRecords(ct, req.Data)
	if err != nil {
		handlers.RespondError(c, common.NewValidationError(err.Error()))
		return
	}

	batch := ingest.Batch{Type: ct, Records: records, Mode: req.Mode}
	if p, ok := middleware.PrincipalFrom(c); ok {
		batch.UserID = p.UserID
	}

	result, err := h.ingester.Ingest(c.Request.Context(), batch)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
