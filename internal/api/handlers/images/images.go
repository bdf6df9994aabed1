// Package images 處理食材實拍圖片研究請求
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"horeca-ingredients/internal/api/handlers"
	imagesvc "horeca-ingredients/internal/core/images"
	"horeca-ingredients/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Researcher 圖片研究
type Researcher interface {
	Research(ctx context.Context, ingredientID string) (*imagesvc.Result, error)
	ResearchMany(ctx context.Context, ids []string) ([]imagesvc.Result, imagesvc.Summary)
}

// IDList 接受單一字串或字串陣列
type IDList []string

// UnmarshalJSON 實作 json.Unmarshaler
func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = IDList{s}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("ingredientIds must be a string or an array of strings: %w", err)
	}
	*l = ids
	return nil
}

// Request 圖片研究請求
type Request struct {
	IngredientIDs IDList `json:"ingredientIds"`
	Mode          string `json:"mode"`
}

// Response 圖片研究回應
type Response struct {
	Success bool              `json:"success"`
	Results []imagesvc.Result `json:"results"`
	Summary imagesvc.Summary  `json:"summary"`
}

// Handler 圖片處理器
type Handler struct {
	researcher Researcher
}

// NewHandler 建立圖片處理器
func NewHandler(r Researcher) *Handler {
	return &Handler{researcher: r}
}

// Research POST /api/v1/images/research
func (h *Handler) Research(c *gin.Context) {
	var req Request
	if !handlers.BindJSON(c, &req) {
		return
	}

	ids := make([]string, 0, len(req.IngredientIDs))
	for _, id := range req.IngredientIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		handlers.RespondError(c, common.NewValidationError("ingredientIds is required"))
		return
	}

	switch req.Mode {
	case "", "batch":
		results, sum := h.researcher.ResearchMany(c.Request.Context(), ids)
		c.JSON(http.StatusOK, Response{Success: sum.Failed < sum.Total, Results: results, Summary: sum})
	case "single":
		res, err := h.researcher.Research(c.Request.Context(), ids[0])
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{
			Success: true,
			Results: []imagesvc.Result{*res},
			Summary: imagesvc.Summary{Total: 1, Successful: 1, ImagesFound: res.Found, ImagesSaved: res.Saved},
		})
	default:
		handlers.RespondError(c, common.NewValidationError(fmt.Sprintf("unsupported mode %q", req.Mode)))
	}
}
