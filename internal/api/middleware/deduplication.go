package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"horeca-ingredients/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 短時間內相同的 POST 請求只放行一次。
type Deduplicator struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewDeduplicator 建立去重器，window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{window: window, seen: make(map[string]time.Time), now: time.Now}
}

// seenRecently 記錄指紋並回報是否在時間窗內出現過
func (d *Deduplicator) seenRecently(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.seen[fingerprint] = now

	// 順便清掉過期項目，避免 map 無限成長
	if len(d.seen) > 1024 {
		for k, t := range d.seen {
			if now.Sub(t) > 10*d.window {
				delete(d.seen, k)
			}
		}
	}
	return false
}

// Middleware 去重中間件；指紋包含路徑、授權標頭與請求體
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		h := sha256.New()
		h.Write([]byte(c.Request.URL.Path))
		h.Write([]byte(c.GetHeader("Authorization")))
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
					Error: "Invalid request body",
					Code:  common.ErrCodeInvalidRequest,
				})
				return
			}
			h.Write(body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		if d.seenRecently(hex.EncodeToString(h.Sum(nil))) {
			common.LogWarn("重複請求已拒絕", zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Error: "Duplicate request",
				Code:  common.ErrCodeTooManyRequests,
			})
			return
		}

		c.Next()
	}
}
