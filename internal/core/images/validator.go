package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrRejected 網址未通過格式檢查
	ErrRejected = errors.New("image url rejected")
	// ErrUnreachable 網址無法存取
	ErrUnreachable = errors.New("image url unreachable")
	// ErrNotImage 回應不是圖片
	ErrNotImage = errors.New("url does not serve an image")
)

const sniffBytes = 512

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".avif": true,
	}
	// 長串 base64 字元通常代表損壞或內嵌資料
	blobPattern = regexp.MustCompile(`[A-Za-z0-9+/=]{120,}`)
)

// PreFilter 不發出請求的格式檢查
func PreFilter(raw string) error {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("%w: scheme must be http(s)", ErrRejected)
	}
	if blobPattern.MatchString(raw) {
		return fmt.Errorf("%w: looks like an encoded blob", ErrRejected)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: malformed url", ErrRejected)
	}
	if !imageExtensions[strings.ToLower(path.Ext(u.Path))] {
		return fmt.Errorf("%w: missing image extension", ErrRejected)
	}
	return nil
}

// Validator 以 HEAD 或部分 GET 確認網址確實提供圖片
type Validator struct {
	client *resty.Client
}

// NewValidator 建立驗證器
func NewValidator(timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", "horeca-ingredients-image-check/1.0")
	return &Validator{client: client}
}

// Validate 檢查網址。Content-Type 不明確但副檔名正確時仍接受。
func (v *Validator) Validate(ctx context.Context, raw string) error {
	if err := PreFilter(raw); err != nil {
		return err
	}

	head, err := v.client.R().SetContext(ctx).Head(raw)
	if err == nil && head.IsSuccess() && isImageType(head.Header().Get("Content-Type")) {
		return nil
	}

	// 部分伺服器不支援 HEAD，改用 Range GET
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("Range", fmt.Sprintf("bytes=0-%d", sniffBytes-1)).
		SetDoNotParseResponse(true).
		Get(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	body := resp.RawBody()
	if body != nil {
		defer body.Close()
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if isImageType(contentType) {
		return nil
	}

	if body != nil {
		buf, _ := io.ReadAll(io.LimitReader(body, sniffBytes))
		if len(buf) > 0 && strings.HasPrefix(mimetype.Detect(buf).String(), "image/") {
			return nil
		}
	}

	if inconclusive(contentType) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotImage, contentType)
}

func isImageType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "image/")
}

func inconclusive(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}
