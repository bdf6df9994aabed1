package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}

func TestPreFilter(t *testing.T) {
	assert.NoError(t, PreFilter("https://upload.wikimedia.org/romero.JPG"))
	assert.NoError(t, PreFilter("http://example.com/a/b/azafran.webp?w=800"))

	for _, bad := range []string{
		"ftp://example.com/a.jpg",
		"data:image/png;base64,iVBORw0KGgo",
		"https://example.com/gallery",
		"https://example.com/page.html",
		"https://example.com/" + strings.Repeat("QUJD", 40) + ".png",
		"https:///nohost.jpg",
	} {
		assert.ErrorIs(t, PreFilter(bad), ErrRejected, bad)
	}
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/nohead.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "bytes=0-511", r.Header.Get("Range"))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(pngHeader)
	})
	mux.HandleFunc("/opaque.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("\x00\x01\x02\x03"))
	})
	mux.HandleFunc("/page.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>not an image</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestValidatorLiveChecks(t *testing.T) {
	srv := newImageServer(t)
	v := NewValidator(2 * time.Second)
	ctx := context.Background()

	require.NoError(t, v.Validate(ctx, srv.URL+"/ok.jpg"))
	require.NoError(t, v.Validate(ctx, srv.URL+"/nohead.png"))
	require.NoError(t, v.Validate(ctx, srv.URL+"/opaque.jpg"))

	assert.ErrorIs(t, v.Validate(ctx, srv.URL+"/page.jpg"), ErrNotImage)
	assert.ErrorIs(t, v.Validate(ctx, srv.URL+"/missing.jpg"), ErrUnreachable)
	assert.ErrorIs(t, v.Validate(ctx, srv.URL+"/index"), ErrRejected)
}
