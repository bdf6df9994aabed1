package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/auth"
	"horeca-ingredients/internal/core/generation"
	"horeca-ingredients/internal/core/images"
	"horeca-ingredients/internal/core/ingest"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/core/pricing"
	"horeca-ingredients/internal/core/prompt"
	"horeca-ingredients/internal/infrastructure/config"
	"horeca-ingredients/internal/infrastructure/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const saffronReply = "```json\n" + `[{"name": "Azafrán", "name_en": "Saffron", "name_fr": "Safran",
  "name_it": "Zafferano", "name_pt": "Açafrão", "name_la": "Azafrán",
  "description": "Estigmas secos de Crocus sativus", "category": "especias",
  "shrinkage": 0, "yield": 100, "popularity": 60,
  "prices_by_country": [{"country_code": "ES", "price": 4500, "unit": "kg"}, {"country_code": "FR", "price": 5200, "unit": "kg"}],
  "uses": ["paella"], "varieties": ["La Mancha"]}]` + "\n```"

// keywordProvider 依提示詞關鍵字回覆，否則模擬供應商故障
type keywordProvider struct {
	replies map[string]string
	calls   int
}

func (p *keywordProvider) Name() string { return "perplexity" }

func (p *keywordProvider) Generate(_ context.Context, req *ai.Request) (*ai.Response, error) {
	p.calls++
	for k, v := range p.replies {
		if strings.Contains(req.Prompt, k) {
			return &ai.Response{Content: v, Provider: p.Name()}, nil
		}
	}
	return nil, &ai.HTTPError{Provider: p.Name(), StatusCode: 503, Body: "unavailable"}
}

type acceptAll struct{}

func (acceptAll) Validate(context.Context, string) error { return nil }

type testServer struct {
	router   *gin.Engine
	store    *store.Store
	provider *keywordProvider
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	s, err := store.Open(ctx, store.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.SetUserRole(ctx, "u-admin", "admin@example.com", "admin"))
	require.NoError(t, s.SetUserRole(ctx, "u-chef", "chef@example.com", "editor"))

	provider := &keywordProvider{replies: map[string]string{
		`ingrediente "azafrán"`: saffronReply,
		"fotografías reales":    `{"images": [{"url": "https://upload.wikimedia.org/azafran.jpg", "caption": "Hebras", "category": "raw"}]}`,
	}}
	research := ai.NewResearcher(provider, nil)
	prompts := prompt.NewBuilder(150, nil)
	ingester := ingest.NewService(s, nil, ingest.Options{IncrementalSnapshot: true})
	priceSvc := pricing.NewService(s, research, prompts, ingester.Prices(), nil, pricing.Options{})
	verifier := auth.NewVerifier("router-secret", s, "admin")

	cfg := &config.Config{
		App:         config.AppConfig{Debug: true, Version: "test"},
		Server:      config.ServerConfig{RequestTimeout: 10 * time.Second, MaxBodyBytes: 1 << 20},
		DedupWindow: time.Nanosecond,
	}
	router, err := SetupRouter(cfg, Dependencies{
		Generator: generation.NewService(s, research, priceSvc, prompts, nil, generation.Options{}),
		Ingester:  ingester,
		Prices:    priceSvc,
		Images:    images.NewService(s, provider, prompts, acceptAll{}, images.Options{}),
		Verifier:  verifier,
		DB:        s,
		Providers: []string{provider.Name()},
	})
	require.NoError(t, err)
	return &testServer{router: router, store: s, provider: provider, verifier: verifier}
}

func (ts *testServer) token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := ts.verifier.Sign(userID, email, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (ts *testServer) post(t *testing.T, path, authHeader string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestAdminRoutesRejectBeforeAnyWork(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{"type": "ingredient", "ingredientsList": []string{"azafrán"}}

	w, out := ts.post(t, "/api/v1/content/generate", "", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "UNAUTHORIZED", out["code"])
	assert.NotContains(t, out, "userEmail")

	w, out = ts.post(t, "/api/v1/content/generate", ts.token(t, "u-chef", "chef@example.com"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "UNAUTHORIZED", out["code"])
	assert.Equal(t, "chef@example.com", out["userEmail"])

	w, _ = ts.post(t, "/api/v1/content/save", "Bearer garbage", map[string]any{"type": "ingredient", "data": []any{}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Zero(t, ts.provider.calls)
}

func TestGenerateThenSave(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "u-admin", "admin@example.com")

	w, gen := ts.post(t, "/api/v1/content/generate", admin, map[string]any{
		"type": "ingredient", "ingredientsList": []string{"azafrán"}, "category": "especias",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, gen["success"])
	assert.Equal(t, float64(1), gen["generated_count"])
	assert.Equal(t, "perplexity", gen["ai_provider"])
	assert.Equal(t, "manual", gen["generation_mode"])

	data := gen["data"].([]any)
	require.Len(t, data, 1)
	item := data[0].(map[string]any)
	assert.Equal(t, "azafrán", item["name"])
	assert.Equal(t, "azafrán", item["requested_ingredient"])

	w, saved := ts.post(t, "/api/v1/content/save", admin, map[string]any{"type": "ingredient", "data": data})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := saved["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total_processed"])
	assert.Equal(t, float64(1), summary["successfully_created"])
	assert.Equal(t, float64(0), summary["duplicates_skipped"])

	created := saved["data"].([]any)
	require.Len(t, created, 1)
	id := created[0].(map[string]any)["id"].(string)
	counts, err := ts.store.CountChildren(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Prices)

	audit, err := ts.store.ListAudit(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, "u-admin", audit[0].UserID)

	// 再次入庫相同內容應被去重閘門擋下
	w, again := ts.post(t, "/api/v1/content/save", admin, map[string]any{"type": "ingredient", "data": data, "generation_mode": "manual"})
	require.Equal(t, http.StatusOK, w.Code)
	summary = again["summary"].(map[string]any)
	assert.Equal(t, float64(0), summary["successfully_created"])
	assert.Equal(t, float64(1), summary["duplicates_skipped"])

	// 已存在的食材在生成前就被略過
	calls := ts.provider.calls
	w, gen = ts.post(t, "/api/v1/content/generate", admin, map[string]any{
		"type": "ingredient", "ingredientsList": []string{"Azafrán"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(model.StatusSkippedDuplicate), gen["data"].([]any)[0].(map[string]any)["status"])
	assert.Equal(t, calls, ts.provider.calls)
}

func TestSaveRejectsMalformedInput(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "u-admin", "admin@example.com")

	w, out := ts.post(t, "/api/v1/content/save", admin, map[string]any{"type": "recipe", "data": []any{map[string]any{"name": "x"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", out["code"])

	w, out = ts.post(t, "/api/v1/content/save", admin, map[string]any{"type": "ingredient", "data": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", out["code"])

	w, out = ts.post(t, "/api/v1/content/generate", admin, map[string]any{"type": "ingredient", "ingredientsList": []string{" ", ""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", out["code"])
}

func TestPriceUpdateAndImageResearch(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "u-admin", "admin@example.com")
	ctx := context.Background()

	ing := &model.Ingredient{IngredientNames: model.IngredientNames{Name: "Azafrán"}, Description: "Especia"}
	require.NoError(t, ts.store.InsertIngredient(ctx, ing))

	w, out := ts.post(t, "/api/v1/prices/update", admin, map[string]any{"mode": "weekly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", out["code"])

	w, out = ts.post(t, "/api/v1/images/research", admin, map[string]any{"ingredientIds": ing.ID, "mode": "single"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["success"])
	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["images_saved"])

	w, out = ts.post(t, "/api/v1/images/research", admin, map[string]any{"ingredientIds": []string{"missing-id", ing.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	summary = out["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total"])
	assert.Equal(t, float64(1), summary["failed"])

	w, out = ts.post(t, "/api/v1/images/research", admin, map[string]any{"ingredientIds": "missing-id", "mode": "single"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", out["code"])
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for path, status := range map[string]string{"/health": "ok", "/ready": "ready", "/live": "alive"} {
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)

		var out map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.Equal(t, status, out["status"], path)
	}

	require.NoError(t, ts.store.Close())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
