package images

import (
	"context"
	"testing"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/core/prompt"
	"horeca-ingredients/internal/infrastructure/store"
	"horeca-ingredients/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	content string
	err     error
	last    *ai.Request
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(_ context.Context, req *ai.Request) (*ai.Response, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &ai.Response{Content: p.content, Provider: "stub"}, nil
}

type stubValidator struct {
	bad     map[string]bool
	checked []string
}

func (v *stubValidator) Validate(_ context.Context, url string) error {
	v.checked = append(v.checked, url)
	if v.bad[url] {
		return ErrNotImage
	}
	return nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

const imageReply = "Aquí tienes:\n```json\n" + `{"images": [
  {"url": "https://cdn.example.com/romero-1.jpg", "caption": "Ramas frescas", "category": "whole"},
  {"url": "https://cdn.example.com/romero-2.png", "caption": "Picado", "category": "CUT"},
  {"url": "https://cdn.example.com/romero-stored.jpg", "caption": "Ya guardada", "category": "raw"},
  {"url": "https://cdn.example.com/galeria", "caption": "Sin extensión", "category": "raw"},
  {"url": "https://cdn.example.com/romero-broken.jpg", "caption": "Rota", "category": "raw"},
  {"url": "https://cdn.example.com/romero-3.webp", "caption": "En plato", "category": "plated"},
  {"url": "https://cdn.example.com/romero-7.jpg", "caption": "Sobrante", "category": "raw"}
]}` + "\n```"

func TestResearchValidatesAndSaves(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ing := &model.Ingredient{IngredientNames: model.IngredientNames{Name: "Romero"}, Description: "Hierba aromática mediterránea"}
	require.NoError(t, s.InsertIngredient(ctx, ing))
	require.NoError(t, s.InsertImage(ctx, &model.RealImage{IngredientID: ing.ID, URL: "https://cdn.example.com/romero-stored.jpg", Approved: true}))

	provider := &stubProvider{content: imageReply}
	validator := &stubValidator{bad: map[string]bool{"https://cdn.example.com/romero-broken.jpg": true}}
	svc := NewService(s, provider, prompt.NewBuilder(0, nil), validator, Options{AllowedDomains: []string{"wikimedia.org"}})

	res, err := svc.Research(ctx, ing.ID)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Found)
	assert.Equal(t, 3, res.Saved)
	assert.Len(t, res.Rejected, 3)
	assert.Equal(t, []string{"wikimedia.org"}, provider.last.Domains)
	assert.NotContains(t, validator.checked, "https://cdn.example.com/romero-stored.jpg")
	assert.NotContains(t, validator.checked, "https://cdn.example.com/romero-7.jpg")

	var categories []string
	for _, img := range res.Images {
		assert.True(t, img.Approved)
		assert.Equal(t, SourceResearch, img.Source)
		categories = append(categories, img.Category)
	}
	assert.Equal(t, []string{"whole", "cut", "raw"}, categories)

	urls, err := s.ListImageURLs(ctx, ing.ID)
	require.NoError(t, err)
	assert.Len(t, urls, 4)
}

func TestResearchManyContinuesAfterFailures(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ing := &model.Ingredient{IngredientNames: model.IngredientNames{Name: "Azafrán"}}
	require.NoError(t, s.InsertIngredient(ctx, ing))

	provider := &stubProvider{content: `{"images": [{"url": "https://cdn.example.com/azafran.jpg", "caption": "Hebras"}]}`}
	svc := NewService(s, provider, prompt.NewBuilder(0, nil), &stubValidator{}, Options{})

	results, sum := svc.ResearchMany(ctx, []string{"missing", ing.ID})
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, 1, results[1].Saved)
	assert.Equal(t, Summary{Total: 2, Successful: 1, Failed: 1, ImagesFound: 1, ImagesSaved: 1}, sum)
}

func TestResearchProviderFailure(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ing := &model.Ingredient{IngredientNames: model.IngredientNames{Name: "Comino"}}
	require.NoError(t, s.InsertIngredient(ctx, ing))

	svc := NewService(s, &stubProvider{err: ai.ErrEmptyResponse}, prompt.NewBuilder(0, nil), &stubValidator{}, Options{})
	_, err := svc.Research(ctx, ing.ID)
	require.Error(t, err)
	_, code := common.StatusOf(err)
	assert.Equal(t, common.ErrCodeAIService, code)
}
