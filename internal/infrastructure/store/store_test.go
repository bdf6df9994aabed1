package store

import (
	"context"
	"testing"

	"horeca-ingredients/internal/core/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func insertIngredient(t *testing.T, s *Store, name, nameEN string) *model.Ingredient {
	t.Helper()
	ing := &model.Ingredient{IngredientNames: model.IngredientNames{Name: name, NameEN: nameEN}}
	require.NoError(t, s.InsertIngredient(context.Background(), ing))
	return ing
}

func TestMigrateIsIdempotentAndSeedsCountries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	countries, err := s.ListCountries(ctx)
	require.NoError(t, err)
	assert.Len(t, countries, len(seedCountries))

	es, err := s.CountryByCode(ctx, "es")
	require.NoError(t, err)
	assert.Equal(t, CountryID("ES"), es.ID)
	assert.Equal(t, "EUR", es.Currency)

	_, err = s.CountryByCode(ctx, "ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIngredientRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cat := &model.Category{Name: "especias", NameEN: "spices"}
	require.NoError(t, s.CreateCategory(ctx, cat))
	err := s.CreateCategory(ctx, &model.Category{Name: "especias"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetCategoryByName(ctx, "especias")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, got.ID)

	ing := &model.Ingredient{
		IngredientNames: model.IngredientNames{Name: "Azafrán", NameEN: "Saffron"},
		CategoryID:      &cat.ID,
		Shrinkage:       2,
		Yield:           98,
		Popularity:      70,
	}
	require.NoError(t, s.InsertIngredient(ctx, ing))
	assert.NotEmpty(t, ing.ID)

	loaded, err := s.GetIngredient(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Saffron", loaded.NameEN)
	require.NotNil(t, loaded.CategoryID)
	assert.Equal(t, cat.ID, *loaded.CategoryID)

	refs, err := s.ListIngredientRefs(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Azafrán", refs[0].Name)

	_, err = s.GetIngredient(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChildrenAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ing := insertIngredient(t, s, "Romero", "Rosemary")

	require.NoError(t, s.InsertNutrition(ctx, &model.NutritionalInfo{IngredientID: ing.ID, Calories: 131}))
	require.NoError(t, s.InsertUses(ctx, []model.Use{
		{IngredientID: ing.ID, Description: "asados"},
		{IngredientID: ing.ID, Description: "aceites aromáticos"},
	}))
	require.NoError(t, s.InsertRecipes(ctx, []model.Recipe{{IngredientID: ing.ID, Name: "Cordero al romero"}}))
	require.NoError(t, s.InsertVarieties(ctx, nil))

	counts, err := s.CountChildren(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, ChildCounts{Nutrition: 1, Uses: 2, Recipes: 1}, *counts)
}

func TestReplacePrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ing := insertIngredient(t, s, "Trufa negra", "Black truffle")

	var initial []model.Price
	for _, code := range []string{"ES", "FR", "IT", "PT", "DE", "US"} {
		initial = append(initial, model.Price{
			IngredientID: ing.ID, CountryID: CountryID(code),
			Amount: decimal.NewFromInt(800), Unit: model.UnitKg,
		})
	}
	require.NoError(t, s.InsertPrices(ctx, initial))

	replacement := []model.Price{
		{IngredientID: ing.ID, CountryID: CountryID("ES"), Amount: decimal.RequireFromString("950.50"), Unit: model.UnitKg},
		{IngredientID: ing.ID, CountryID: CountryID("FR"), Amount: decimal.NewFromInt(1000), Unit: model.UnitKg},
		{IngredientID: ing.ID, CountryID: CountryID("IT"), Amount: decimal.NewFromInt(990), Unit: model.UnitKg},
		{IngredientID: ing.ID, CountryID: CountryID("US"), Amount: decimal.NewFromInt(1200), Unit: model.UnitKg},
	}
	require.NoError(t, s.ReplacePrices(ctx, ing.ID, replacement))

	prices, err := s.ListPrices(ctx, ing.ID)
	require.NoError(t, err)
	require.Len(t, prices, 4)

	var found bool
	for _, p := range prices {
		if p.CountryID == CountryID("ES") {
			found = true
			assert.True(t, p.Amount.Equal(decimal.RequireFromString("950.5")), p.Amount.String())
		}
	}
	assert.True(t, found)
}

func TestIngredientsNeedingPriceReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	noPrices := insertIngredient(t, s, "Comino", "Cumin")
	flagged := insertIngredient(t, s, "Azafrán", "Saffron")
	clean := insertIngredient(t, s, "Pimienta negra", "Black pepper")

	require.NoError(t, s.InsertPrices(ctx, []model.Price{
		{IngredientID: flagged.ID, CountryID: CountryID("ES"), Amount: decimal.NewFromInt(50), Unit: model.UnitKg, SeasonVariation: "REVISAR_PRECIO_AZAFRAN"},
		{IngredientID: clean.ID, CountryID: CountryID("ES"), Amount: decimal.NewFromInt(20), Unit: model.UnitKg},
	}))

	list, err := s.ListIngredientsNeedingPriceReview(ctx, "REVISAR_PRECIO_", 0)
	require.NoError(t, err)
	var ids []string
	for _, ing := range list {
		ids = append(ids, ing.ID)
	}
	assert.ElementsMatch(t, []string{noPrices.ID, flagged.ID}, ids)

	byID, err := s.ListIngredientsByIDs(ctx, []string{clean.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "Pimienta negra", byID[0].Name)
}

func TestImagesAuditAndRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ing := insertIngredient(t, s, "Romero", "Rosemary")

	require.NoError(t, s.InsertImage(ctx, &model.RealImage{IngredientID: ing.ID, URL: "https://img.example.com/romero.jpg", Approved: true, Source: "ai_research"}))
	urls, err := s.ListImageURLs(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example.com/romero.jpg"}, urls)

	require.NoError(t, s.InsertAudit(ctx, &model.AuditEntry{Action: "content_save", UserID: "u1", Details: "{}"}))
	entries, err := s.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "content_save", entries[0].Action)

	_, err = s.UserRole(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.SetUserRole(ctx, "u1", "chef@example.com", "editor"))
	require.NoError(t, s.SetUserRole(ctx, "u1", "chef@example.com", "admin"))
	role, err := s.UserRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)
}
