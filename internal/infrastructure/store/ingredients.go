package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"horeca-ingredients/internal/core/model"

	"github.com/jmoiron/sqlx"
)

const ingredientColumns = `id, name, name_en, name_fr, name_it, name_pt, name_la, description, category_id,
	season, origin, shrinkage, yield_percent, popularity, created_at`

// ListIngredientRefs 取得所有食材的名稱快照
func (s *Store) ListIngredientRefs(ctx context.Context) ([]model.IngredientRef, error) {
	var refs []model.IngredientRef
	err := s.db.SelectContext(ctx, &refs,
		`SELECT id, name, name_en, name_fr, name_it, name_pt, name_la FROM ingredients`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredient names: %w", err)
	}
	return refs, nil
}

// InsertIngredient 新增食材；ID 與建立時間為空時自動補上
func (s *Store) InsertIngredient(ctx context.Context, ing *model.Ingredient) error {
	if ing.ID == "" {
		ing.ID = newID()
	}
	if ing.CreatedAt.IsZero() {
		ing.CreatedAt = now()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES (:id, :name, :name_en, :name_fr, :name_it, :name_pt, :name_la, :description, :category_id,
			:season, :origin, :shrinkage, :yield_percent, :popularity, :created_at)`, ing)
	if err != nil {
		return fmt.Errorf("failed to insert ingredient: %w", err)
	}
	return nil
}

// GetIngredient 依 ID 取得食材
func (s *Store) GetIngredient(ctx context.Context, id string) (*model.Ingredient, error) {
	var ing model.Ingredient
	err := s.db.GetContext(ctx, &ing, s.db.Rebind(`SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ing, nil
}

// ListIngredients 依建立時間取得食材，limit <= 0 表示不限
func (s *Store) ListIngredients(ctx context.Context, limit int) ([]model.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY created_at`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []model.Ingredient
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return out, nil
}

// ListIngredientsByIDs 依 ID 清單取得食材
func (s *Store) ListIngredientsByIDs(ctx context.Context, ids []string) ([]model.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+ingredientColumns+` FROM ingredients WHERE id IN (?) ORDER BY created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	var out []model.Ingredient
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list ingredients by id: %w", err)
	}
	return out, nil
}

// ListIngredientsNeedingPriceReview 取得沒有價格或價格被標記待審的食材
func (s *Store) ListIngredientsNeedingPriceReview(ctx context.Context, flagPrefix string, limit int) ([]model.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients i
		WHERE NOT EXISTS (SELECT 1 FROM ingredient_prices p WHERE p.ingredient_id = i.id)
		   OR EXISTS (SELECT 1 FROM ingredient_prices p WHERE p.ingredient_id = i.id AND p.season_variation LIKE ?)
		ORDER BY i.created_at`
	args := []any{flagPrefix + "%"}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []model.Ingredient
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list ingredients needing review: %w", err)
	}
	return out, nil
}

// GetCategoryByName 依名稱取得分類
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := s.db.GetContext(ctx, &c,
		s.db.Rebind(`SELECT id, name, name_en, description, created_at FROM categories WHERE name = ?`), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// CreateCategory 新增分類，名稱重複時回傳 ErrDuplicate
func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO categories (id, name, name_en, description, created_at)
		 VALUES (:id, :name, :name_en, :description, :created_at)`, c)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", c.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// ListCategoryNames 取得所有分類名稱
func (s *Store) ListCategoryNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT name FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return names, nil
}

// InsertNutrition 新增營養資訊
func (s *Store) InsertNutrition(ctx context.Context, n *model.NutritionalInfo) error {
	if n.ID == "" {
		n.ID = newID()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO nutritional_info (id, ingredient_id, calories, protein, carbs, fat, fiber, vitamins)
		 VALUES (:id, :ingredient_id, :calories, :protein, :carbs, :fat, :fiber, :vitamins)`, n)
	if err != nil {
		return fmt.Errorf("failed to insert nutritional info: %w", err)
	}
	return nil
}

// InsertUses 批次新增用途
func (s *Store) InsertUses(ctx context.Context, uses []model.Use) error {
	if len(uses) == 0 {
		return nil
	}
	for i := range uses {
		if uses[i].ID == "" {
			uses[i].ID = newID()
		}
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO ingredient_uses (id, ingredient_id, description) VALUES (:id, :ingredient_id, :description)`, uses)
	if err != nil {
		return fmt.Errorf("failed to insert uses: %w", err)
	}
	return nil
}

// InsertRecipes 批次新增食譜
func (s *Store) InsertRecipes(ctx context.Context, recipes []model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	for i := range recipes {
		if recipes[i].ID == "" {
			recipes[i].ID = newID()
		}
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO ingredient_recipes (id, ingredient_id, name, recipe_type, difficulty, prep_time)
		 VALUES (:id, :ingredient_id, :name, :recipe_type, :difficulty, :prep_time)`, recipes)
	if err != nil {
		return fmt.Errorf("failed to insert recipes: %w", err)
	}
	return nil
}

// InsertVarieties 批次新增品種
func (s *Store) InsertVarieties(ctx context.Context, varieties []model.Variety) error {
	if len(varieties) == 0 {
		return nil
	}
	for i := range varieties {
		if varieties[i].ID == "" {
			varieties[i].ID = newID()
		}
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO ingredient_varieties (id, ingredient_id, name, description)
		 VALUES (:id, :ingredient_id, :name, :description)`, varieties)
	if err != nil {
		return fmt.Errorf("failed to insert varieties: %w", err)
	}
	return nil
}

// ChildCounts 食材各子表筆數，供檢查與測試使用
type ChildCounts struct {
	Prices    int `db:"prices"`
	Nutrition int `db:"nutrition"`
	Uses      int `db:"uses"`
	Recipes   int `db:"recipes"`
	Varieties int `db:"varieties"`
}

// CountChildren 統計食材子表筆數
func (s *Store) CountChildren(ctx context.Context, ingredientID string) (*ChildCounts, error) {
	var c ChildCounts
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`SELECT
		(SELECT COUNT(*) FROM ingredient_prices WHERE ingredient_id = ?) AS prices,
		(SELECT COUNT(*) FROM nutritional_info WHERE ingredient_id = ?) AS nutrition,
		(SELECT COUNT(*) FROM ingredient_uses WHERE ingredient_id = ?) AS uses,
		(SELECT COUNT(*) FROM ingredient_recipes WHERE ingredient_id = ?) AS recipes,
		(SELECT COUNT(*) FROM ingredient_varieties WHERE ingredient_id = ?) AS varieties`),
		ingredientID, ingredientID, ingredientID, ingredientID, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("failed to count children: %w", err)
	}
	return &c, nil
}
