package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"horeca-ingredients/internal/core/model"

	"github.com/jmoiron/sqlx"
)

// ListCountries 取得所有國家
func (s *Store) ListCountries(ctx context.Context) ([]model.Country, error) {
	var out []model.Country
	if err := s.db.SelectContext(ctx, &out, `SELECT id, code, name, currency FROM countries ORDER BY code`); err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	return out, nil
}

// CountryByCode 依 ISO 代碼取得國家
func (s *Store) CountryByCode(ctx context.Context, code string) (*model.Country, error) {
	var c model.Country
	err := s.db.GetContext(ctx, &c,
		s.db.Rebind(`SELECT id, code, name, currency FROM countries WHERE code = ?`), strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get country: %w", err)
	}
	return &c, nil
}

const insertPriceSQL = `INSERT INTO ingredient_prices (id, ingredient_id, country_id, price, unit, season_variation, created_at)
	VALUES (:id, :ingredient_id, :country_id, :price, :unit, :season_variation, :created_at)`

func preparePrices(prices []model.Price) {
	ts := now()
	for i := range prices {
		if prices[i].ID == "" {
			prices[i].ID = newID()
		}
		if prices[i].CreatedAt.IsZero() {
			prices[i].CreatedAt = ts
		}
	}
}

// InsertPrices 批次新增價格
func (s *Store) InsertPrices(ctx context.Context, prices []model.Price) error {
	if len(prices) == 0 {
		return nil
	}
	preparePrices(prices)
	if _, err := s.db.NamedExecContext(ctx, insertPriceSQL, prices); err != nil {
		return fmt.Errorf("failed to insert prices: %w", err)
	}
	return nil
}

// ReplacePrices 在同一交易中刪除食材既有價格並寫入新價格
func (s *Store) ReplacePrices(ctx context.Context, ingredientID string, prices []model.Price) error {
	preparePrices(prices)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM ingredient_prices WHERE ingredient_id = ?`), ingredientID); err != nil {
		return fmt.Errorf("failed to delete prices: %w", err)
	}
	if len(prices) > 0 {
		if _, err := sqlx.NamedExecContext(ctx, tx, insertPriceSQL, prices); err != nil {
			return fmt.Errorf("failed to insert prices: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}
	return nil
}

// ListPrices 取得食材的所有價格
func (s *Store) ListPrices(ctx context.Context, ingredientID string) ([]model.Price, error) {
	var out []model.Price
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`SELECT id, ingredient_id, country_id, price, unit, season_variation, created_at
		FROM ingredient_prices WHERE ingredient_id = ? ORDER BY created_at, id`), ingredientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	return out, nil
}
