package store

import (
	"context"
	"fmt"

	"horeca-ingredients/internal/core/model"
)

// ListImageURLs 取得食材已儲存的圖片網址
func (s *Store) ListImageURLs(ctx context.Context, ingredientID string) ([]string, error) {
	var urls []string
	err := s.db.SelectContext(ctx, &urls,
		s.db.Rebind(`SELECT url FROM real_images WHERE ingredient_id = ?`), ingredientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return urls, nil
}

// InsertImage 新增圖片
func (s *Store) InsertImage(ctx context.Context, img *model.RealImage) error {
	if img.ID == "" {
		img.ID = newID()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = now()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO real_images
		(id, ingredient_id, url, caption, category, approved, source, votes, created_at)
		VALUES (:id, :ingredient_id, :url, :caption, :category, :approved, :source, :votes, :created_at)`, img)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}
