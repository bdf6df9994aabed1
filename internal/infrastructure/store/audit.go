package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"horeca-ingredients/internal/core/model"
)

// InsertAudit 寫入審計日誌
func (s *Store) InsertAudit(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO audit_logs (id, action, user_id, details, created_at)
		 VALUES (:id, :action, :user_id, :details, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// ListAudit 取得最近的審計日誌
func (s *Store) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.AuditEntry
	err := s.db.SelectContext(ctx, &out,
		s.db.Rebind(`SELECT id, action, user_id, details, created_at FROM audit_logs ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return out, nil
}

// UserRole 取得使用者角色
func (s *Store) UserRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, s.db.Rebind(`SELECT role FROM user_roles WHERE user_id = ?`), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}
	return role, nil
}

// SetUserRole 設定使用者角色
func (s *Store) SetUserRole(ctx context.Context, userID, email, role string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO user_roles (user_id, email, role) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET email = excluded.email, role = excluded.role`), userID, email, role)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}
