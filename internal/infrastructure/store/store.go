// Package store 以 sqlx 實作目錄資料的持久化（PostgreSQL 或 SQLite）。
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"horeca-ingredients/internal/pkg/common"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound 查無資料
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 違反唯一性約束
	ErrDuplicate = errors.New("duplicate record")
)

// Config 資料庫連線設定
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store 資料庫存取層
type Store struct {
	db *sqlx.DB
}

// Open 建立連線並驗證可用
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.ConnectContext(ctx, driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// 記憶體資料庫每個連線各自獨立
		if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma foreign_keys: %w", err)
		}
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	return &Store{db: db}, nil
}

// New 使用既有連線
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB 底層連線
func (s *Store) DB() *sqlx.DB { return s.db }

// Ping 檢查資料庫連線
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 關閉連線
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate 套用 schema 並寫入國家種子資料
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO countries (id, code, name, currency) VALUES (?, ?, ?, ?) ON CONFLICT (code) DO NOTHING`)
	for _, c := range seedCountries {
		if _, err := s.db.ExecContext(ctx, query, CountryID(c.code), c.code, c.name, c.currency); err != nil {
			return fmt.Errorf("seed country %s: %w", c.code, err)
		}
	}

	common.LogInfo("資料庫遷移完成", zap.Int("countries", len(seedCountries)))
	return nil
}

var seedCountries = []struct {
	code, name, currency string
}{
	{"ES", "España", "EUR"},
	{"FR", "Francia", "EUR"},
	{"IT", "Italia", "EUR"},
	{"PT", "Portugal", "EUR"},
	{"DE", "Alemania", "EUR"},
	{"GB", "Reino Unido", "GBP"},
	{"US", "Estados Unidos", "USD"},
	{"MX", "México", "MXN"},
	{"AR", "Argentina", "ARS"},
	{"CO", "Colombia", "COP"},
	{"CL", "Chile", "CLP"},
	{"PE", "Perú", "PEN"},
}

// CountryID 由國家代碼推導固定 ID
func CountryID(code string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("country:"+strings.ToUpper(code))).String()
}

// isUniqueViolation 判斷是否違反唯一性約束
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func newID() string {
	return uuid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}
