package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"deskshell/internal/storage"
)

// Store реализует storage.Store поверх SQLite.
type Store struct {
	db *sql.DB
}

// Open создает каталог при необходимости и открывает базу.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Execute выполняет запрос без выборки.
func (s *Store) Execute(ctx context.Context, query string, args ...interface{}) (storage.ExecResult, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storage.ExecResult{}, fmt.Errorf("exec: %w", err)
	}
	var out storage.ExecResult
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return storage.ExecResult{}, fmt.Errorf("rows affected: %w", err)
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return storage.ExecResult{}, fmt.Errorf("last insert id: %w", err)
	}
	return out, nil
}

// Select выполняет запрос и возвращает строки в виде map.
func (s *Store) Select(ctx context.Context, query string, args ...interface{}) ([]storage.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	out := make([]storage.Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(storage.Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// normalize приводит значения драйвера к JSON-дружелюбным типам.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.db.Close()
}
