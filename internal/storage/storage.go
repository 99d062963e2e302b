package storage

import "context"

// ExecResult - итог запроса, не возвращающего строк.
type ExecResult struct {
	RowsAffected int64 `json:"rowsAffected"`
	LastInsertID int64 `json:"lastInsertId"`
}

// Row - строка выборки: имя колонки -> значение.
type Row map[string]interface{}

// Store описывает операции хранилища.
type Store interface {
	Execute(ctx context.Context, query string, args ...interface{}) (ExecResult, error)
	Select(ctx context.Context, query string, args ...interface{}) ([]Row, error)
	Close() error
}
