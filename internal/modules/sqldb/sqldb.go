// Package sqldb дает UI доступ к локальным базам SQLite: load, execute,
// select и close по строке подключения вида "sqlite:<путь>".
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"deskshell/internal/core"
	"deskshell/internal/storage"
	"deskshell/internal/storage/sqlite"
)

const scheme = "sqlite:"

// Opener открывает хранилище по пути к файлу.
type Opener func(ctx context.Context, path string) (storage.Store, error)

// Module держит открытые подключения, по одному на строку подключения.
type Module struct {
	dataDir string
	open    Opener

	mu    sync.Mutex
	conns map[string]storage.Store
}

// New создает модуль; относительные пути разрешаются от dataDir.
func New(dataDir string, open Opener) *Module {
	if open == nil {
		open = func(ctx context.Context, path string) (storage.Store, error) {
			return sqlite.Open(ctx, path)
		}
	}
	return &Module{dataDir: dataDir, open: open, conns: make(map[string]storage.Store)}
}

func (m *Module) Name() string { return "sqldb" }

func (m *Module) Init(ctx context.Context) error {
	if m.dataDir == "" {
		return errors.New("data dir is empty")
	}
	return nil
}

func (m *Module) Commands() []core.Command {
	return []core.Command{
		{Name: "sql_load", Handler: m.load},
		{Name: "sql_execute", Handler: m.execute},
		{Name: "sql_select", Handler: m.selectRows},
		{Name: "sql_close", Handler: m.closeDB},
	}
}

// Loaded возвращает отсортированный список открытых подключений.
func (m *Module) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.conns))
	for db := range m.conns {
		out = append(out, db)
	}
	sort.Strings(out)
	return out
}

// Close закрывает все подключения.
func (m *Module) Close() error {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]storage.Store)
	m.mu.Unlock()

	var errs []error
	for db, st := range conns {
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", db, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Module) resolve(db string) (string, error) {
	if !strings.HasPrefix(db, scheme) {
		return "", fmt.Errorf("db %q must start with %q: %w", db, scheme, core.ErrInvalidArguments)
	}
	path := strings.TrimPrefix(db, scheme)
	if path == "" {
		return "", fmt.Errorf("db %q has empty path: %w", db, core.ErrInvalidArguments)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.dataDir, path)
	}
	return path, nil
}

func (m *Module) load(ctx context.Context, args core.Args) (interface{}, error) {
	db, err := args.String("db")
	if err != nil {
		return nil, err
	}
	path, err := m.resolve(db)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[db]; ok {
		return db, nil
	}
	st, err := m.open(ctx, path)
	if err != nil {
		return nil, core.IOFailure("Failed to load database", err)
	}
	m.conns[db] = st
	return db, nil
}

func (m *Module) store(args core.Args) (storage.Store, error) {
	db, err := args.String("db")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	st, ok := m.conns[db]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("database %s is not loaded: %w", db, core.ErrInvalidArguments)
	}
	return st, nil
}

func queryArgs(args core.Args) (string, []interface{}, error) {
	query, err := args.String("query")
	if err != nil {
		return "", nil, err
	}
	var values []interface{}
	if _, err := args.DecodeOptional("values", &values); err != nil {
		return "", nil, err
	}
	return query, values, nil
}

func (m *Module) execute(ctx context.Context, args core.Args) (interface{}, error) {
	st, err := m.store(args)
	if err != nil {
		return nil, err
	}
	query, values, err := queryArgs(args)
	if err != nil {
		return nil, err
	}
	res, err := st.Execute(ctx, query, values...)
	if err != nil {
		return nil, core.IOFailure("SQL execute failed", err)
	}
	return res, nil
}

func (m *Module) selectRows(ctx context.Context, args core.Args) (interface{}, error) {
	st, err := m.store(args)
	if err != nil {
		return nil, err
	}
	query, values, err := queryArgs(args)
	if err != nil {
		return nil, err
	}
	rows, err := st.Select(ctx, query, values...)
	if err != nil {
		return nil, core.IOFailure("SQL select failed", err)
	}
	return rows, nil
}

// closeDB закрывает одно подключение или все, если db не передан.
func (m *Module) closeDB(ctx context.Context, args core.Args) (interface{}, error) {
	var db string
	ok, err := args.DecodeOptional("db", &db)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := m.Close(); err != nil {
			return nil, core.IOFailure("Failed to close database", err)
		}
		return true, nil
	}

	m.mu.Lock()
	st, found := m.conns[db]
	delete(m.conns, db)
	m.mu.Unlock()
	if !found {
		return false, nil
	}
	if err := st.Close(); err != nil {
		return nil, core.IOFailure("Failed to close database", err)
	}
	return true, nil
}
