package files

import (
	"context"
	"os"

	"deskshell/internal/core"
)

// Module сохраняет и читает текстовые файлы по путям, выбранным в UI.
type Module struct {
	perm os.FileMode
}

// New создает модуль; perm - права для новых файлов (0 -> 0644).
func New(perm os.FileMode) *Module {
	if perm == 0 {
		perm = 0o644
	}
	return &Module{perm: perm}
}

func (m *Module) Name() string                   { return "files" }
func (m *Module) Init(ctx context.Context) error { return nil }

func (m *Module) Commands() []core.Command {
	return []core.Command{
		{Name: "save_text_file", Handler: m.save},
		{Name: "read_text_file", Handler: m.read},
	}
}

func (m *Module) save(ctx context.Context, args core.Args) (interface{}, error) {
	path, err := args.String("path")
	if err != nil {
		return nil, err
	}
	contents, err := args.String("contents")
	if err != nil {
		return nil, err
	}
	// #nosec G306 -- права задаются конфигурацией.
	if err := os.WriteFile(path, []byte(contents), m.perm); err != nil {
		return nil, core.IOFailure("Failed to write file", err)
	}
	return nil, nil
}

func (m *Module) read(ctx context.Context, args core.Args) (interface{}, error) {
	path, err := args.String("path")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- путь выбран пользователем в UI.
	if err != nil {
		return nil, core.IOFailure("Failed to read file", err)
	}
	return string(data), nil
}
