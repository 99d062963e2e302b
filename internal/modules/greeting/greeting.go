package greeting

import (
	"context"
	"fmt"

	"deskshell/internal/core"
)

// Module отвечает на приветствие из UI.
type Module struct{}

func (m *Module) Name() string                   { return "greeting" }
func (m *Module) Init(ctx context.Context) error { return nil }

func (m *Module) Commands() []core.Command {
	return []core.Command{{Name: "greet", Handler: greet}}
}

func greet(ctx context.Context, args core.Args) (interface{}, error) {
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}
	return Message(name), nil
}

// Message форматирует приветствие.
func Message(name string) string {
	return fmt.Sprintf("Bonjour, %s! Bienvenue dans votre application.", name)
}
