package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	errProviderExists = errors.New("provider already registered")
	errCommandExists  = errors.New("command already registered")

	// ErrUnknownCommand возвращается для незарегистрированного имени.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidArguments возвращается при отсутствующих или неверных аргументах.
	ErrInvalidArguments = errors.New("invalid arguments")
)

type entry struct {
	provider string
	handler  Handler
}

// Registry - неизменяемая таблица имя команды -> обработчик.
// Строится один раз при старте, дальше только читается.
type Registry struct {
	commands  map[string]entry
	providers []string
	logger    *slog.Logger
}

// Option настраивает Registry при построении.
type Option func(*Registry)

// WithLogger задает логгер для вызовов.
func WithLogger(lg *slog.Logger) Option {
	return func(r *Registry) {
		if lg != nil {
			r.logger = lg
		}
	}
}

// NewRegistry инициализирует модули и собирает таблицу команд.
// Имена модулей и команд должны быть уникальны.
func NewRegistry(ctx context.Context, providers []CommandProvider, opts ...Option) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]entry),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	seen := make(map[string]struct{}, len(providers))
	for _, provider := range providers {
		if provider == nil {
			return nil, fmt.Errorf("provider is nil: %w", ErrInvalidArguments)
		}
		name := provider.Name()
		if name == "" {
			return nil, fmt.Errorf("provider name is empty: %w", ErrInvalidArguments)
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("%s: %w", name, errProviderExists)
		}
		if err := provider.Init(ctx); err != nil {
			return nil, fmt.Errorf("init %s: %w", name, err)
		}
		for _, cmd := range provider.Commands() {
			if cmd.Name == "" || cmd.Handler == nil {
				return nil, fmt.Errorf("%s: command without name or handler: %w", name, ErrInvalidArguments)
			}
			if prev, exists := r.commands[cmd.Name]; exists {
				return nil, fmt.Errorf("%s (from %s, already in %s): %w", cmd.Name, name, prev.provider, errCommandExists)
			}
			r.commands[cmd.Name] = entry{provider: name, handler: cmd.Handler}
		}
		seen[name] = struct{}{}
		r.providers = append(r.providers, name)
	}
	return r, nil
}

// Execute вызывает команду по имени. Ошибка обработчика отражается
// в Response и возвращается вторым значением.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (Response, error) {
	e, ok := r.commands[name]
	if !ok {
		return Response{Status: StatusError, ErrorCode: CodeCommandNotFound, Message: "unknown command " + name},
			fmt.Errorf("%s: %w", name, ErrUnknownCommand)
	}
	if args == nil {
		args = Args{}
	}
	inv := Invocation{ID: uuid.NewString(), Command: name, Args: args, Started: time.Now()}

	data, err := e.handler(ctx, inv.Args)
	lg := r.logger.With("invocation_id", inv.ID, "command", inv.Command, "module", e.provider, "duration", time.Since(inv.Started))
	if err != nil {
		resp := failureResponse(err)
		resp.InvocationID = inv.ID
		lg.Warn("command failed", "error_code", resp.ErrorCode, "err", err)
		return resp, err
	}
	lg.Debug("command executed")
	return Response{Status: StatusOK, Data: data, InvocationID: inv.ID}, nil
}

func failureResponse(err error) Response {
	resp := Response{Status: StatusError, Message: err.Error()}
	if kind, ok := KindOf(err); ok {
		resp.ErrorCode = string(kind)
		return resp
	}
	switch {
	case errors.Is(err, ErrInvalidArguments):
		resp.ErrorCode = CodeInvalidArguments
	default:
		resp.ErrorCode = CodeInternal
	}
	return resp
}

// Has сообщает, зарегистрирована ли команда.
func (r *Registry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Commands возвращает отсортированный список команд.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Providers возвращает список модулей в порядке регистрации.
func (r *Registry) Providers() []string {
	return append([]string(nil), r.providers...)
}
