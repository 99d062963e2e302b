package core

import (
	"context"
	"time"
)

// Response описывает унифицированный результат выполнения команды.
type Response struct {
	Status       string      `json:"status"`
	Data         interface{} `json:"data,omitempty"`
	ErrorCode    string      `json:"error_code,omitempty"`
	Message      string      `json:"message,omitempty"`
	InvocationID string      `json:"invocation_id,omitempty"`
}

// Статусы ответа.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Коды ошибок уровня диспетчера.
const (
	CodeCommandNotFound  = "command_not_found"
	CodeInvalidArguments = "invalid_arguments"
	CodeInternal         = "internal_error"
)

// Handler исполняет одну команду.
type Handler func(ctx context.Context, args Args) (interface{}, error)

// Command связывает имя команды с обработчиком.
type Command struct {
	Name    string
	Handler Handler
}

// CommandProvider определяет контракт для модулей.
type CommandProvider interface {
	Name() string
	Init(ctx context.Context) error
	Commands() []Command
}

// Invocation живет ровно один цикл запрос/ответ.
type Invocation struct {
	ID      string
	Command string
	Args    Args
	Started time.Time
}
