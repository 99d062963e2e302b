package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Args - именованные аргументы вызова в виде JSON-объекта.
type Args map[string]json.RawMessage

// ParseArgs разбирает тело вызова; пустое тело и null дают пустой набор.
func ParseArgs(data []byte) (Args, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Args{}, nil
	}
	var args Args
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("args must be a json object: %w", ErrInvalidArguments)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// ArgsFromPairs строит Args из пар key=value. Значение, которое
// разбирается как JSON, берется как есть, иначе как строка.
func ArgsFromPairs(pairs []string) (Args, error) {
	args := make(Args, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value: %w", p, ErrInvalidArguments)
		}
		if json.Valid([]byte(value)) {
			args[key] = json.RawMessage(value)
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode argument %s: %w", key, err)
		}
		args[key] = raw
	}
	return args, nil
}

// Decode декодирует обязательный аргумент name в v.
func (a Args) Decode(name string, v interface{}) error {
	raw, ok := a.lookup(name)
	if !ok {
		return fmt.Errorf("missing argument %s: %w", name, ErrInvalidArguments)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("argument %s: %v: %w", name, err, ErrInvalidArguments)
	}
	return nil
}

// DecodeOptional декодирует аргумент, если он передан и не равен null.
func (a Args) DecodeOptional(name string, v interface{}) (bool, error) {
	raw, ok := a.lookup(name)
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("argument %s: %v: %w", name, err, ErrInvalidArguments)
	}
	return true, nil
}

// String возвращает строковый аргумент. Число, bool, объект или массив
// отдаются своим JSON-текстом: так key=value из CLI не зависит от того,
// похоже ли значение на JSON.
func (a Args) String(name string) (string, error) {
	raw, ok := a.lookup(name)
	if !ok {
		return "", fmt.Errorf("missing argument %s: %w", name, ErrInvalidArguments)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !json.Valid(trimmed) {
		return "", fmt.Errorf("argument %s: expected string: %w", name, ErrInvalidArguments)
	}
	return string(trimmed), nil
}

// Float возвращает числовой аргумент.
func (a Args) Float(name string) (float64, error) {
	var f float64
	err := a.Decode(name, &f)
	return f, err
}

// lookup ищет имя как есть, затем его camelCase-вариант (json_str -> jsonStr).
func (a Args) lookup(name string) (json.RawMessage, bool) {
	if raw, ok := a[name]; ok {
		return raw, true
	}
	raw, ok := a[camelCase(name)]
	return raw, ok
}

func camelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
