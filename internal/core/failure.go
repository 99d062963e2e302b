package core

import (
	"errors"
	"fmt"
)

// FailureKind - закрытый набор видов отказа обработчика.
type FailureKind string

const (
	KindIO         FailureKind = "io_failure"
	KindParse      FailureKind = "parse_failure"
	KindDeliberate FailureKind = "deliberate_test_failure"
)

// Failure - отказ обработчика с человекочитаемым сообщением.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// IOFailure оборачивает ошибку ввода-вывода; текст причины попадает в сообщение.
func IOFailure(prefix string, err error) *Failure {
	return &Failure{Kind: KindIO, Message: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}

// ParseFailure оборачивает ошибку разбора.
func ParseFailure(prefix string, err error) *Failure {
	return &Failure{Kind: KindParse, Message: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}

// DeliberateFailure используется для проверки пути ошибок.
func DeliberateFailure(msg string) *Failure {
	return &Failure{Kind: KindDeliberate, Message: msg}
}

// KindOf возвращает вид отказа, если err содержит *Failure.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
