package host

import "runtime"

// Environment отдает сведения о процессе; в тестах подменяется.
type Environment interface {
	OS() string
	Arch() string
}

type runtimeEnv struct{}

// RuntimeEnvironment читает GOOS/GOARCH текущего бинарника.
func RuntimeEnvironment() Environment { return runtimeEnv{} }

func (runtimeEnv) OS() string   { return runtime.GOOS }
func (runtimeEnv) Arch() string { return runtime.GOARCH }

// StaticEnvironment возвращает фиксированные значения.
type StaticEnvironment struct {
	OSName   string
	ArchName string
}

func (e StaticEnvironment) OS() string   { return e.OSName }
func (e StaticEnvironment) Arch() string { return e.ArchName }
