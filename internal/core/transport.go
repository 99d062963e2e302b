package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	errTransportExists = errors.New("transport already registered")
)

// TransportAdapter определяет жизненный цикл входного транспорта.
// Start не блокирует: обслуживание идет в фоне до Stop или отмены ctx.
type TransportAdapter interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TransportManager управляет запуском и остановкой транспортов.
type TransportManager struct {
	mu         sync.Mutex
	transports map[string]TransportAdapter
}

// NewTransportManager создает пустой менеджер транспортов.
func NewTransportManager() *TransportManager {
	return &TransportManager{transports: make(map[string]TransportAdapter)}
}

// Register добавляет транспорт; имена должны быть уникальны.
func (m *TransportManager) Register(adapter TransportAdapter) error {
	if adapter == nil {
		return fmt.Errorf("transport is nil: %w", ErrInvalidArguments)
	}
	name := adapter.Name()
	if name == "" {
		return fmt.Errorf("transport name is empty: %w", ErrInvalidArguments)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transports[name]; exists {
		return fmt.Errorf("%s: %w", name, errTransportExists)
	}
	m.transports[name] = adapter
	return nil
}

// Names возвращает отсортированные имена транспортов.
func (m *TransportManager) Names() []string {
	list := m.snapshot()
	names := make([]string, 0, len(list))
	for _, tr := range list {
		names = append(names, tr.Name())
	}
	sort.Strings(names)
	return names
}

// StartAll запускает все транспорты параллельно; первая ошибка возвращается.
// Транспорты получают ctx вызывающего: контекст errgroup отменяется на выходе из Wait.
func (m *TransportManager) StartAll(ctx context.Context) error {
	var g errgroup.Group
	for _, tr := range m.snapshot() {
		g.Go(func() error {
			if err := tr.Start(ctx); err != nil {
				return fmt.Errorf("start transport %s: %w", tr.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// StopAll останавливает все транспорты, собирая ошибки.
func (m *TransportManager) StopAll(ctx context.Context) error {
	var errs []error
	for _, tr := range m.snapshot() {
		if err := tr.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop transport %s: %w", tr.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *TransportManager) snapshot() []TransportAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]TransportAdapter, 0, len(m.transports))
	for _, tr := range m.transports {
		list = append(list, tr)
	}
	return list
}
