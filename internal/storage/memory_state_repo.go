package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStateRepo реализует StateRepo в памяти.
// Используется как fallback, когда Redis/MariaDB недоступны,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryStateRepo struct {
	mu    sync.RWMutex
	state *TwinState
}

// NewMemoryStateRepo создает новый репозиторий состояния в памяти.
func NewMemoryStateRepo() *MemoryStateRepo {
	return &MemoryStateRepo{}
}

// Save сохраняет копию снимка в памяти.
func (r *MemoryStateRepo) Save(ctx context.Context, state *TwinState) error {
	if state == nil {
		return fmt.Errorf("memory state repo: nil состояние")
	}

	copied := NewTwinState()
	copied.SavedAt = state.SavedAt
	for k, v := range state.Regions {
		copied.Regions[k] = v
	}
	for k, v := range state.Highlights {
		copied.Highlights[k] = v
	}

	r.mu.Lock()
	r.state = copied
	r.mu.Unlock()
	return nil
}

// Load возвращает копию сохранённого снимка.
func (r *MemoryStateRepo) Load(ctx context.Context) (*TwinState, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.state == nil {
		return nil, false, nil
	}

	copied := NewTwinState()
	copied.SavedAt = r.state.SavedAt
	for k, v := range r.state.Regions {
		copied.Regions[k] = v
	}
	for k, v := range r.state.Highlights {
		copied.Highlights[k] = v
	}
	return copied, true, nil
}

// Delete сбрасывает сохранённое состояние.
func (r *MemoryStateRepo) Delete(ctx context.Context) error {
	r.mu.Lock()
	r.state = nil
	r.mu.Unlock()
	return nil
}

// Close ничего не делает для репозитория в памяти.
func (r *MemoryStateRepo) Close() error {
	return nil
}
