package storage

import (
	"context"
	"time"
)

// TwinState — снимок состояния подсветки двойника для восстановления
// после перезапуска: активность регионов и видимые подсветки с цветами.
type TwinState struct {
	Regions    map[string]bool   `json:"regions"`    // regionID -> active
	Highlights map[string]string `json:"highlights"` // elementID -> hex-цвет
	SavedAt    time.Time         `json:"saved_at"`
}

// NewTwinState создаёт пустой снимок состояния
func NewTwinState() *TwinState {
	return &TwinState{
		Regions:    make(map[string]bool),
		Highlights: make(map[string]string),
		SavedAt:    time.Now().UTC(),
	}
}

// StateRepo определяет интерфейс для сохранения и загрузки состояния двойника.
// Состояние одно на инсталляцию сервера; реализации: память (CI/локальная
// разработка), Redis (быстрый перезапуск), MariaDB (долговременное хранение).
type StateRepo interface {
	// Save сохраняет снимок состояния в хранилище.
	Save(ctx context.Context, state *TwinState) error

	// Load загружает снимок состояния.
	// Возвращает false, если сохранённого состояния нет (первый запуск).
	Load(ctx context.Context) (*TwinState, bool, error)

	// Delete удаляет сохранённое состояние (для тестов или сброса).
	Delete(ctx context.Context) error

	// Close закрывает соединение с хранилищем.
	Close() error
}
