package scene

import (
	"fmt"
	"strings"
	"sync"

	"github.com/annel0/twin-viewer/internal/logging"
	"github.com/annel0/twin-viewer/internal/vec"
)

// Scene управляет объектами цифрового двойника и поддерживает индекс
// elementID → объект. Индекс обновляется при добавлении/удалении объектов,
// поэтому разрешение id в позицию выполняется за O(1) вместо полного
// сканирования сцены.
type Scene struct {
	mu      sync.RWMutex
	objects map[*Object]struct{}
	index   map[string]*Object // Ключи в нижнем регистре
}

// NewScene создаёт пустую сцену
func NewScene() *Scene {
	return &Scene{
		objects: make(map[*Object]struct{}),
		index:   make(map[string]*Object),
	}
}

// Add добавляет объект в сцену. Если объект несёт аннотацию ElementID,
// он попадает в индекс; повторная аннотация перезаписывает предыдущий объект.
func (s *Scene) Add(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("scene: nil объект")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[obj] = struct{}{}
	if obj.ElementID != "" {
		key := strings.ToLower(obj.ElementID)
		if prev, ok := s.index[key]; ok && prev != obj {
			logging.Warn("Scene: элемент %s переназначен с объекта %s на %s", obj.ElementID, prev.Name, obj.Name)
		}
		s.index[key] = obj
	}
	return nil
}

// Remove удаляет объект из сцены и помечает его уничтоженным.
// Ссылки на объект, оставшиеся в других подсистемах, становятся недействительными.
func (s *Scene) Remove(obj *Object) {
	if obj == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, obj)
	if obj.ElementID != "" {
		key := strings.ToLower(obj.ElementID)
		if s.index[key] == obj {
			delete(s.index, key)
		}
	}
	obj.markRemoved()
}

// ObjectByID возвращает объект по аннотации элемента (без учёта регистра)
func (s *Scene) ObjectByID(elementID string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.index[strings.ToLower(elementID)]
	return obj, ok
}

// ResolvePosition разрешает elementID в текущую позицию объекта.
// Возвращает false, если элемент неизвестен или объект удалён из сцены.
func (s *Scene) ResolvePosition(elementID string) (vec.Vec3, bool) {
	obj, ok := s.ObjectByID(elementID)
	if !ok || !obj.Alive() {
		return vec.Vec3{}, false
	}
	return obj.Position(), true
}

// SetPosition обновляет позицию аннотированного объекта.
// Возвращает false, если элемент неизвестен.
func (s *Scene) SetPosition(elementID string, pos vec.Vec3) bool {
	obj, ok := s.ObjectByID(elementID)
	if !ok || !obj.Alive() {
		return false
	}
	obj.SetPosition(pos)
	return true
}

// Annotated возвращает срез всех объектов с аннотацией ElementID
func (s *Scene) Annotated() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Object, 0, len(s.index))
	for _, obj := range s.index {
		result = append(result, obj)
	}
	return result
}

// Len возвращает количество объектов в сцене
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
