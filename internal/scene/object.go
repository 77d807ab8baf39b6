package scene

import (
	"sync"

	"github.com/annel0/twin-viewer/internal/vec"
)

// Object представляет объект сцены цифрового двойника (принтер, стеллаж и т.д.).
// Позиция принадлежит сцене/симуляции и меняется извне (телеметрия);
// подсветка читает её, но не владеет жизненным циклом объекта.
type Object struct {
	Name      string // Имя объекта в сцене
	ElementID string // Аннотация логического элемента (пустая, если объект не адресуемый)
	Mesh      string // Имя исходной геометрии
	Material  string // Имя базового материала (общий ресурс, не мутируется)

	mu       sync.RWMutex
	position vec.Vec3
	alive    bool
}

// NewObject создаёт объект сцены
func NewObject(name, elementID, mesh, material string, position vec.Vec3) *Object {
	return &Object{
		Name:      name,
		ElementID: elementID,
		Mesh:      mesh,
		Material:  material,
		position:  position,
		alive:     true,
	}
}

// HasGeometry проверяет, есть ли у объекта отображаемая геометрия
func (o *Object) HasGeometry() bool {
	return o.Mesh != "" && o.Material != ""
}

// Position возвращает текущую позицию объекта
func (o *Object) Position() vec.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.position
}

// SetPosition обновляет позицию объекта
func (o *Object) SetPosition(p vec.Vec3) {
	o.mu.Lock()
	o.position = p
	o.mu.Unlock()
}

// Alive сообщает, существует ли объект ещё в сцене.
// После удаления из сцены все обращения подсистемы подсветки к объекту
// должны вырождаться в no-op.
func (o *Object) Alive() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.alive
}

// markRemoved помечает объект удалённым из сцены
func (o *Object) markRemoved() {
	o.mu.Lock()
	o.alive = false
	o.mu.Unlock()
}
