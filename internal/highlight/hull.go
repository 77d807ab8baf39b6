package highlight

import (
	"sync"

	"github.com/annel0/twin-viewer/internal/scene"
)

// Hull представляет вспомогательный контурный объект поверх цели.
// Повторяет геометрию цели, но несёт собственный параметр цвета и флаг
// видимости, чтобы не мутировать общий материал цели. Ровно один Hull
// существует на зарегистрированную цель; владеет им только Registry.
type Hull struct {
	target *scene.Object

	mu      sync.RWMutex
	color   Color
	visible bool
}

// newHull создаёт невидимый контур для цели
func newHull(target *scene.Object, color Color) *Hull {
	return &Hull{
		target: target,
		color:  color,
	}
}

// Target возвращает цель, к которой привязан контур
func (h *Hull) Target() *scene.Object {
	return h.target
}

// Mesh возвращает имя геометрии контура (совпадает с геометрией цели)
func (h *Hull) Mesh() string {
	return h.target.Mesh
}

// Color возвращает текущий цвет контура
func (h *Hull) Color() Color {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.color
}

// SetColor устанавливает цвет контура
func (h *Hull) SetColor(c Color) {
	h.mu.Lock()
	h.color = c
	h.mu.Unlock()
}

// Visible сообщает, отображается ли контур
func (h *Hull) Visible() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.visible
}

// setVisible переключает видимость контура
func (h *Hull) setVisible(v bool) {
	h.mu.Lock()
	h.visible = v
	h.mu.Unlock()
}
