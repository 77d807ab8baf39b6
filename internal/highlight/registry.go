package highlight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/twin-viewer/internal/eventbus"
	"github.com/annel0/twin-viewer/internal/logging"
	"github.com/annel0/twin-viewer/internal/scene"
)

// Registry владеет контурами подсветки и отображением elementID → цель.
//
// Инварианты:
//   - не более одного Hull на цель; повторная регистрация — no-op;
//   - id ссылается не более чем на одну цель; повторная привязка молча
//     перезаписывает предыдущую;
//   - цель подсвечена тогда и только тогда, когда её Hull видим.
//
// Доменные ошибки (неизвестный id, цель без геометрии) поглощаются с
// предупреждением в лог; жёсткую ошибку возвращает только валидация
// аргументов при регистрации.
type Registry struct {
	mu           sync.RWMutex
	hulls        map[*scene.Object]*Hull
	ids          map[string]*scene.Object // Ключи в нижнем регистре
	defaultColor Color
}

// NewRegistry создаёт реестр подсветки с указанным цветом по умолчанию
func NewRegistry(defaultColor Color) *Registry {
	return &Registry{
		hulls:        make(map[*scene.Object]*Hull),
		ids:          make(map[string]*scene.Object),
		defaultColor: defaultColor,
	}
}

// DefaultColor возвращает цвет подсветки по умолчанию
func (r *Registry) DefaultColor() Color {
	return r.defaultColor
}

// RegisterTarget регистрирует цель и создаёт для неё невидимый контур.
// Повторная регистрация — no-op. Цель без геометрии логируется и
// пропускается. Если цель несёт аннотацию ElementID, она автоматически
// попадает в отображение id → цель.
func (r *Registry) RegisterTarget(obj *scene.Object) error {
	if obj == nil {
		return fmt.Errorf("highlight: nil цель при регистрации")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureHullLocked(obj)
	return nil
}

// RegisterTargetID регистрирует цель и привязывает к ней логический id.
// Существующая привязка id перезаписывается молча.
func (r *Registry) RegisterTargetID(id string, obj *scene.Object) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("highlight: пустой elementID при регистрации")
	}
	if obj == nil {
		return fmt.Errorf("highlight: nil цель для elementID %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureHullLocked(obj)
	r.ids[strings.ToLower(id)] = obj
	return nil
}

// RegisterScene массово регистрирует все аннотированные объекты сцены.
// Возвращает количество успешно привязанных элементов.
func (r *Registry) RegisterScene(s *scene.Scene) int {
	if s == nil {
		logging.Warn("Highlight: RegisterScene вызван с nil сценой")
		return 0
	}

	count := 0
	for _, obj := range s.Annotated() {
		if err := r.RegisterTargetID(obj.ElementID, obj); err != nil {
			logging.Warn("Highlight: не удалось зарегистрировать %s: %v", obj.Name, err)
			continue
		}
		count++
	}

	logging.Info("Highlight: зарегистрировано %d элементов сцены", count)
	return count
}

// IsRegistered проверяет, привязан ли id к цели (без учёта регистра)
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[strings.ToLower(id)]
	return ok
}

// RegisteredIDs возвращает снимок всех привязанных идентификаторов
func (r *Registry) RegisteredIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.ids))
	for id := range r.ids {
		result = append(result, id)
	}
	return result
}

// Enable включает подсветку цели. Контур создаётся при необходимости
// (авторегистрация). Цвет берётся из аргумента, иначе — по умолчанию.
// Идемпотентно.
func (r *Registry) Enable(obj *scene.Object, color ...Color) {
	if obj == nil {
		logging.Warn("Highlight: Enable вызван с nil целью")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.enableLocked(obj, color...)
}

// Disable выключает подсветку цели; no-op, если контура нет
func (r *Registry) Disable(obj *scene.Object) {
	if obj == nil {
		logging.Warn("Highlight: Disable вызван с nil целью")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.disableLocked(obj)
}

// Toggle переключает подсветку цели
func (r *Registry) Toggle(obj *scene.Object, color ...Color) {
	if obj == nil {
		logging.Warn("Highlight: Toggle вызван с nil целью")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if hull, ok := r.hulls[obj]; ok && hull.Visible() {
		r.disableLocked(obj)
	} else {
		r.enableLocked(obj, color...)
	}
}

// EnableID включает подсветку по логическому id.
// Неизвестный id не создаёт привязку — только предупреждение в лог.
func (r *Registry) EnableID(id string, color ...Color) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.lookupLocked(id)
	if !ok {
		return
	}
	r.enableLocked(obj, color...)
}

// DisableID выключает подсветку по логическому id
func (r *Registry) DisableID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.lookupLocked(id)
	if !ok {
		return
	}
	r.disableLocked(obj)
}

// ToggleID переключает подсветку по логическому id
func (r *Registry) ToggleID(id string, color ...Color) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.lookupLocked(id)
	if !ok {
		return
	}

	if hull, exists := r.hulls[obj]; exists && hull.Visible() {
		r.disableLocked(obj)
	} else {
		r.enableLocked(obj, color...)
	}
}

// IsHighlighted сообщает, подсвечена ли цель
func (r *Registry) IsHighlighted(obj *scene.Object) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hull, ok := r.hulls[obj]
	return ok && hull.Visible()
}

// IsHighlightedID сообщает, подсвечен ли элемент с данным id
func (r *Registry) IsHighlightedID(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.ids[strings.ToLower(id)]
	if !ok {
		return false
	}
	hull, ok := r.hulls[obj]
	return ok && hull.Visible()
}

// HighlightedIDs возвращает снимок подсвеченных элементов и их цветов
func (r *Registry) HighlightedIDs() map[string]Color {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Color)
	for id, obj := range r.ids {
		if hull, ok := r.hulls[obj]; ok && hull.Visible() {
			result[id] = hull.Color()
		}
	}
	return result
}

// HullFor возвращает контур цели, если он существует
func (r *Registry) HullFor(obj *scene.Object) (*Hull, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hull, ok := r.hulls[obj]
	return hull, ok
}

// HullCount возвращает количество созданных контуров
func (r *Registry) HullCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hulls)
}

// === Внутренние методы (вызываются под блокировкой) ===

// ensureHullLocked возвращает контур цели, создавая его при необходимости.
// Возвращает nil, если у цели нет геометрии.
func (r *Registry) ensureHullLocked(obj *scene.Object) *Hull {
	if hull, ok := r.hulls[obj]; ok {
		return hull
	}

	if !obj.HasGeometry() {
		logging.Warn("Highlight: у объекта %s нет отображаемой геометрии, контур не создан", obj.Name)
		return nil
	}

	hull := newHull(obj, r.defaultColor)
	r.hulls[obj] = hull

	if obj.ElementID != "" {
		r.ids[strings.ToLower(obj.ElementID)] = obj
	}

	logging.Debug("Highlight: создан контур для объекта %s (mesh=%s)", obj.Name, obj.Mesh)
	return hull
}

// lookupLocked разрешает id в живую цель; неизвестные и удалённые цели
// логируются и возвращают false
func (r *Registry) lookupLocked(id string) (*scene.Object, bool) {
	obj, ok := r.ids[strings.ToLower(id)]
	if !ok {
		logging.Warn("Highlight: неизвестный elementID %q", id)
		return nil, false
	}

	if !obj.Alive() {
		// Цель уничтожена сценой — контур недействителен
		logging.Warn("Highlight: объект элемента %q удалён из сцены", id)
		delete(r.hulls, obj)
		return nil, false
	}

	return obj, true
}

// enableLocked делает контур видимым с нужным цветом
func (r *Registry) enableLocked(obj *scene.Object, color ...Color) {
	if !obj.Alive() {
		logging.Warn("Highlight: объект %s удалён из сцены, подсветка невозможна", obj.Name)
		delete(r.hulls, obj)
		return
	}

	hull := r.ensureHullLocked(obj)
	if hull == nil {
		return
	}

	c := r.defaultColor
	if len(color) > 0 {
		c = color[0]
	}

	// Событие публикуем только при фактическом изменении состояния
	changed := !hull.Visible() || hull.Color() != c

	hull.SetColor(c)
	hull.setVisible(true)
	if changed {
		publishHighlightChanged(obj, c, true)
	}
}

// disableLocked скрывает контур, если он существует
func (r *Registry) disableLocked(obj *scene.Object) {
	hull, ok := r.hulls[obj]
	if !ok {
		logging.Debug("Highlight: у объекта %s нет контура, Disable пропущен", obj.Name)
		return
	}

	if !hull.Visible() {
		return
	}

	hull.setVisible(false)
	publishHighlightChanged(obj, hull.Color(), false)
}

// highlightChangedEvent — полезная нагрузка события HighlightChanged
type highlightChangedEvent struct {
	ObjectName string `json:"object_name"`
	ElementID  string `json:"element_id,omitempty"`
	Color      string `json:"color"`
	Visible    bool   `json:"visible"`
}

// publishHighlightChanged отправляет событие в глобальную шину
func publishHighlightChanged(obj *scene.Object, c Color, visible bool) {
	payload, err := json.Marshal(highlightChangedEvent{
		ObjectName: obj.Name,
		ElementID:  obj.ElementID,
		Color:      c.Hex(),
		Visible:    visible,
	})
	if err != nil {
		return
	}

	_ = eventbus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "highlight-registry",
		EventType: "HighlightChanged",
		Version:   1,
		Payload:   payload,
	})
}
