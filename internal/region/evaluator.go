package region

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/twin-viewer/internal/eventbus"
	"github.com/annel0/twin-viewer/internal/geom"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/logging"
	"github.com/annel0/twin-viewer/internal/vec"
)

// Locator разрешает логический elementID в текущую позицию в сцене.
// Реализуется сценой двойника; Evaluator получает его через конструктор.
type Locator interface {
	ResolvePosition(elementID string) (vec.Vec3, bool)
}

// Evaluator решает, показывать ли запрошенную подсветку, исходя из
// активности региона и пространственного вхождения элемента в его объём.
//
// Машина состояний региона: Inactive → Active → Inactive, переходы только
// явным SetActive. Вход в Active пересчитывает всех участников (внутри →
// включить, снаружи → выключить); вход в Inactive безусловно гасит
// подсветку всех участников.
//
// Запрос к неактивному региону за пределами членства отбрасывается: цвет и
// намерение не сохраняются для повтора при активации. Это сохранённое
// поведение исходной системы, а не упущение.
type Evaluator struct {
	mu       sync.RWMutex
	regions  map[string]*Region // Ключи в нижнем регистре
	registry *highlight.Registry
	locator  Locator

	interval time.Duration
	shutdown chan struct{}
	wg       sync.WaitGroup
	running  bool

	stats evaluatorStats
}

// evaluatorStats содержит счётчики работы оценщика
type evaluatorStats struct {
	evaluations atomic.Int64
	enabled     atomic.Int64
	disabled    atomic.Int64
}

// NewEvaluator создаёт оценщик регионов.
// registry обязателен; locator может отсутствовать — тогда проверки
// вхождения деградируют до no-op с предупреждением.
func NewEvaluator(registry *highlight.Registry, locator Locator, interval time.Duration) (*Evaluator, error) {
	if registry == nil {
		return nil, fmt.Errorf("region: nil реестр подсветки")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &Evaluator{
		regions:  make(map[string]*Region),
		registry: registry,
		locator:  locator,
		interval: interval,
		shutdown: make(chan struct{}),
	}, nil
}

// RegisterRegion создаёт неактивный регион с пустым членством.
// Пустой id или nil объём — ошибка валидации.
func (e *Evaluator) RegisterRegion(id string, volume geom.Volume, color ...highlight.Color) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("region: пустой идентификатор региона")
	}
	if volume == nil {
		return fmt.Errorf("region: nil объём для региона %s", id)
	}

	r := &Region{
		ID:      id,
		Volume:  volume,
		members: make(map[string]struct{}),
	}
	if len(color) > 0 {
		r.Color = color[0]
		r.HasUI = true
	}

	e.mu.Lock()
	key := strings.ToLower(id)
	if _, exists := e.regions[key]; exists {
		logging.Warn("Region: регион %s перерегистрирован, состояние сброшено", id)
	}
	e.regions[key] = r
	e.mu.Unlock()

	logging.Debug("Region: зарегистрирован регион %s", id)
	return nil
}

// AddMember добавляет элемент в членство региона (дубликаты подавляются).
// Неизвестный регион логируется и пропускается.
func (e *Evaluator) AddMember(regionID, elementID string) {
	if strings.TrimSpace(elementID) == "" {
		logging.Warn("Region: пустой elementID для региона %s", regionID)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.regions[strings.ToLower(regionID)]
	if !ok {
		logging.Warn("Region: неизвестный регион %q", regionID)
		return
	}
	r.members[strings.ToLower(elementID)] = struct{}{}
}

// RequestHighlight обрабатывает запрос подсветки элемента в регионе.
//
// Порядок: регион → членство (автодобавление) → известность элемента
// реестру → активность региона → вхождение в объём. Запрос к неактивному
// региону не меняет состояние подсветки; запрос "включить" для элемента вне
// объёма откладывается до перемещения элемента внутрь (при непрерывном
// пересчёте) или до следующего явного запроса.
func (e *Evaluator) RequestHighlight(regionID, elementID string, want bool, color ...highlight.Color) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.regions[strings.ToLower(regionID)]
	if !ok {
		logging.Warn("Region: запрос подсветки в неизвестный регион %q", regionID)
		return
	}

	r.members[strings.ToLower(elementID)] = struct{}{}

	if !e.registry.IsRegistered(elementID) {
		logging.Warn("Region: элемент %q не зарегистрирован в реестре подсветки", elementID)
		return
	}

	if !r.active {
		logging.Debug("Region: регион %s неактивен, запрос для %s отброшен", r.ID, elementID)
		return
	}

	pos, ok := e.resolve(elementID)
	if !ok {
		return
	}

	inside := r.Volume.Contains(pos)

	switch {
	case want && inside:
		e.registry.EnableID(elementID, color...)
		e.stats.enabled.Add(1)
	case !want:
		e.registry.DisableID(elementID)
		e.stats.disabled.Add(1)
	default:
		// Элемент вне объёма — состояние не меняем
		logging.Debug("Region: элемент %s вне объёма региона %s, подсветка отложена", elementID, r.ID)
	}
}

// SetActive выполняет переход машины состояний региона.
// Вход в Active пересчитывает участников; вход в Inactive гасит их всех.
func (e *Evaluator) SetActive(regionID string, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.regions[strings.ToLower(regionID)]
	if !ok {
		logging.Warn("Region: SetActive для неизвестного региона %q", regionID)
		return
	}

	r.active = active

	if active {
		e.evaluateRegionLocked(r)
	} else {
		for member := range r.members {
			e.registry.DisableID(member)
			e.stats.disabled.Add(1)
		}
	}

	logging.Info("Region: регион %s → active=%v (%d участников)", r.ID, active, len(r.members))
	publishRegionStateChanged(r)
}

// IsActive сообщает, активен ли регион
func (e *Evaluator) IsActive(regionID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.regions[strings.ToLower(regionID)]
	return ok && r.active
}

// Regions возвращает снимок состояния всех регионов
func (e *Evaluator) Regions() []Info {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Info, 0, len(e.regions))
	for _, r := range e.regions {
		result = append(result, r.snapshot())
	}
	return result
}

// Start запускает непрерывный пересчёт активных регионов
func (e *Evaluator) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.updateLoop()
	logging.Info("Region: непрерывный пересчёт запущен (интервал %s)", e.interval)
}

// Stop останавливает непрерывный пересчёт
func (e *Evaluator) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.shutdown)
	e.wg.Wait()
}

// Evaluate выполняет один проход пересчёта всех активных регионов.
// Вызывается циклом обновления; доступен и для явного вызова из хоста.
func (e *Evaluator) Evaluate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.regions {
		if r.active {
			e.evaluateRegionLocked(r)
		}
	}
}

// GetStats возвращает строку со счётчиками оценщика
func (e *Evaluator) GetStats() string {
	e.mu.RLock()
	regionCount := len(e.regions)
	activeCount := 0
	memberCount := 0
	for _, r := range e.regions {
		if r.active {
			activeCount++
		}
		memberCount += len(r.members)
	}
	e.mu.RUnlock()

	return fmt.Sprintf("Evaluator: %d regions (%d active), %d members, %d evaluations, %d enables, %d disables",
		regionCount, activeCount, memberCount,
		e.stats.evaluations.Load(), e.stats.enabled.Load(), e.stats.disabled.Load())
}

// === Внутренние методы ===

// updateLoop — основной цикл непрерывного пересчёта
func (e *Evaluator) updateLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-ticker.C:
			e.Evaluate()
		}
	}
}

// evaluateRegionLocked синхронизирует подсветку участников активного региона
// с их текущим вхождением в объём. Цвет при пересчёте не передаётся —
// используется цвет реестра по умолчанию.
func (e *Evaluator) evaluateRegionLocked(r *Region) {
	e.stats.evaluations.Add(1)

	for member := range r.members {
		if !e.registry.IsRegistered(member) {
			continue
		}

		pos, ok := e.resolve(member)
		if !ok {
			continue
		}

		// Включение без явного цвета: пересчёт всегда возвращает цвет
		// реестра по умолчанию, даже если запрос задавал свой.
		if r.Volume.Contains(pos) {
			e.registry.EnableID(member)
			e.stats.enabled.Add(1)
		} else if e.registry.IsHighlightedID(member) {
			e.registry.DisableID(member)
			e.stats.disabled.Add(1)
		}
	}
}

// resolve разрешает elementID в позицию через локатор.
// Отсутствие локатора или элемента — восстановимое условие.
func (e *Evaluator) resolve(elementID string) (vec.Vec3, bool) {
	if e.locator == nil {
		logging.Warn("Region: локатор недоступен, позиция %s не разрешена", elementID)
		return vec.Vec3{}, false
	}

	pos, ok := e.locator.ResolvePosition(elementID)
	if !ok {
		logging.Warn("Region: позиция элемента %q не найдена", elementID)
		return vec.Vec3{}, false
	}
	return pos, true
}

// regionStateChangedEvent — полезная нагрузка события RegionStateChanged
type regionStateChangedEvent struct {
	RegionID string `json:"region_id"`
	Active   bool   `json:"active"`
	Members  int    `json:"members"`
}

// publishRegionStateChanged отправляет событие в глобальную шину
func publishRegionStateChanged(r *Region) {
	payload, err := json.Marshal(regionStateChangedEvent{
		RegionID: r.ID,
		Active:   r.active,
		Members:  len(r.members),
	})
	if err != nil {
		return
	}

	_ = eventbus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "region-evaluator",
		EventType: "RegionStateChanged",
		Version:   1,
		Payload:   payload,
	})
}
