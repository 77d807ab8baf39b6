package feed

import (
	"testing"
	"time"

	"github.com/annel0/twin-viewer/internal/geom"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/region"
	"github.com/annel0/twin-viewer/internal/scene"
	"github.com/annel0/twin-viewer/internal/vec"
)

// newTestConsumer создаёт потребитель без NATS-соединения:
// обработчики сообщений тестируются напрямую по сырым байтам
func newTestConsumer(t *testing.T) (*Consumer, *scene.Scene, *highlight.Registry, *region.Evaluator) {
	t.Helper()

	sc := scene.NewScene()
	_ = sc.Add(scene.NewObject("Pump", "pump-7", "pump.mesh", "steel", vec.Vec3{X: 5, Y: 5, Z: 5}))

	registry := highlight.NewRegistry(highlight.DefaultColor())
	registry.RegisterScene(sc)

	ev, err := region.NewEvaluator(registry, sc, time.Second)
	if err != nil {
		t.Fatalf("Ошибка создания оценщика: %v", err)
	}
	box := geom.NewBoxMinMax(vec.Vec3{}, vec.Vec3{X: 10, Y: 10, Z: 10})
	_ = ev.RegisterRegion("zone-a", box)
	ev.SetActive("zone-a", true)

	return &Consumer{scene: sc, evaluator: ev}, sc, registry, ev
}

// TestHandlePosition тестирует применение телеметрии позиций к сцене
func TestHandlePosition(t *testing.T) {
	c, sc, _, _ := newTestConsumer(t)

	c.handlePosition([]byte(`{"element_id":"pump-7","x":1,"y":2,"z":3}`))

	pos, ok := sc.ResolvePosition("pump-7")
	if !ok {
		t.Fatal("Позиция не разрешена")
	}
	if pos != (vec.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Позиция не применена: %+v", pos)
	}

	positions, _, malformed := c.Stats()
	if positions != 1 {
		t.Errorf("Ожидалось 1 обработанное сообщение, получено %d", positions)
	}
	if malformed != 0 {
		t.Errorf("Ожидалось 0 некорректных сообщений, получено %d", malformed)
	}
}

// TestHandlePositionMalformed тестирует некорректные сообщения телеметрии
func TestHandlePositionMalformed(t *testing.T) {
	c, sc, _, _ := newTestConsumer(t)

	c.handlePosition([]byte(`не json`))
	c.handlePosition([]byte(`{"x":1,"y":2,"z":3}`))          // без element_id
	c.handlePosition([]byte(`{"element_id":"ghost","x":1}`)) // неизвестный элемент

	_, _, malformed := c.Stats()
	if malformed != 2 {
		t.Errorf("Ожидалось 2 некорректных сообщения, получено %d", malformed)
	}

	// Позиция известного элемента не должна была измениться
	pos, _ := sc.ResolvePosition("pump-7")
	if pos != (vec.Vec3{X: 5, Y: 5, Z: 5}) {
		t.Errorf("Позиция изменилась от некорректных сообщений: %+v", pos)
	}
}

// TestHandleCommand тестирует пересылку команд подсветки в оценщик
func TestHandleCommand(t *testing.T) {
	c, _, registry, _ := newTestConsumer(t)

	c.handleCommand([]byte(`{"region_id":"zone-a","element_id":"pump-7","want_highlighted":true}`))

	if !registry.IsHighlightedID("pump-7") {
		t.Error("Команда должна включить подсветку элемента внутри региона")
	}

	c.handleCommand([]byte(`{"region_id":"zone-a","element_id":"pump-7","want_highlighted":false}`))
	if registry.IsHighlightedID("pump-7") {
		t.Error("Команда want=false должна снять подсветку")
	}

	_, commands, _ := c.Stats()
	if commands != 2 {
		t.Errorf("Ожидалось 2 команды, получено %d", commands)
	}
}

// TestHandleCommandColor тестирует явный цвет в команде
func TestHandleCommandColor(t *testing.T) {
	c, _, registry, _ := newTestConsumer(t)

	c.handleCommand([]byte(`{"region_id":"zone-a","element_id":"pump-7","want_highlighted":true,"color":"#FF0000"}`))

	snapshot := registry.HighlightedIDs()
	if snapshot["pump-7"] != (highlight.Color{R: 1, A: 1}) {
		t.Errorf("Ожидался красный цвет, получен %+v", snapshot["pump-7"])
	}

	// Некорректный цвет — команда выполняется с цветом по умолчанию
	c.handleCommand([]byte(`{"region_id":"zone-a","element_id":"pump-7","want_highlighted":true,"color":"фиолетовый"}`))
	snapshot = registry.HighlightedIDs()
	if snapshot["pump-7"] != highlight.DefaultColor() {
		t.Errorf("Ожидался цвет по умолчанию, получен %+v", snapshot["pump-7"])
	}
}

// TestHandleCommandMalformed тестирует некорректную команду
func TestHandleCommandMalformed(t *testing.T) {
	c, _, registry, _ := newTestConsumer(t)

	c.handleCommand([]byte(`{{{`))

	_, commands, malformed := c.Stats()
	if commands != 0 || malformed != 1 {
		t.Errorf("Ожидалась 1 некорректная команда, получено commands=%d malformed=%d", commands, malformed)
	}
	if registry.IsHighlightedID("pump-7") {
		t.Error("Некорректная команда не должна менять подсветку")
	}
}
