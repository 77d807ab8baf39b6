package highlight

import (
	"testing"

	"github.com/annel0/twin-viewer/internal/scene"
	"github.com/annel0/twin-viewer/internal/vec"
)

func newTestObject(name, id string) *scene.Object {
	return scene.NewObject(name, id, name+".mesh", "steel", vec.Vec3{})
}

// TestRegisterTargetID тестирует привязку логических id к целям
func TestRegisterTargetID(t *testing.T) {
	r := NewRegistry(DefaultColor())
	pump := newTestObject("Pump", "pump-7")

	if err := r.RegisterTargetID("pump-7", pump); err != nil {
		t.Fatalf("Ошибка регистрации: %v", err)
	}

	if !r.IsRegistered("pump-7") {
		t.Error("Элемент должен быть зарегистрирован")
	}
	if !r.IsRegistered("PUMP-7") {
		t.Error("Проверка регистрации должна игнорировать регистр")
	}
	if r.IsRegistered("valve-1") {
		t.Error("Незарегистрированный id не должен находиться")
	}

	t.Run("Validation", func(t *testing.T) {
		if err := r.RegisterTargetID("", pump); err == nil {
			t.Error("Ожидалась ошибка для пустого id")
		}
		if err := r.RegisterTargetID("   ", pump); err == nil {
			t.Error("Ожидалась ошибка для id из пробелов")
		}
		if err := r.RegisterTargetID("x", nil); err == nil {
			t.Error("Ожидалась ошибка для nil цели")
		}
	})
}

// TestRegisterTargetIdempotent тестирует, что повторная регистрация
// не создаёт второй контур
func TestRegisterTargetIdempotent(t *testing.T) {
	r := NewRegistry(DefaultColor())
	obj := newTestObject("Pump", "pump-7")

	_ = r.RegisterTarget(obj)
	_ = r.RegisterTarget(obj)
	_ = r.RegisterTargetID("pump-7", obj)

	if r.HullCount() != 1 {
		t.Errorf("Ожидался 1 контур, получено %d", r.HullCount())
	}
	if len(r.RegisteredIDs()) != 1 {
		t.Errorf("Ожидался 1 id, получено %d", len(r.RegisteredIDs()))
	}
}

// TestRegisterIDOverwrite тестирует молчаливую перезапись привязки id
func TestRegisterIDOverwrite(t *testing.T) {
	r := NewRegistry(DefaultColor())
	first := newTestObject("Old", "shared")
	second := newTestObject("New", "shared")

	_ = r.RegisterTargetID("shared", first)
	_ = r.RegisterTargetID("shared", second)

	// id один, контуров два (обе цели зарегистрированы)
	if len(r.RegisteredIDs()) != 1 {
		t.Errorf("Ожидался 1 id после перезаписи, получено %d", len(r.RegisteredIDs()))
	}
	if r.HullCount() != 2 {
		t.Errorf("Ожидалось 2 контура, получено %d", r.HullCount())
	}

	// Подсветка по id должна идти на новую цель
	r.EnableID("shared")
	if !r.IsHighlighted(second) {
		t.Error("Подсветка должна применяться к новой цели")
	}
	if r.IsHighlighted(first) {
		t.Error("Старая цель не должна подсвечиваться")
	}
}

// TestRegisterNoGeometry тестирует цель без отображаемой геометрии
func TestRegisterNoGeometry(t *testing.T) {
	r := NewRegistry(DefaultColor())
	ghost := scene.NewObject("Ghost", "ghost-1", "", "", vec.Vec3{})

	// Доменная ошибка поглощается, контур не создаётся
	if err := r.RegisterTarget(ghost); err != nil {
		t.Fatalf("Отсутствие геометрии не должно возвращать ошибку: %v", err)
	}
	if r.HullCount() != 0 {
		t.Errorf("Контур не должен быть создан, получено %d", r.HullCount())
	}

	// Enable для такой цели — тоже no-op
	r.Enable(ghost)
	if r.IsHighlighted(ghost) {
		t.Error("Цель без геометрии не должна подсвечиваться")
	}
}

// TestEnableDisableToggle тестирует базовый цикл подсветки
func TestEnableDisableToggle(t *testing.T) {
	r := NewRegistry(DefaultColor())
	obj := newTestObject("Pump", "pump-7")
	_ = r.RegisterTargetID("pump-7", obj)

	t.Run("Enable Idempotent", func(t *testing.T) {
		r.EnableID("pump-7")
		r.EnableID("pump-7")
		if !r.IsHighlightedID("pump-7") {
			t.Error("Элемент должен быть подсвечен")
		}
	})

	t.Run("Disable Idempotent", func(t *testing.T) {
		r.DisableID("pump-7")
		r.DisableID("pump-7")
		if r.IsHighlightedID("pump-7") {
			t.Error("Элемент не должен быть подсвечен")
		}
	})

	t.Run("Toggle Alternates", func(t *testing.T) {
		r.ToggleID("pump-7")
		if !r.IsHighlightedID("pump-7") {
			t.Error("Первый toggle должен включить подсветку")
		}
		r.ToggleID("pump-7")
		if r.IsHighlightedID("pump-7") {
			t.Error("Второй toggle должен выключить подсветку")
		}
	})

	t.Run("Case Insensitive Operations", func(t *testing.T) {
		r.EnableID("PUMP-7")
		if !r.IsHighlightedID("pump-7") {
			t.Error("EnableID должен игнорировать регистр")
		}
		r.DisableID("Pump-7")
		if r.IsHighlightedID("pump-7") {
			t.Error("DisableID должен игнорировать регистр")
		}
	})
}

// TestUnknownIDNoOp тестирует, что операции с неизвестным id ничего не меняют
func TestUnknownIDNoOp(t *testing.T) {
	r := NewRegistry(DefaultColor())

	r.EnableID("phantom")
	r.DisableID("phantom")
	r.ToggleID("phantom")

	// Операции не должны создавать привязку
	if r.IsRegistered("phantom") {
		t.Error("Операция с неизвестным id не должна создавать привязку")
	}
	if r.IsHighlightedID("phantom") {
		t.Error("Неизвестный id не может быть подсвечен")
	}
	if r.HullCount() != 0 {
		t.Errorf("Контуры не должны создаваться, получено %d", r.HullCount())
	}
	if len(r.RegisteredIDs()) != 0 {
		t.Errorf("Список id должен быть пуст, получено %d", len(r.RegisteredIDs()))
	}
}

// TestEnableAutoRegisters тестирует авторегистрацию при Enable по цели
func TestEnableAutoRegisters(t *testing.T) {
	r := NewRegistry(DefaultColor())
	obj := newTestObject("Valve", "valve-1")

	// Цель не регистрировалась явно
	r.Enable(obj)

	if !r.IsHighlighted(obj) {
		t.Error("Цель должна быть подсвечена после Enable")
	}
	if r.HullCount() != 1 {
		t.Errorf("Контур должен быть создан автоматически, получено %d", r.HullCount())
	}
	// Аннотация ElementID попадает в отображение автоматически
	if !r.IsRegistered("valve-1") {
		t.Error("Аннотированная цель должна привязаться к id при авторегистрации")
	}
}

// TestEnableWithColor тестирует явный цвет и откат к цвету по умолчанию
func TestEnableWithColor(t *testing.T) {
	r := NewRegistry(DefaultColor())
	obj := newTestObject("Pump", "pump-7")
	_ = r.RegisterTargetID("pump-7", obj)

	red := Color{R: 1, A: 1}
	r.EnableID("pump-7", red)

	hull, ok := r.HullFor(obj)
	if !ok {
		t.Fatal("Контур не найден")
	}
	if hull.Color() != red {
		t.Errorf("Ожидался красный цвет, получен %+v", hull.Color())
	}

	// Повторный Enable без цвета возвращает цвет по умолчанию
	r.EnableID("pump-7")
	if hull.Color() != DefaultColor() {
		t.Errorf("Ожидался цвет по умолчанию, получен %+v", hull.Color())
	}
}

// TestHighlightedIDs тестирует снимок подсвеченных элементов
func TestHighlightedIDs(t *testing.T) {
	r := NewRegistry(DefaultColor())
	a := newTestObject("A", "a-1")
	b := newTestObject("B", "b-1")
	_ = r.RegisterTargetID("a-1", a)
	_ = r.RegisterTargetID("b-1", b)

	r.EnableID("a-1")

	snapshot := r.HighlightedIDs()
	if len(snapshot) != 1 {
		t.Fatalf("Ожидался 1 подсвеченный элемент, получено %d", len(snapshot))
	}
	if _, ok := snapshot["a-1"]; !ok {
		t.Error("a-1 должен присутствовать в снимке")
	}
}

// TestRemovedTargetInvalidation тестирует реакцию на удаление цели из сцены
func TestRemovedTargetInvalidation(t *testing.T) {
	sc := scene.NewScene()
	r := NewRegistry(DefaultColor())

	obj := newTestObject("Tank", "tank-3")
	_ = sc.Add(obj)
	_ = r.RegisterTargetID("tank-3", obj)

	r.EnableID("tank-3")
	if !r.IsHighlightedID("tank-3") {
		t.Fatal("Элемент должен быть подсвечен")
	}

	// Удаление из сцены делает контур недействительным
	sc.Remove(obj)
	r.EnableID("tank-3")

	if r.HullCount() != 0 {
		t.Errorf("Контур удалённой цели должен быть сброшен, получено %d", r.HullCount())
	}
}

// TestRegisterScene тестирует массовую регистрацию сцены
func TestRegisterScene(t *testing.T) {
	sc := scene.NewScene()
	_ = sc.Add(newTestObject("A", "a-1"))
	_ = sc.Add(newTestObject("B", "b-1"))
	_ = sc.Add(scene.NewObject("Anon", "", "x.mesh", "m", vec.Vec3{}))
	_ = sc.Add(scene.NewObject("NoGeo", "ghost-1", "", "", vec.Vec3{}))

	r := NewRegistry(DefaultColor())
	count := r.RegisterScene(sc)

	// Аннотированных объектов три, но ghost-1 без геометрии всё равно
	// получает привязку id (контур не создаётся)
	if count != 3 {
		t.Errorf("Ожидалось 3 привязки, получено %d", count)
	}
	if r.HullCount() != 2 {
		t.Errorf("Ожидалось 2 контура, получено %d", r.HullCount())
	}
	if !r.IsRegistered("a-1") || !r.IsRegistered("b-1") {
		t.Error("Аннотированные объекты должны быть зарегистрированы")
	}

	t.Run("Nil Scene", func(t *testing.T) {
		if got := r.RegisterScene(nil); got != 0 {
			t.Errorf("RegisterScene(nil) должен вернуть 0, получено %d", got)
		}
	})
}
