package scene

import (
	"testing"

	"github.com/annel0/twin-viewer/internal/vec"
)

// TestSceneAddAndLookup тестирует добавление объектов и индекс elementID
func TestSceneAddAndLookup(t *testing.T) {
	s := NewScene()

	pump := NewObject("Pump7", "pump-7", "pump.mesh", "steel", vec.Vec3{X: 1, Y: 2, Z: 3})
	if err := s.Add(pump); err != nil {
		t.Fatalf("Ошибка добавления объекта: %v", err)
	}

	if s.Len() != 1 {
		t.Errorf("Ожидался 1 объект в сцене, получено %d", s.Len())
	}

	t.Run("Lookup", func(t *testing.T) {
		obj, ok := s.ObjectByID("pump-7")
		if !ok {
			t.Fatal("Объект не найден по elementID")
		}
		if obj != pump {
			t.Error("Найден не тот объект")
		}
	})

	t.Run("Case Insensitive", func(t *testing.T) {
		if _, ok := s.ObjectByID("PUMP-7"); !ok {
			t.Error("Поиск должен игнорировать регистр")
		}
		if _, ok := s.ObjectByID("Pump-7"); !ok {
			t.Error("Поиск должен игнорировать регистр")
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, ok := s.ObjectByID("valve-1"); ok {
			t.Error("Неизвестный id не должен разрешаться")
		}
	})

	t.Run("Nil Object", func(t *testing.T) {
		if err := s.Add(nil); err == nil {
			t.Error("Ожидалась ошибка при добавлении nil объекта")
		}
	})
}

// TestSceneResolvePosition тестирует разрешение позиций
func TestSceneResolvePosition(t *testing.T) {
	s := NewScene()
	obj := NewObject("Valve", "valve-1", "valve.mesh", "brass", vec.Vec3{X: 5, Y: 0, Z: -1})
	if err := s.Add(obj); err != nil {
		t.Fatalf("Ошибка добавления объекта: %v", err)
	}

	pos, ok := s.ResolvePosition("valve-1")
	if !ok {
		t.Fatal("Позиция не разрешена")
	}
	if pos != (vec.Vec3{X: 5, Y: 0, Z: -1}) {
		t.Errorf("Неверная позиция: %+v", pos)
	}

	if _, ok := s.ResolvePosition("missing"); ok {
		t.Error("Позиция неизвестного элемента не должна разрешаться")
	}
}

// TestSceneSetPosition тестирует обновление позиции
func TestSceneSetPosition(t *testing.T) {
	s := NewScene()
	obj := NewObject("Crane", "crane-2", "crane.mesh", "steel", vec.Vec3{})
	if err := s.Add(obj); err != nil {
		t.Fatalf("Ошибка добавления объекта: %v", err)
	}

	if !s.SetPosition("CRANE-2", vec.Vec3{X: 10, Y: 20, Z: 30}) {
		t.Fatal("SetPosition должен вернуть true для известного элемента")
	}

	pos, _ := s.ResolvePosition("crane-2")
	if pos != (vec.Vec3{X: 10, Y: 20, Z: 30}) {
		t.Errorf("Позиция не обновлена: %+v", pos)
	}

	if s.SetPosition("ghost", vec.Vec3{X: 1}) {
		t.Error("SetPosition для неизвестного элемента должен вернуть false")
	}
}

// TestSceneRemove тестирует удаление и пометку уничтожения
func TestSceneRemove(t *testing.T) {
	s := NewScene()
	obj := NewObject("Tank", "tank-3", "tank.mesh", "steel", vec.Vec3{})
	if err := s.Add(obj); err != nil {
		t.Fatalf("Ошибка добавления объекта: %v", err)
	}

	s.Remove(obj)

	if obj.Alive() {
		t.Error("Удалённый объект должен быть помечен уничтоженным")
	}
	if s.Len() != 0 {
		t.Errorf("Сцена должна быть пуста, получено %d объектов", s.Len())
	}
	if _, ok := s.ObjectByID("tank-3"); ok {
		t.Error("Индекс должен быть очищен после удаления")
	}
	if _, ok := s.ResolvePosition("tank-3"); ok {
		t.Error("Позиция удалённого объекта не должна разрешаться")
	}
}

// TestSceneReassignID тестирует перезапись аннотации elementID
func TestSceneReassignID(t *testing.T) {
	s := NewScene()
	first := NewObject("Old", "shared-id", "a.mesh", "m", vec.Vec3{})
	second := NewObject("New", "shared-id", "b.mesh", "m", vec.Vec3{})

	_ = s.Add(first)
	_ = s.Add(second)

	obj, ok := s.ObjectByID("shared-id")
	if !ok || obj != second {
		t.Error("Повторная аннотация должна перезаписать привязку id")
	}

	// Удаление старого объекта не должно трогать новую привязку
	s.Remove(first)
	if _, ok := s.ObjectByID("shared-id"); !ok {
		t.Error("Привязка нового объекта должна сохраниться")
	}
}

// TestSceneAnnotated тестирует выборку аннотированных объектов
func TestSceneAnnotated(t *testing.T) {
	s := NewScene()
	_ = s.Add(NewObject("A", "a-1", "a.mesh", "m", vec.Vec3{}))
	_ = s.Add(NewObject("B", "b-1", "b.mesh", "m", vec.Vec3{}))
	_ = s.Add(NewObject("Anon", "", "c.mesh", "m", vec.Vec3{}))

	annotated := s.Annotated()
	if len(annotated) != 2 {
		t.Errorf("Ожидалось 2 аннотированных объекта, получено %d", len(annotated))
	}
	if s.Len() != 3 {
		t.Errorf("Ожидалось 3 объекта в сцене, получено %d", s.Len())
	}
}

// TestObjectHasGeometry тестирует признак отображаемой геометрии
func TestObjectHasGeometry(t *testing.T) {
	full := NewObject("Full", "f-1", "mesh", "mat", vec.Vec3{})
	if !full.HasGeometry() {
		t.Error("Объект с mesh и материалом должен иметь геометрию")
	}

	noMesh := NewObject("NoMesh", "n-1", "", "mat", vec.Vec3{})
	if noMesh.HasGeometry() {
		t.Error("Объект без mesh не должен иметь геометрию")
	}

	noMat := NewObject("NoMat", "n-2", "mesh", "", vec.Vec3{})
	if noMat.HasGeometry() {
		t.Error("Объект без материала не должен иметь геометрию")
	}
}
