package storage

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/twin-viewer/internal/geom"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/region"
	"github.com/annel0/twin-viewer/internal/scene"
	"github.com/annel0/twin-viewer/internal/vec"
)

// TestMemoryStateRepo тестирует in-memory репозиторий состояния
func TestMemoryStateRepo(t *testing.T) {
	repo := NewMemoryStateRepo()
	ctx := context.Background()

	t.Run("Empty Load", func(t *testing.T) {
		_, found, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Ошибка загрузки: %v", err)
		}
		if found {
			t.Error("Пустой репозиторий не должен возвращать состояние")
		}
	})

	t.Run("Save and Load", func(t *testing.T) {
		state := NewTwinState()
		state.SavedAt = time.Now().UTC()
		state.Regions["zone-a"] = true
		state.Highlights["pump-7"] = "#FF0000FF"

		if err := repo.Save(ctx, state); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}

		loaded, found, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Ошибка загрузки: %v", err)
		}
		if !found {
			t.Fatal("Состояние не найдено после сохранения")
		}
		if !loaded.Regions["zone-a"] {
			t.Error("Активность региона не восстановлена")
		}
		if loaded.Highlights["pump-7"] != "#FF0000FF" {
			t.Errorf("Неверный цвет подсветки: %s", loaded.Highlights["pump-7"])
		}
	})

	t.Run("Deep Copy", func(t *testing.T) {
		state := NewTwinState()
		state.Regions["zone-a"] = true

		if err := repo.Save(ctx, state); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}

		// Мутация исходного снимка не должна влиять на сохранённый
		state.Regions["zone-a"] = false
		state.Regions["zone-b"] = true

		loaded, _, _ := repo.Load(ctx)
		if !loaded.Regions["zone-a"] {
			t.Error("Сохранённое состояние изменилось вместе с исходным снимком")
		}
		if len(loaded.Regions) != 1 {
			t.Errorf("Ожидался 1 регион, получено %d", len(loaded.Regions))
		}

		// Мутация загруженного снимка не должна влиять на хранилище
		loaded.Highlights["injected"] = "#000000FF"
		again, _, _ := repo.Load(ctx)
		if len(again.Highlights) != 0 {
			t.Error("Загруженная копия не должна быть связана с хранилищем")
		}
	})

	t.Run("Nil State", func(t *testing.T) {
		if err := repo.Save(ctx, nil); err == nil {
			t.Error("Ожидалась ошибка для nil состояния")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx); err != nil {
			t.Fatalf("Ошибка удаления: %v", err)
		}
		_, found, _ := repo.Load(ctx)
		if found {
			t.Error("Состояние найдено после удаления")
		}
	})
}

// TestCaptureApplyRoundtrip тестирует снимок и восстановление состояния двойника
func TestCaptureApplyRoundtrip(t *testing.T) {
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

	// Формируем состояние: активный регион и явная подсветка с цветом
	ev.SetActive("zone-a", true)
	red := highlight.Color{R: 1, A: 1}
	registry.EnableID("pump-7", red)

	state := Capture(registry, ev)
	if !state.Regions["zone-a"] {
		t.Error("Снимок должен содержать активный регион")
	}
	if state.Highlights["pump-7"] != red.Hex() {
		t.Errorf("Снимок должен содержать цвет подсветки, получено %s", state.Highlights["pump-7"])
	}

	// Восстанавливаем в свежие экземпляры
	registry2 := highlight.NewRegistry(highlight.DefaultColor())
	registry2.RegisterScene(sc)
	ev2, _ := region.NewEvaluator(registry2, sc, time.Second)
	_ = ev2.RegisterRegion("zone-a", box)

	Apply(state, registry2, ev2)

	if !ev2.IsActive("zone-a") {
		t.Error("Активность региона должна восстановиться")
	}
	if !registry2.IsHighlightedID("pump-7") {
		t.Error("Подсветка должна восстановиться")
	}
	if registry2.HighlightedIDs()["pump-7"] != red {
		t.Error("Цвет подсветки должен восстановиться")
	}

	// Apply(nil) — безопасный no-op
	Apply(nil, registry2, ev2)
}
