package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/twin-viewer/internal/eventbus"
	"github.com/annel0/twin-viewer/internal/geom"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/region"
	"github.com/annel0/twin-viewer/internal/scene"
	"github.com/annel0/twin-viewer/internal/storage"
	"github.com/annel0/twin-viewer/internal/vec"
)

// TestHighlightPipelineE2E тестирует полный конвейер двойника:
// сцена → реестр подсветки → регионы → события шины → снимок состояния
func TestHighlightPipelineE2E(t *testing.T) {
	// In-memory шина событий для проверки публикаций
	bus := eventbus.NewMemoryBus(100)
	eventbus.Init(bus)
	defer eventbus.Init(nil)

	events := make(chan *eventbus.Envelope, 100)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{
		Types: []string{"HighlightChanged", "RegionStateChanged"},
	}, func(ctx context.Context, ev *eventbus.Envelope) {
		events <- ev
	})
	require.NoError(t, err)

	// Собираем сцену цеха: насос внутри зоны, кран снаружи
	sc := scene.NewScene()
	require.NoError(t, sc.Add(scene.NewObject("Pump7", "pump-7", "pump.mesh", "steel", vec.Vec3{X: 5, Y: 1, Z: 5})))
	require.NoError(t, sc.Add(scene.NewObject("Crane2", "crane-2", "crane.mesh", "steel", vec.Vec3{X: 50, Y: 0, Z: 50})))

	registry := highlight.NewRegistry(highlight.DefaultColor())
	assert.Equal(t, 2, registry.RegisterScene(sc))

	evaluator, err := region.NewEvaluator(registry, sc, 10*time.Millisecond)
	require.NoError(t, err)

	zone := geom.NewBoxMinMax(vec.Vec3{}, vec.Vec3{X: 10, Y: 10, Z: 10})
	require.NoError(t, evaluator.RegisterRegion("assembly-zone", zone))
	evaluator.AddMember("assembly-zone", "pump-7")
	evaluator.AddMember("assembly-zone", "crane-2")

	// Запрос к неактивному региону отбрасывается
	evaluator.RequestHighlight("assembly-zone", "pump-7", true)
	assert.False(t, registry.IsHighlightedID("pump-7"))

	// Активация включает участников внутри объёма
	evaluator.SetActive("assembly-zone", true)
	assert.True(t, registry.IsHighlightedID("pump-7"))
	assert.False(t, registry.IsHighlightedID("crane-2"), "кран вне зоны не должен подсветиться")

	// Кран заезжает в зону — непрерывный пересчёт подхватывает перемещение
	evaluator.Start()
	defer evaluator.Stop()

	sc.SetPosition("crane-2", vec.Vec3{X: 8, Y: 0, Z: 8})
	require.Eventually(t, func() bool {
		return registry.IsHighlightedID("crane-2")
	}, 2*time.Second, 20*time.Millisecond, "пересчёт должен включить подсветку крана")

	// Снимок состояния и восстановление в свежие компоненты
	state := storage.Capture(registry, evaluator)
	assert.True(t, state.Regions["assembly-zone"])
	assert.Len(t, state.Highlights, 2)

	repo := storage.NewMemoryStateRepo()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, state))

	loaded, found, err := repo.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)

	registry2 := highlight.NewRegistry(highlight.DefaultColor())
	registry2.RegisterScene(sc)
	evaluator2, err := region.NewEvaluator(registry2, sc, time.Second)
	require.NoError(t, err)
	require.NoError(t, evaluator2.RegisterRegion("assembly-zone", zone))

	storage.Apply(loaded, registry2, evaluator2)
	assert.True(t, evaluator2.IsActive("assembly-zone"))
	assert.True(t, registry2.IsHighlightedID("pump-7"))
	assert.True(t, registry2.IsHighlightedID("crane-2"))

	// Шина должна была получить события подсветки и смены состояния региона
	deadline := time.After(2 * time.Second)
	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case ev := <-events:
			seen[ev.EventType] = true
		case <-deadline:
			t.Fatalf("Не все события получены, есть: %v", seen)
		}
	}
	assert.True(t, seen["HighlightChanged"])
	assert.True(t, seen["RegionStateChanged"])
}

// TestDeactivationE2E тестирует гашение подсветки при деактивации региона
func TestDeactivationE2E(t *testing.T) {
	sc := scene.NewScene()
	require.NoError(t, sc.Add(scene.NewObject("Pump7", "pump-7", "pump.mesh", "steel", vec.Vec3{X: 5, Y: 5, Z: 5})))

	registry := highlight.NewRegistry(highlight.DefaultColor())
	registry.RegisterScene(sc)

	evaluator, err := region.NewEvaluator(registry, sc, time.Second)
	require.NoError(t, err)
	require.NoError(t, evaluator.RegisterRegion("zone", geom.NewSphere(vec.Vec3{X: 5, Y: 5, Z: 5}, 3)))

	evaluator.SetActive("zone", true)
	evaluator.RequestHighlight("zone", "pump-7", true, highlight.Color{R: 1, A: 1})
	require.True(t, registry.IsHighlightedID("pump-7"))

	evaluator.SetActive("zone", false)
	assert.False(t, registry.IsHighlightedID("pump-7"), "деактивация должна погасить подсветку")

	// Повторная активация возвращает подсветку, но уже с цветом по умолчанию
	evaluator.SetActive("zone", true)
	require.True(t, registry.IsHighlightedID("pump-7"))
	assert.Equal(t, highlight.DefaultColor(), registry.HighlightedIDs()["pump-7"])
}
