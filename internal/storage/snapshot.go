package storage

import (
	"time"

	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/logging"
	"github.com/annel0/twin-viewer/internal/region"
)

// Capture формирует снимок текущего состояния подсветки и регионов
func Capture(registry *highlight.Registry, evaluator *region.Evaluator) *TwinState {
	state := NewTwinState()
	state.SavedAt = time.Now().UTC()

	for _, info := range evaluator.Regions() {
		state.Regions[info.ID] = info.Active
	}
	for id, color := range registry.HighlightedIDs() {
		state.Highlights[id] = color.Hex()
	}

	return state
}

// Apply восстанавливает сохранённое состояние: сперва активность регионов
// (активация сама пересчитает участников), затем явные подсветки с их
// цветами. Неизвестные на момент восстановления id поглощаются реестром.
func Apply(state *TwinState, registry *highlight.Registry, evaluator *region.Evaluator) {
	if state == nil {
		return
	}

	for regionID, active := range state.Regions {
		evaluator.SetActive(regionID, active)
	}

	for id, hex := range state.Highlights {
		color, err := highlight.ParseColor(hex)
		if err != nil {
			logging.Warn("Storage: некорректный цвет %q для элемента %s: %v", hex, id, err)
			registry.EnableID(id)
			continue
		}
		registry.EnableID(id, color)
	}

	logging.Info("Storage: состояние восстановлено (%d регионов, %d подсветок, снимок от %s)",
		len(state.Regions), len(state.Highlights), state.SavedAt.Format(time.RFC3339))
}
