package region

import (
	"github.com/annel0/twin-viewer/internal/geom"
	"github.com/annel0/twin-viewer/internal/highlight"
)

// Region представляет именованную пространственную зону двойника.
// Регион владеет объёмом, флагом активности и множеством элементов-участников.
// Регионы создаются при конфигурации или регистрацией во время работы и
// никогда не удаляются автоматически.
type Region struct {
	ID     string
	Volume geom.Volume
	Color  highlight.Color // Цвет для UI-отображения, на логику не влияет
	HasUI  bool            // Задан ли UI-цвет

	active  bool
	members map[string]struct{} // elementID в нижнем регистре
}

// Info — снимок состояния региона для диагностики и API
type Info struct {
	ID      string   `json:"id"`
	Active  bool     `json:"active"`
	Members []string `json:"members"`
	Color   string   `json:"color,omitempty"`
}

// snapshot формирует Info под блокировкой Evaluator
func (r *Region) snapshot() Info {
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}

	info := Info{
		ID:      r.ID,
		Active:  r.active,
		Members: members,
	}
	if r.HasUI {
		info.Color = r.Color.Hex()
	}
	return info
}
