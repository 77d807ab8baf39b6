package highlight

import (
	"fmt"
	"strconv"
	"strings"
)

// Color представляет цвет подсветки в нормализованных компонентах [0..1]
type Color struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
	A float64 `json:"a" yaml:"a"`
}

// DefaultColor возвращает цвет подсветки по умолчанию (жёлтый)
func DefaultColor() Color {
	return Color{R: 1.0, G: 0.92, B: 0.016, A: 1.0}
}

// ParseColor разбирает цвет из hex-строки "#RRGGBB" или "#RRGGBBAA"
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("некорректный hex-цвет: %q", s)
	}

	parse := func(part string) (float64, error) {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("некорректный hex-цвет: %q", s)
		}
		return float64(v) / 255.0, nil
	}

	r, err := parse(hex[0:2])
	if err != nil {
		return Color{}, err
	}
	g, err := parse(hex[2:4])
	if err != nil {
		return Color{}, err
	}
	b, err := parse(hex[4:6])
	if err != nil {
		return Color{}, err
	}

	a := 1.0
	if len(hex) == 8 {
		a, err = parse(hex[6:8])
		if err != nil {
			return Color{}, err
		}
	}

	return Color{R: r, G: g, B: b, A: a}, nil
}

// Hex возвращает цвет в формате "#RRGGBBAA"
func (c Color) Hex() string {
	clamp := func(v float64) uint8 {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint8(v*255 + 0.5)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", clamp(c.R), clamp(c.G), clamp(c.B), clamp(c.A))
}
