package geom

import (
	"github.com/annel0/twin-viewer/internal/vec"
)

// ContainmentEpsilon — допуск (в мировых единицах) для проверки принадлежности
// точки произвольному mesh-объёму через ближайшую точку поверхности.
const ContainmentEpsilon = 1e-4

// Volume представляет пространственный объём региона.
// Примитивные объёмы (box/sphere/capsule) проверяются по осевым границам
// (быстрый путь), произвольные mesh-объёмы — по расстоянию до ближайшей
// точки поверхности.
type Volume interface {
	// Contains проверяет, находится ли точка внутри объёма
	Contains(p vec.Vec3) bool

	// Bounds возвращает осевые границы объёма
	Bounds() Bounds
}

// Bounds представляет осевой ограничивающий параллелепипед (AABB)
type Bounds struct {
	Min vec.Vec3
	Max vec.Vec3
}

// NewBounds создаёт границы по двум произвольным углам
func NewBounds(a, b vec.Vec3) Bounds {
	return Bounds{Min: vec.Min(a, b), Max: vec.Max(a, b)}
}

// Contains проверяет, находится ли точка внутри границ (включительно)
func (b Bounds) Contains(p vec.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Expand возвращает границы, расширенные на margin во все стороны
func (b Bounds) Expand(margin float64) Bounds {
	m := vec.Vec3{X: margin, Y: margin, Z: margin}
	return Bounds{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Center возвращает центр границ
func (b Bounds) Center() vec.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Box представляет прямоугольный объём, заданный центром и размером
type Box struct {
	bounds Bounds
}

// NewBox создаёт box-объём по центру и размерам сторон
func NewBox(center, size vec.Vec3) *Box {
	half := size.Mul(0.5)
	return &Box{bounds: Bounds{Min: center.Sub(half), Max: center.Add(half)}}
}

// NewBoxMinMax создаёт box-объём по двум противоположным углам
func NewBoxMinMax(min, max vec.Vec3) *Box {
	return &Box{bounds: NewBounds(min, max)}
}

// Contains проверяет точку по осевым границам
func (b *Box) Contains(p vec.Vec3) bool {
	return b.bounds.Contains(p)
}

// Bounds возвращает границы box-объёма
func (b *Box) Bounds() Bounds {
	return b.bounds
}

// Sphere представляет сферический объём.
// Проверка принадлежности выполняется по осевым границам сферы — это
// сознательно сохранённая семантика bounds-проверки исходной системы,
// а не точный тест по радиусу.
type Sphere struct {
	Center vec.Vec3
	Radius float64
}

// NewSphere создаёт сферический объём
func NewSphere(center vec.Vec3, radius float64) *Sphere {
	return &Sphere{Center: center, Radius: radius}
}

// Contains проверяет точку по осевым границам сферы
func (s *Sphere) Contains(p vec.Vec3) bool {
	return s.Bounds().Contains(p)
}

// Bounds возвращает границы сферы
func (s *Sphere) Bounds() Bounds {
	r := vec.Vec3{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return Bounds{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// Capsule представляет капсулу, ориентированную вдоль оси Y.
// Как и Sphere, проверяется по осевым границам.
type Capsule struct {
	Center vec.Vec3
	Radius float64
	Height float64 // Полная высота капсулы, включая полусферы
}

// NewCapsule создаёт капсулу по центру, радиусу и полной высоте
func NewCapsule(center vec.Vec3, radius, height float64) *Capsule {
	if height < radius*2 {
		height = radius * 2 // Капсула не может быть короче своих полусфер
	}
	return &Capsule{Center: center, Radius: radius, Height: height}
}

// Contains проверяет точку по осевым границам капсулы
func (c *Capsule) Contains(p vec.Vec3) bool {
	return c.Bounds().Contains(p)
}

// Bounds возвращает границы капсулы
func (c *Capsule) Bounds() Bounds {
	half := vec.Vec3{X: c.Radius, Y: c.Height / 2, Z: c.Radius}
	return Bounds{Min: c.Center.Sub(half), Max: c.Center.Add(half)}
}
