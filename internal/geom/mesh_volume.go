package geom

import (
	"fmt"

	"github.com/annel0/twin-viewer/internal/vec"
)

// MeshVolume представляет произвольный объём, заданный треугольной сеткой.
// Точка считается внутренней, если расстояние до ближайшей точки поверхности
// меньше ContainmentEpsilon.
//
// ВНИМАНИЕ: для невыпуклых сеток такая проверка ненадёжна — точка глубоко
// внутри объёма находится далеко от поверхности и будет считаться внешней.
// Это известное ограничение исходной системы, сохранённое намеренно.
type MeshVolume struct {
	triangles []triangle
	bounds    Bounds
}

// triangle хранит вершины одного треугольника сетки
type triangle struct {
	a, b, c vec.Vec3
}

// NewMeshVolume создаёт mesh-объём из списка вершин и индексов треугольников.
// Количество индексов должно быть кратно трём.
func NewMeshVolume(vertices []vec.Vec3, indices []int) (*MeshVolume, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("mesh volume: пустой список вершин")
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh volume: некорректное число индексов %d (должно быть кратно 3)", len(indices))
	}

	mv := &MeshVolume{
		triangles: make([]triangle, 0, len(indices)/3),
	}

	bmin := vertices[0]
	bmax := vertices[0]

	for i := 0; i < len(indices); i += 3 {
		ia, ib, ic := indices[i], indices[i+1], indices[i+2]
		if ia < 0 || ia >= len(vertices) || ib < 0 || ib >= len(vertices) || ic < 0 || ic >= len(vertices) {
			return nil, fmt.Errorf("mesh volume: индекс вне диапазона в треугольнике %d", i/3)
		}
		mv.triangles = append(mv.triangles, triangle{a: vertices[ia], b: vertices[ib], c: vertices[ic]})
	}

	for _, v := range vertices {
		bmin = vec.Min(bmin, v)
		bmax = vec.Max(bmax, v)
	}
	mv.bounds = Bounds{Min: bmin, Max: bmax}

	return mv, nil
}

// Contains проверяет точку по расстоянию до ближайшей точки поверхности
func (mv *MeshVolume) Contains(p vec.Vec3) bool {
	// Быстрый отсев по расширенным границам
	if !mv.bounds.Expand(ContainmentEpsilon).Contains(p) {
		return false
	}

	closest := mv.ClosestPoint(p)
	return closest.DistanceTo(p) < ContainmentEpsilon
}

// Bounds возвращает границы сетки
func (mv *MeshVolume) Bounds() Bounds {
	return mv.bounds
}

// TriangleCount возвращает количество треугольников в сетке
func (mv *MeshVolume) TriangleCount() int {
	return len(mv.triangles)
}

// ClosestPoint возвращает ближайшую к p точку на поверхности сетки
func (mv *MeshVolume) ClosestPoint(p vec.Vec3) vec.Vec3 {
	best := closestPointOnTriangle(p, mv.triangles[0].a, mv.triangles[0].b, mv.triangles[0].c)
	bestDist := best.DistanceTo(p)

	for _, tri := range mv.triangles[1:] {
		candidate := closestPointOnTriangle(p, tri.a, tri.b, tri.c)
		if d := candidate.DistanceTo(p); d < bestDist {
			best = candidate
			bestDist = d
		}
	}

	return best
}

// closestPointOnTriangle возвращает ближайшую к p точку треугольника abc.
// Разбор по регионам Вороного вершин, рёбер и внутренней области.
func closestPointOnTriangle(p, a, b, c vec.Vec3) vec.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}
