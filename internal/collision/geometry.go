// Package collision resolves which column and index a dragged card currently targets.
package collision

import "math"

// Point is a pointer position in layout coordinates.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Corners returns top-left, top-right, bottom-left, bottom-right.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.Left(), Y: r.Top()},
		{X: r.Right(), Y: r.Top()},
		{X: r.Left(), Y: r.Bottom()},
		{X: r.Right(), Y: r.Bottom()},
	}
}

func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Contains is inclusive of the top/left edges and exclusive of bottom/right.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left() && p.X < r.Right() && p.Y >= r.Top() && p.Y < r.Bottom()
}

// Translate shifts r by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Intersection returns the overlapping rectangle; its area is zero when r and o are disjoint.
func (r Rect) Intersection(o Rect) Rect {
	left := math.Max(r.Left(), o.Left())
	top := math.Max(r.Top(), o.Top())
	right := math.Min(r.Right(), o.Right())
	bottom := math.Min(r.Bottom(), o.Bottom())
	if right <= left || bottom <= top {
		return Rect{X: left, Y: top}
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}
}

// Intersects reports a positive-area overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.Intersection(o).Area() > 0
}

// DistanceTo returns the distance from p to the nearest point of r, zero when inside.
func (r Rect) DistanceTo(p Point) float64 {
	dx := math.Max(math.Max(r.Left()-p.X, 0), p.X-r.Right())
	dy := math.Max(math.Max(r.Top()-p.Y, 0), p.Y-r.Bottom())
	return math.Hypot(dx, dy)
}

// cornerDistance sums the distances from p to each corner of r.
func cornerDistance(p Point, r Rect) float64 {
	var sum float64
	for _, corner := range r.Corners() {
		sum += p.Distance(corner)
	}
	return sum
}
