package collision

import (
	"math"

	"github.com/hylla/stageboard/internal/domain"
)

// epsilon absorbs float noise in distance comparisons so ties resolve by rule, not rounding.
const epsilon = 1e-9

// CardLayout is the rendered rectangle of one card.
type CardLayout struct {
	ItemID string
	Rect   Rect
}

// ColumnLayout is the rendered geometry of one stage column.
// DropArea is the empty region below the last card.
type ColumnLayout struct {
	Stage    domain.StageID
	Bounds   Rect
	DropArea Rect
	Cards    []CardLayout
}

// Layout lists column geometry in stage order.
type Layout struct {
	Columns []ColumnLayout
}

// Card returns the rectangle for itemID.
func (l Layout) Card(itemID string) (Rect, bool) {
	for _, col := range l.Columns {
		for _, card := range col.Cards {
			if card.ItemID == itemID {
				return card.Rect, true
			}
		}
	}
	return Rect{}, false
}

// ColumnAt returns the stage whose bounds contain p.
func (l Layout) ColumnAt(p Point) (domain.StageID, bool) {
	for _, col := range l.Columns {
		if col.Bounds.Contains(p) {
			return col.Stage, true
		}
	}
	return "", false
}

// CardAt returns the card under p.
func (l Layout) CardAt(p Point) (string, bool) {
	for _, col := range l.Columns {
		for _, card := range col.Cards {
			if card.Rect.Contains(p) {
				return card.ItemID, true
			}
		}
	}
	return "", false
}

// Target is a drop position. Index counts the destination column without the dragged item.
type Target struct {
	Stage domain.StageID
	Index int
}

// Query is the drag geometry for one pointer event.
// Direction is the sign of the latest vertical pointer movement; zero counts as downward.
type Query struct {
	ActiveID  string
	Dragged   Rect
	Pointer   Point
	Direction float64
}

// Resolve maps the current drag geometry to a drop target. It reports false when the drag is
// not over any column. The result depends only on its inputs.
func Resolve(layout Layout, q Query) (Target, bool) {
	center := q.Dragged.Center()

	best := -1
	var bestDist, bestOverlap float64
	for idx, col := range layout.Columns {
		overlap := q.Dragged.Intersection(col.Bounds).Area()
		if overlap <= 0 && !col.Bounds.Contains(q.Pointer) {
			continue
		}
		dist := col.Bounds.DistanceTo(center)
		switch {
		case best < 0:
		case dist < bestDist-epsilon:
		case math.Abs(dist-bestDist) <= epsilon && overlap > bestOverlap+epsilon:
		default:
			continue
		}
		best, bestDist, bestOverlap = idx, dist, overlap
	}
	if best < 0 {
		return Target{}, false
	}
	col := layout.Columns[best]

	siblings := make([]Rect, 0, len(col.Cards))
	for _, card := range col.Cards {
		if card.ItemID == q.ActiveID {
			continue
		}
		siblings = append(siblings, card.Rect)
	}
	if len(siblings) == 0 || col.DropArea.Contains(center) {
		return Target{Stage: col.Stage, Index: len(siblings)}, true
	}

	pick := 0
	bestScore := cornerDistance(center, siblings[0])
	for idx := 1; idx < len(siblings); idx++ {
		if score := cornerDistance(center, siblings[idx]); score < bestScore-epsilon {
			pick, bestScore = idx, score
		}
	}

	mid := siblings[pick].Center().Y
	index := pick
	if q.Direction >= 0 {
		if q.Dragged.Bottom() > mid {
			index = pick + 1
		}
	} else if q.Dragged.Top() >= mid {
		index = pick + 1
	}
	return Target{Stage: col.Stage, Index: index}, true
}
