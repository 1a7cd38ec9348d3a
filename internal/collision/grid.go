package collision

// Grid is a uniform board geometry: equal-width columns side by side, fixed-height cards
// stacked under a header.
type Grid struct {
	Origin       Point
	ColumnWidth  float64
	ColumnGap    float64
	HeaderHeight float64
	CardHeight   float64
	CardGap      float64
	// ColumnHeight of zero fits the tallest column plus one empty slot.
	ColumnHeight float64
}

// Layout derives card and column rectangles for the current board arrangement.
func (g Grid) Layout(src ColumnSource) Layout {
	stages := src.Stages()
	slot := g.CardHeight + g.CardGap

	height := g.ColumnHeight
	if height <= 0 {
		tallest := 0
		for _, stage := range stages {
			tallest = max(tallest, len(src.Column(stage.ID)))
		}
		height = g.HeaderHeight + float64(tallest+1)*slot
	}

	out := Layout{Columns: make([]ColumnLayout, 0, len(stages))}
	for idx, stage := range stages {
		x := g.Origin.X + float64(idx)*(g.ColumnWidth+g.ColumnGap)
		bounds := Rect{X: x, Y: g.Origin.Y, W: g.ColumnWidth, H: height}
		bodyTop := g.Origin.Y + g.HeaderHeight

		ids := src.Column(stage.ID)
		cards := make([]CardLayout, 0, len(ids))
		for row, id := range ids {
			cards = append(cards, CardLayout{
				ItemID: id,
				Rect:   Rect{X: x, Y: bodyTop + float64(row)*slot, W: g.ColumnWidth, H: g.CardHeight},
			})
		}

		dropTop := bodyTop + float64(len(ids))*slot
		dropHeight := bounds.Bottom() - dropTop
		if dropHeight <= 0 {
			dropHeight = g.CardHeight
		}
		out.Columns = append(out.Columns, ColumnLayout{
			Stage:    stage.ID,
			Bounds:   bounds,
			DropArea: Rect{X: x, Y: dropTop, W: g.ColumnWidth, H: dropHeight},
			Cards:    cards,
		})
	}
	return out
}
