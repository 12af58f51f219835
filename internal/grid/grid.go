// Package grid lays token chips out in fixed-size cells and computes which
// cells intersect a scrolled viewport. All units are terminal cells.
package grid

// Options controls the layout.
type Options struct {
	// MinCellWidth is the narrowest a chip column may be.
	MinCellWidth int `json:"min_cell_width" yaml:"min_cell_width" mapstructure:"min_cell_width"`

	// Margin is subtracted from the column count that fits the width.
	Margin int `json:"margin" yaml:"margin" mapstructure:"margin"`

	// Widths below NarrowBreakpoint use NarrowColumns instead.
	NarrowBreakpoint int `json:"narrow_breakpoint" yaml:"narrow_breakpoint" mapstructure:"narrow_breakpoint"`
	NarrowColumns    int `json:"narrow_columns" yaml:"narrow_columns" mapstructure:"narrow_columns"`

	RowHeight int `json:"row_height" yaml:"row_height" mapstructure:"row_height"`

	// Overscan is the number of extra rows rendered beyond each viewport edge.
	Overscan int `json:"overscan" yaml:"overscan" mapstructure:"overscan"`
}

// DefaultOptions returns the layout used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinCellWidth:     12,
		Margin:           0,
		NarrowBreakpoint: 40,
		NarrowColumns:    2,
		RowHeight:        3,
		Overscan:         2,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MinCellWidth < 1 {
		o.MinCellWidth = d.MinCellWidth
	}
	if o.Margin < 0 {
		o.Margin = 0
	}
	if o.NarrowColumns < 1 {
		o.NarrowColumns = 1
	}
	if o.RowHeight < 1 {
		o.RowHeight = d.RowHeight
	}
	if o.Overscan < 0 {
		o.Overscan = 0
	}
	return o
}

// Layout is the computed grid for one width and token count.
type Layout struct {
	Columns     int
	ColumnWidth int
	RowHeight   int
	TotalRows   int
	TokenCount  int
	Overscan    int
}

// Compute derives the grid for a container width. Widths of zero or less
// produce a single column.
func Compute(width, tokenCount int, opts Options) Layout {
	opts = opts.normalized()
	if tokenCount < 0 {
		tokenCount = 0
	}

	columns := 1
	switch {
	case width <= 0:
		columns = 1
	case opts.NarrowBreakpoint > 0 && width < opts.NarrowBreakpoint:
		columns = opts.NarrowColumns
	default:
		columns = max(1, width/opts.MinCellWidth-opts.Margin)
	}

	colWidth := opts.MinCellWidth
	if width > 0 {
		colWidth = max(1, width/columns)
	}

	rows := 0
	if tokenCount > 0 {
		rows = (tokenCount + columns - 1) / columns
	}

	return Layout{
		Columns:     columns,
		ColumnWidth: colWidth,
		RowHeight:   opts.RowHeight,
		TotalRows:   rows,
		TokenCount:  tokenCount,
		Overscan:    opts.Overscan,
	}
}

// ContentWidth is the full scrollable width.
func (l Layout) ContentWidth() int {
	return l.Columns * l.ColumnWidth
}

// ContentHeight is the full scrollable height, including rows that are never
// rendered.
func (l Layout) ContentHeight() int {
	return l.TotalRows * l.RowHeight
}

// Range is a half-open index interval.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether i is in the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// VisibleRange returns the items of size itemSize that intersect
// [offset, offset+extent), widened by overscan items on each side.
func VisibleRange(offset, extent, itemSize, count, overscan int) Range {
	if count <= 0 || itemSize <= 0 || extent <= 0 {
		return Range{}
	}
	if offset < 0 {
		offset = 0
	}
	if overscan < 0 {
		overscan = 0
	}

	start := offset/itemSize - overscan
	end := (offset+extent+itemSize-1)/itemSize + overscan
	start = max(0, min(start, count))
	end = max(start, min(end, count))
	return Range{Start: start, End: end}
}

// Viewport is the visible rectangle in content coordinates.
type Viewport struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Cell is one rendered chip position.
type Cell struct {
	Index  int
	Row    int
	Col    int
	X      int
	Y      int
	Width  int
	Height int
}

// Rows returns the row range rendered for vp.
func (l Layout) Rows(vp Viewport) Range {
	return VisibleRange(vp.Y, vp.Height, l.RowHeight, l.TotalRows, l.Overscan)
}

// Cols returns the column range rendered for vp.
func (l Layout) Cols(vp Viewport) Range {
	return VisibleRange(vp.X, vp.Width, l.ColumnWidth, l.Columns, 0)
}

// Window returns the cells to render for vp in row-major order. Positions
// past the last token are omitted.
func (l Layout) Window(vp Viewport) []Cell {
	rows := l.Rows(vp)
	cols := l.Cols(vp)
	if rows.Len() == 0 || cols.Len() == 0 {
		return nil
	}

	cells := make([]Cell, 0, rows.Len()*cols.Len())
	for r := rows.Start; r < rows.End; r++ {
		for c := cols.Start; c < cols.End; c++ {
			idx := r*l.Columns + c
			if idx >= l.TokenCount {
				break
			}
			cells = append(cells, Cell{
				Index:  idx,
				Row:    r,
				Col:    c,
				X:      c * l.ColumnWidth,
				Y:      r * l.RowHeight,
				Width:  l.ColumnWidth,
				Height: l.RowHeight,
			})
		}
	}
	return cells
}

// Position returns the row and column of a token index.
func (l Layout) Position(index int) (row, col int) {
	if l.Columns < 1 {
		return 0, 0
	}
	return index / l.Columns, index % l.Columns
}

// CellAt returns the token index under content coordinates (x, y).
func (l Layout) CellAt(x, y int) (int, bool) {
	if x < 0 || y < 0 || l.ColumnWidth < 1 || l.RowHeight < 1 {
		return 0, false
	}
	col := x / l.ColumnWidth
	row := y / l.RowHeight
	if col >= l.Columns {
		return 0, false
	}
	idx := row*l.Columns + col
	if idx >= l.TokenCount {
		return 0, false
	}
	return idx, true
}

// Reveal scrolls vp by the smallest amount that makes index fully visible.
func (l Layout) Reveal(index int, vp Viewport) Viewport {
	if index < 0 || index >= l.TokenCount {
		return l.Clamp(vp)
	}
	row, col := l.Position(index)
	top := row * l.RowHeight
	left := col * l.ColumnWidth

	if top < vp.Y {
		vp.Y = top
	} else if bottom := top + l.RowHeight; bottom > vp.Y+vp.Height {
		vp.Y = bottom - vp.Height
	}
	if left < vp.X {
		vp.X = left
	} else if right := left + l.ColumnWidth; right > vp.X+vp.Width {
		vp.X = right - vp.Width
	}
	return l.Clamp(vp)
}

// Clamp keeps vp inside the content and its size non-negative.
func (l Layout) Clamp(vp Viewport) Viewport {
	vp.Width = max(0, vp.Width)
	vp.Height = max(0, vp.Height)
	vp.X = max(0, min(vp.X, l.ContentWidth()-vp.Width))
	vp.Y = max(0, min(vp.Y, l.ContentHeight()-vp.Height))
	return vp
}
