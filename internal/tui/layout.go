package tui

import (
	"slices"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/drag"
)

// Board geometry in terminal cells. Rows are counted from the top of the
// alternate screen starting at zero.
const (
	headerRows       = 3 // title, project tabs, spacer
	tabsRow          = 1
	footerRows       = 3 // status line, help rule, help line
	columnHeaderRows = 2 // title, rule
	cardHeight       = 4
	columnGap        = 1
	minColumnWidth   = 18
	maxColumnWidth   = 48
	minBoardRows     = columnHeaderRows + cardHeight
)

// cardSlot is one laid-out card in window cells.
type cardSlot struct {
	TaskID string
	Column int
	Index  int
	Rect   drag.Rect
}

// columnSlot is one laid-out status column.
type columnSlot struct {
	Status  domain.TaskStatus
	X       int
	Width   int
	Scroll  int
	Visible int
}

// boardLayout is an immutable snapshot of where the board and its cards sit on
// screen. It is rebuilt on every change and shared read-only with commands.
type boardLayout struct {
	Origin  drag.Point
	Width   int
	Height  int
	Columns []columnSlot
	Cards   []cardSlot
}

// layoutInput carries everything the board geometry depends on.
type layoutInput struct {
	Origin         drag.Point
	ScreenWidth    int
	Height         int
	ColumnWidth    int
	Columns        []domain.Column
	Scroll         []int
	SelectedColumn int
	SelectedTask   int
}

// buildLayout computes column and card rectangles. Scroll offsets are sticky:
// a column only scrolls as far as needed to keep its selected card visible.
func buildLayout(in layoutInput) (*boardLayout, []int) {
	n := len(in.Columns)
	out := &boardLayout{Origin: in.Origin, Height: max(minBoardRows, in.Height)}
	scroll := make([]int, n)
	copy(scroll, in.Scroll)
	if n == 0 {
		return out, scroll
	}

	colWidth := in.ColumnWidth
	if colWidth <= 0 {
		colWidth = (in.ScreenWidth - columnGap*(n-1)) / n
	}
	colWidth = clamp(colWidth, minColumnWidth, maxColumnWidth)
	visible := max(1, (out.Height-columnHeaderRows)/cardHeight)

	x := int(in.Origin.X)
	for colIdx, col := range in.Columns {
		top := scroll[colIdx]
		if colIdx == in.SelectedColumn && len(col.Tasks) > 0 {
			sel := clamp(in.SelectedTask, 0, len(col.Tasks)-1)
			if sel >= top+visible {
				top = sel - visible + 1
			}
			if sel < top {
				top = sel
			}
		}
		top = clamp(top, 0, max(0, len(col.Tasks)-visible))
		scroll[colIdx] = top

		out.Columns = append(out.Columns, columnSlot{
			Status:  col.Status,
			X:       x,
			Width:   colWidth,
			Scroll:  top,
			Visible: visible,
		})
		y := int(in.Origin.Y) + columnHeaderRows
		for idx := top; idx < len(col.Tasks) && idx < top+visible; idx++ {
			out.Cards = append(out.Cards, cardSlot{
				TaskID: col.Tasks[idx].ID,
				Column: colIdx,
				Index:  idx,
				Rect: drag.Rect{
					Left:   float64(x),
					Top:    float64(y),
					Width:  float64(colWidth),
					Height: cardHeight,
				},
			})
			y += cardHeight
		}
		x += colWidth + columnGap
	}
	out.Width = x - columnGap - int(in.Origin.X)
	return out, scroll
}

// cardAt returns the card under a window cell.
func (l *boardLayout) cardAt(x, y int) (cardSlot, bool) {
	if l == nil {
		return cardSlot{}, false
	}
	for _, c := range l.Cards {
		if contains(c.Rect, x, y) {
			return c, true
		}
	}
	return cardSlot{}, false
}

// card returns the slot of taskID when it is currently laid out.
func (l *boardLayout) card(taskID string) (cardSlot, bool) {
	if l == nil {
		return cardSlot{}, false
	}
	idx := slices.IndexFunc(l.Cards, func(c cardSlot) bool { return c.TaskID == taskID })
	if idx < 0 {
		return cardSlot{}, false
	}
	return l.Cards[idx], true
}

// columnAt returns the column index under a window cell.
func (l *boardLayout) columnAt(x, y int) (int, bool) {
	if l == nil || y < int(l.Origin.Y) || y >= int(l.Origin.Y)+l.Height {
		return 0, false
	}
	for idx, c := range l.Columns {
		if x >= c.X && x < c.X+c.Width {
			return idx, true
		}
	}
	return 0, false
}

func contains(r drag.Rect, x, y int) bool {
	fx, fy := float64(x), float64(y)
	return fx >= r.Left && fx < r.Left+r.Width && fy >= r.Top && fy < r.Top+r.Height
}
