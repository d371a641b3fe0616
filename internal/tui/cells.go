package tui

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// A terminal cell stands for a CellWidth x CellHeight pixel block
const (
	CellWidth  = 8
	CellHeight = 16
)

// Cell is one terminal character
type Cell struct {
	Ch rune
	FG string
	BG string
}

// Cells is a render.Surface that rasterizes into a grid of terminal cells.
// Alpha is approximated by blending against the cell background.
type Cells struct {
	render.Mapper
	cols, rows int
	grid       []Cell
	bg         string
}

// NewCells creates a grid of cols x rows cells
func NewCells(cols, rows int) *Cells {
	c := &Cells{}
	c.Resize(cols, rows)
	return c
}

// Resize changes the grid size and clears it
func (c *Cells) Resize(cols, rows int) {
	c.cols, c.rows = max(cols, 0), max(rows, 0)
	c.grid = make([]Cell, c.cols*c.rows)
	c.Clear(c.bg)
}

// Dims returns the grid size in cells
func (c *Cells) Dims() (cols, rows int) { return c.cols, c.rows }

// At returns the cell at col, row
func (c *Cells) At(col, row int) Cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return Cell{}
	}
	return c.grid[row*c.cols+col]
}

// ToPixel maps a cell to the pixel at its centre
func ToPixel(col, row int) render.Point {
	return render.Point{X: float64(col*CellWidth) + CellWidth/2, Y: float64(row*CellHeight) + CellHeight/2}
}

func toCell(p render.Point) (col, row int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

func (c *Cells) Size() (float64, float64) {
	return float64(c.cols * CellWidth), float64(c.rows * CellHeight)
}

func (c *Cells) Clear(color string) {
	c.bg = color
	for i := range c.grid {
		c.grid[i] = Cell{Ch: ' ', BG: color}
	}
}

func (c *Cells) cell(col, row int) *Cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return nil
	}
	return &c.grid[row*c.cols+col]
}

func (c *Cells) Line(a, b render.Point, stroke render.Paint) {
	if stroke.Color == "" || stroke.Alpha <= 0 {
		return
	}
	a, b = c.Pt(a), c.Pt(b)
	ch := lineRune(b.X-a.X, b.Y-a.Y)
	c0, r0 := toCell(a)
	c1, r1 := toCell(b)
	if max(abs(c1-c0), abs(r1-r0)) > 4*(c.cols+c.rows) {
		return
	}

	dc, dr := abs(c1-c0), -abs(r1-r0)
	sc, sr := sign(c1-c0), sign(r1-r0)
	errv := dc + dr
	for {
		if cell := c.cell(c0, r0); cell != nil {
			cell.Ch = ch
			cell.FG = render.Blend(stroke.Color, cell.BG, stroke.Alpha)
		}
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * errv
		if e2 >= dr {
			errv += dr
			c0 += sc
		}
		if e2 <= dc {
			errv += dc
			r0 += sr
		}
	}
}

// lineRune picks a box-drawing character for a direction in pixel space
func lineRune(dx, dy float64) rune {
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return '─'
	case angle < 67.5:
		return '╲'
	case angle < 112.5:
		return '│'
	}
	return '╱'
}

func (c *Cells) Circle(center render.Point, radius float64, fill, stroke render.Paint) {
	ctr, r := c.Pt(center), c.Len(radius)
	if r <= 0 {
		return
	}
	c0, r0 := toCell(render.Point{X: ctr.X - r, Y: ctr.Y - r})
	c1, r1 := toCell(render.Point{X: ctr.X + r, Y: ctr.Y + r})
	c0, r0 = max(c0, 0), max(r0, 0)
	c1, r1 = min(c1, c.cols-1), min(r1, c.rows-1)

	paintedFill := false
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			p := ToPixel(col, row)
			d := math.Hypot(p.X-ctr.X, p.Y-ctr.Y)
			cell := c.cell(col, row)
			switch {
			case fill.Color != "" && fill.Alpha > 0 && d <= r:
				cell.Ch = ' '
				cell.BG = render.Blend(fill.Color, cell.BG, fill.Alpha)
				paintedFill = true
			case stroke.Color != "" && stroke.Alpha > 0 && d <= r+CellWidth/2:
				cell.BG = render.Blend(stroke.Color, cell.BG, stroke.Alpha)
			}
		}
	}
	// circles smaller than a cell still get a dot
	if !paintedFill && fill.Color != "" && fill.Alpha > 0 {
		if cell := c.cell(toCell(ctr)); cell != nil {
			cell.Ch = '●'
			cell.FG = render.Blend(fill.Color, cell.BG, fill.Alpha)
		}
	}
}

func (c *Cells) Polygon(points []render.Point, fill render.Paint) {
	if len(points) == 0 || fill.Color == "" || fill.Alpha <= 0 {
		return
	}
	// arrowheads are smaller than a cell: mark the tip
	tip := c.Pt(points[0])
	cell := c.cell(toCell(tip))
	if cell == nil {
		return
	}
	if len(points) >= 3 {
		base := c.Pt(points[1]).Lerp(c.Pt(points[2]), 0.5)
		cell.Ch = arrowRune(tip.X-base.X, tip.Y-base.Y)
	} else {
		cell.Ch = '•'
	}
	cell.FG = render.Blend(fill.Color, cell.BG, fill.Alpha)
}

func arrowRune(dx, dy float64) rune {
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return '▸'
		}
		return '◂'
	}
	if dy >= 0 {
		return '▾'
	}
	return '▴'
}

func (c *Cells) Text(at render.Point, s string, style render.TextStyle) {
	if s == "" || style.Color == "" || style.Alpha <= 0 {
		return
	}
	p := c.Pt(at)
	col, row := toCell(p)
	n := utf8.RuneCountInString(s)
	switch style.Align {
	case render.AlignCenter:
		col -= n / 2
	case render.AlignRight:
		col -= n - 1
	}
	for _, r := range s {
		if cell := c.cell(col, row); cell != nil {
			cell.Ch = r
			cell.FG = render.Blend(style.Color, cell.BG, style.Alpha)
		}
		col++
	}
}

// Row returns one row as plain text
func (c *Cells) Row(row int) string {
	if row < 0 || row >= c.rows {
		return ""
	}
	var b strings.Builder
	for _, cell := range c.grid[row*c.cols : (row+1)*c.cols] {
		b.WriteRune(cell.Ch)
	}
	return b.String()
}

// View renders the grid with colors, grouping runs of equal style
func (c *Cells) View() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		line := c.grid[row*c.cols : (row+1)*c.cols]
		start := 0
		for i := 1; i <= len(line); i++ {
			if i < len(line) && line[i].FG == line[start].FG && line[i].BG == line[start].BG {
				continue
			}
			var run strings.Builder
			for _, cell := range line[start:i] {
				run.WriteRune(cell.Ch)
			}
			style := lipgloss.NewStyle()
			if fg := line[start].FG; fg != "" {
				style = style.Foreground(lipgloss.Color(fg))
			}
			if bg := line[start].BG; bg != "" {
				style = style.Background(lipgloss.Color(bg))
			}
			b.WriteString(style.Render(run.String()))
			start = i
		}
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
