package grid

import (
	"sort"

	"gridfall/internal/piece"
)

// PreviewOffset is added to a piece value to mark a valid ghost overlay.
// Invalid overlays are stored as the negated piece value.
const PreviewOffset = 100

// Overlay classifies a displayed value.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayValid
	OverlayInvalid
)

// DecodeDisplayed splits a displayed value into its colour and overlay kind.
func DecodeDisplayed(v int) (value int, o Overlay) {
	switch {
	case v > PreviewOffset:
		return v - PreviewOffset, OverlayValid
	case v < 0:
		return -v, OverlayInvalid
	default:
		return v, OverlayNone
	}
}

func target(x, y int, c piece.Cell) (int, int) {
	return x - 1 + c.X, y - 1 + c.Y
}

// CanPlace reports whether p anchored at (x, y) lands only on empty cells.
// Cells off the board read as OutOfBounds and reject the placement.
func CanPlace(g *Grid, p piece.Piece, x, y int) bool {
	for _, c := range p.Cells() {
		if g.Get(target(x, y, c)) != 0 {
			return false
		}
	}
	return true
}

// CanPlaceAnywhere reports whether some anchor on the board accepts p.
func CanPlaceAnywhere(g *Grid, p piece.Piece) bool {
	for y := range g.rows {
		for x := range g.cols {
			if CanPlace(g, p, x, y) {
				return true
			}
		}
	}
	return false
}

// Commit writes p's value into every cell it covers. Callers check CanPlace
// first; Commit does not.
func Commit(g *Grid, p piece.Piece, x, y int) {
	for _, c := range p.Cells() {
		tx, ty := target(x, y, c)
		g.Set(tx, ty, p.Value())
	}
}

func previewValue(p piece.Piece, valid bool) int {
	if valid {
		return p.Value() + PreviewOffset
	}
	return -p.Value()
}

// Preview overlays p at (x, y) on the displayed values only.
func Preview(g *Grid, p piece.Piece, x, y int, valid bool) {
	v := previewValue(p, valid)
	for _, c := range p.Cells() {
		tx, ty := target(x, y, c)
		if !g.InBounds(tx, ty) {
			continue
		}
		g.SetDisplayed(tx, ty, v)
	}
}

// SetPreview replaces any overlay with p previewed at (ax, ay). Each cell is
// written once with its final value, so listeners only hear about cells
// whose displayed value actually changes.
func SetPreview(g *Grid, p piece.Piece, ax, ay int, valid bool) {
	v := previewValue(p, valid)
	covered := make(map[Cell]bool, piece.Size*piece.Size)
	for _, c := range p.Cells() {
		tx, ty := target(ax, ay, c)
		covered[Cell{tx, ty}] = true
	}
	for y := range g.rows {
		for x := range g.cols {
			if covered[Cell{x, y}] {
				g.setDisplayed(x, y, v)
			} else {
				g.setDisplayed(x, y, g.persisted[g.index(x, y)])
			}
		}
	}
}

// ClearOverlay restores every displayed value to its persisted value.
func ClearOverlay(g *Grid) {
	for y := range g.rows {
		for x := range g.cols {
			g.setDisplayed(x, y, g.persisted[g.index(x, y)])
		}
	}
}

// Cleared describes the result of ClearLines.
type Cleared struct {
	Lines int
	Cells []Cell
}

// ClearLines empties every full row and every full column. Lines are found
// before any cell is removed, so a cell on a full row and a full column counts
// once.
func ClearLines(g *Grid) Cleared {
	hit := make(map[Cell]struct{})
	lines := 0

	for y := range g.rows {
		full := g.cols > 0
		for x := range g.cols {
			if g.Get(x, y) == 0 {
				full = false
				break
			}
		}
		if full {
			lines++
			for x := range g.cols {
				hit[Cell{x, y}] = struct{}{}
			}
		}
	}
	for x := range g.cols {
		full := g.rows > 0
		for y := range g.rows {
			if g.Get(x, y) == 0 {
				full = false
				break
			}
		}
		if full {
			lines++
			for y := range g.rows {
				hit[Cell{x, y}] = struct{}{}
			}
		}
	}

	cells := make([]Cell, 0, len(hit))
	for c := range hit {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	for _, c := range cells {
		g.Set(c.X, c.Y, 0)
	}
	return Cleared{Lines: lines, Cells: cells}
}
