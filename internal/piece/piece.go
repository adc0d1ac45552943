package piece

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the edge length of every piece matrix.
const Size = 3

// ErrUnknownShape is returned for shape ids outside the catalog.
var ErrUnknownShape = errors.New("unknown piece shape")

// Cell is a local coordinate inside a piece matrix.
type Cell struct {
	X, Y int
}

// Piece is an immutable placeable shape. Blocks is indexed [x][y] with the
// centre at (1,1), the anchor used for placement.
type Piece struct {
	shape    int
	rotation int
	blocks   [Size][Size]int
}

// New returns catalog shape rotated clockwise rotation times.
func New(shape, rotation int) (Piece, error) {
	if shape < 0 || shape >= len(catalog) {
		return Piece{}, fmt.Errorf("%w: %d", ErrUnknownShape, shape)
	}
	p := Piece{shape: shape, blocks: catalog[shape].blocks}
	return p.Rotate(rotation), nil
}

// FromBlocks builds a piece outside the catalog. Its value is shape+1.
func FromBlocks(shape int, blocks [Size][Size]int) Piece {
	for x := range Size {
		for y := range Size {
			if blocks[x][y] != 0 {
				blocks[x][y] = 1
			}
		}
	}
	return Piece{shape: shape, blocks: blocks}
}

func (p Piece) Shape() int    { return p.shape }
func (p Piece) Rotation() int { return p.rotation }

// Value is the colour id written into the grid.
func (p Piece) Value() int { return p.shape + 1 }

// Blocks returns a copy of the occupancy matrix.
func (p Piece) Blocks() [Size][Size]int { return p.blocks }

// Occupied reports whether local cell (x, y) is filled.
func (p Piece) Occupied(x, y int) bool {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return false
	}
	return p.blocks[x][y] != 0
}

// Cells lists occupied local cells, x-major.
func (p Piece) Cells() []Cell {
	cells := make([]Cell, 0, Size*Size)
	for x := range Size {
		for y := range Size {
			if p.blocks[x][y] != 0 {
				cells = append(cells, Cell{X: x, Y: y})
			}
		}
	}
	return cells
}

// Count returns the number of occupied cells.
func (p Piece) Count() int {
	n := 0
	for x := range Size {
		for y := range Size {
			n += p.blocks[x][y]
		}
	}
	return n
}

// Rotate returns the piece turned clockwise n quarter turns. Negative n turns
// counter-clockwise.
func (p Piece) Rotate(n int) Piece {
	n = ((n % 4) + 4) % 4
	out := p
	for range n {
		var r [Size][Size]int
		for x := range Size {
			for y := range Size {
				// (x, y) -> (Size-1-y, x) is a clockwise turn with y growing downwards
				r[Size-1-y][x] = out.blocks[x][y]
			}
		}
		out.blocks = r
	}
	out.rotation = (p.rotation + n) % 4
	return out
}

// Name returns the catalog name of the shape, or "custom".
func (p Piece) Name() string {
	if p.shape >= 0 && p.shape < len(catalog) && p.blocks == rotatedCatalog(p.shape, p.rotation) {
		return catalog[p.shape].name
	}
	return "custom"
}

// String renders the matrix row by row, '#' for filled.
func (p Piece) String() string {
	var b strings.Builder
	for y := range Size {
		for x := range Size {
			if p.blocks[x][y] != 0 {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		if y < Size-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func rotatedCatalog(shape, rotation int) [Size][Size]int {
	p := Piece{shape: shape, blocks: catalog[shape].blocks}
	return p.Rotate(rotation).blocks
}
