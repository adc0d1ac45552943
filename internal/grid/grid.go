package grid

// OutOfBounds is returned by reads outside the grid. It is distinct from empty
// (0) and from every colour id, so callers can treat board edges as solid.
const OutOfBounds = -1

// Cell is a grid coordinate.
type Cell struct {
	X, Y int
}

// CellListener is called after a cell's displayed value changes.
type CellListener func(x, y, value int)

// Grid holds a cols x rows board. Each cell carries a persisted value (the
// committed colour, 0 for empty) and a displayed value that overlays may
// temporarily replace. A Grid is owned by a single goroutine.
type Grid struct {
	cols, rows int
	persisted  []int
	displayed  []int

	listeners map[int]CellListener
	nextID    int
}

// New creates an empty grid.
func New(cols, rows int) *Grid {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return &Grid{
		cols:      cols,
		rows:      rows,
		persisted: make([]int, cols*rows),
		displayed: make([]int, cols*rows),
		listeners: make(map[int]CellListener),
	}
}

func (g *Grid) Cols() int { return g.cols }
func (g *Grid) Rows() int { return g.rows }

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.cols && y >= 0 && y < g.rows
}

func (g *Grid) index(x, y int) int { return y*g.cols + x }

// Get returns the persisted value at (x, y), or OutOfBounds.
func (g *Grid) Get(x, y int) int {
	if !g.InBounds(x, y) {
		return OutOfBounds
	}
	return g.persisted[g.index(x, y)]
}

// Displayed returns the displayed value at (x, y), or OutOfBounds.
func (g *Grid) Displayed(x, y int) int {
	if !g.InBounds(x, y) {
		return OutOfBounds
	}
	return g.displayed[g.index(x, y)]
}

// Set writes a persisted value and resets the cell's displayed value to it.
// Out-of-bounds writes are ignored.
func (g *Grid) Set(x, y, value int) {
	if !g.InBounds(x, y) {
		return
	}
	g.persisted[g.index(x, y)] = value
	g.setDisplayed(x, y, value)
}

// SetDisplayed changes only the displayed value. Out-of-bounds writes are ignored.
func (g *Grid) SetDisplayed(x, y, value int) {
	if !g.InBounds(x, y) {
		return
	}
	g.setDisplayed(x, y, value)
}

func (g *Grid) setDisplayed(x, y, value int) {
	i := g.index(x, y)
	if g.displayed[i] == value {
		return
	}
	g.displayed[i] = value
	g.notify(x, y, value)
}

// Reset empties every cell.
func (g *Grid) Reset() {
	for y := range g.rows {
		for x := range g.cols {
			g.Set(x, y, 0)
		}
	}
}

// Empty reports whether no cell holds a persisted value.
func (g *Grid) Empty() bool {
	for _, v := range g.persisted {
		if v != 0 {
			return false
		}
	}
	return true
}

// OnCellChanged subscribes fn to displayed-value changes. Listeners run
// synchronously on the mutating goroutine, after the write. The returned func
// removes the subscription.
func (g *Grid) OnCellChanged(fn CellListener) (unsubscribe func()) {
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	return func() { delete(g.listeners, id) }
}

func (g *Grid) notify(x, y, value int) {
	for _, fn := range g.listeners {
		fn(x, y, value)
	}
}
