package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridfall/internal/piece"
)

// unit is the single-cell test piece: only the centre set, value 1.
var unit = piece.FromBlocks(0, [piece.Size][piece.Size]int{{0, 0, 0}, {0, 1, 0}, {0, 0, 0}})

func TestOutOfBoundsSentinel(t *testing.T) {
	g := New(5, 4)
	for _, c := range []Cell{{-1, 0}, {0, -1}, {5, 0}, {0, 4}, {5, 4}, {-3, -3}} {
		assert.Equal(t, OutOfBounds, g.Get(c.X, c.Y), "get %v", c)
		assert.Equal(t, OutOfBounds, g.Displayed(c.X, c.Y), "displayed %v", c)
	}
	assert.Equal(t, 0, g.Get(4, 3))
}

func TestSetOutOfBoundsIgnored(t *testing.T) {
	g := New(2, 2)
	g.Set(2, 0, 9)
	g.SetDisplayed(-1, 0, 9)
	assert.True(t, g.Empty())
}

func TestPlaceThenReject(t *testing.T) {
	g := New(5, 5)
	require.True(t, CanPlace(g, unit, 2, 2))

	Commit(g, unit, 2, 2)
	assert.Equal(t, 1, g.Get(2, 2))
	assert.False(t, CanPlace(g, unit, 2, 2))
}

func TestCanPlaceRejectsOffBoard(t *testing.T) {
	g := New(5, 5)
	line, err := piece.New(0, 0) // horizontal line through the centre
	require.NoError(t, err)

	assert.True(t, CanPlace(g, line, 1, 0))
	assert.False(t, CanPlace(g, line, 0, 0), "left cell hangs off the board")
	assert.False(t, CanPlace(g, line, 4, 2), "right cell hangs off the board")
	assert.True(t, g.Empty(), "rejection has no side effects")
}

func TestPreviewIsNonDestructive(t *testing.T) {
	g := New(5, 5)
	Preview(g, unit, 2, 2, true)
	assert.Equal(t, 1+PreviewOffset, g.Displayed(2, 2))
	assert.Equal(t, 0, g.Get(2, 2))

	ClearOverlay(g)
	assert.Equal(t, g.Get(2, 2), g.Displayed(2, 2))
}

func TestPreviewInvalidSkipsOffBoard(t *testing.T) {
	g := New(5, 5)
	line, err := piece.New(0, 0)
	require.NoError(t, err)

	Preview(g, line, 0, 0, false)
	assert.Equal(t, -1, g.Displayed(0, 0))
	assert.Equal(t, -1, g.Displayed(1, 0))
	assert.Equal(t, 0, g.Displayed(2, 0))

	v, o := DecodeDisplayed(g.Displayed(0, 0))
	assert.Equal(t, 1, v)
	assert.Equal(t, OverlayInvalid, o)

	ClearOverlay(g)
	for y := range 5 {
		for x := range 5 {
			assert.Equal(t, g.Get(x, y), g.Displayed(x, y))
		}
	}
}

func TestDecodeDisplayed(t *testing.T) {
	v, o := DecodeDisplayed(3 + PreviewOffset)
	assert.Equal(t, 3, v)
	assert.Equal(t, OverlayValid, o)

	v, o = DecodeDisplayed(7)
	assert.Equal(t, 7, v)
	assert.Equal(t, OverlayNone, o)
}

func TestOnCellChanged(t *testing.T) {
	g := New(3, 3)
	var got []Cell
	unsubscribe := g.OnCellChanged(func(x, y, value int) {
		assert.Equal(t, value, g.Displayed(x, y), "listener runs after the write")
		got = append(got, Cell{x, y})
	})

	Commit(g, unit, 1, 1)
	g.Set(1, 1, 1) // unchanged, no event
	assert.Equal(t, []Cell{{1, 1}}, got)

	unsubscribe()
	g.Set(0, 0, 2)
	assert.Len(t, got, 1)
}

func TestSetPreviewWritesOnlyChangedCells(t *testing.T) {
	g := New(5, 5)
	line := piece.FromBlocks(0, [piece.Size][piece.Size]int{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}})
	var got []Cell
	g.OnCellChanged(func(x, y, value int) { got = append(got, Cell{x, y}) })

	SetPreview(g, line, 1, 1, true)
	assert.ElementsMatch(t, []Cell{{0, 1}, {1, 1}, {2, 1}}, got)

	got = nil
	SetPreview(g, line, 1, 1, true)
	assert.Empty(t, got, "same preview again")

	got = nil
	SetPreview(g, line, 2, 1, true)
	assert.ElementsMatch(t, []Cell{{0, 1}, {3, 1}}, got, "only the cells leaving and entering the overlay")
	assert.Equal(t, 0, g.Displayed(0, 1))
	assert.Equal(t, 1+PreviewOffset, g.Displayed(3, 1))

	got = nil
	SetPreview(g, line, 2, 1, false)
	assert.ElementsMatch(t, []Cell{{1, 1}, {2, 1}, {3, 1}}, got)
	assert.Equal(t, -1, g.Displayed(2, 1))
	assert.True(t, g.Empty(), "previews never touch persisted values")
}

func TestClearLinesRowAndColumn(t *testing.T) {
	g := New(3, 3)
	for x := range 3 {
		g.Set(x, 0, 1)
	}
	for y := range 3 {
		g.Set(0, y, 2)
	}
	g.Set(2, 2, 3)

	res := ClearLines(g)
	assert.Equal(t, 2, res.Lines)
	assert.Len(t, res.Cells, 5, "corner counted once")
	assert.Equal(t, 3, g.Get(2, 2))
	assert.Equal(t, 0, g.Get(0, 0))
	assert.Equal(t, 0, g.Get(0, 2))
}

func TestClearLinesNone(t *testing.T) {
	g := New(3, 3)
	g.Set(0, 0, 1)
	res := ClearLines(g)
	assert.Zero(t, res.Lines)
	assert.Empty(t, res.Cells)
	assert.Equal(t, 1, g.Get(0, 0))
}

func TestCanPlaceAnywhere(t *testing.T) {
	g := New(3, 3)
	assert.True(t, CanPlaceAnywhere(g, unit))
	for y := range 3 {
		for x := range 3 {
			g.Set(x, y, 1)
		}
	}
	assert.False(t, CanPlaceAnywhere(g, unit))
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New(4, 2)
	g.Set(3, 1, 6)
	Preview(g, unit, 0, 0, true)

	data, err := g.Snapshot().Encode()
	require.NoError(t, err)

	s, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Cols)
	assert.Equal(t, 6, s.Get(3, 1))
	assert.Equal(t, 0, s.Get(0, 0), "overlays are not part of the snapshot")
	assert.Equal(t, OutOfBounds, s.Get(4, 0))
}

func TestDecodeSnapshotGarbage(t *testing.T) {
	_, err := DecodeSnapshot("!!not base64")
	assert.Error(t, err)
}
