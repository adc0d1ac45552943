package piece

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateFourTimesIsIdentity(t *testing.T) {
	for shape := range Shapes() {
		p, err := New(shape, 0)
		require.NoError(t, err)

		r := p
		for range 4 {
			r = r.Rotate(1)
		}
		assert.Equal(t, p.Blocks(), r.Blocks(), "shape %d", shape)
		assert.Equal(t, 0, r.Rotation())
	}
}

func TestRotateClockwise(t *testing.T) {
	// Double: centre plus the cell above it.
	p, err := New(10, 0)
	require.NoError(t, err)
	require.True(t, p.Occupied(1, 0))

	r := p.Rotate(1)
	assert.True(t, r.Occupied(1, 1))
	assert.True(t, r.Occupied(2, 1), "top cell should move right")
	assert.False(t, r.Occupied(1, 0))
	assert.Equal(t, 1, r.Rotation())

	back := r.Rotate(-1)
	assert.Equal(t, p.Blocks(), back.Blocks())
	assert.Equal(t, 0, back.Rotation())
}

func TestNewUnknownShape(t *testing.T) {
	_, err := New(Shapes(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownShape))

	_, err = New(-1, 0)
	assert.True(t, errors.Is(err, ErrUnknownShape))
}

func TestValueIsShapePlusOne(t *testing.T) {
	p, err := New(4, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Value())
	assert.Equal(t, 4, p.Shape())
	assert.Equal(t, 2, p.Rotation())
}

func TestCellsAndCount(t *testing.T) {
	plus, err := New(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, plus.Count())
	assert.ElementsMatch(t, []Cell{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}}, plus.Cells())
}

func TestFromBlocksNormalises(t *testing.T) {
	p := FromBlocks(0, [Size][Size]int{{0, 0, 0}, {0, 7, 0}, {0, 0, 0}})
	assert.Equal(t, 1, p.Count())
	assert.Equal(t, 1, p.Value())
	assert.Equal(t, "custom", p.Name())
}

func TestNameAndString(t *testing.T) {
	p, err := New(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Line", p.Name())
	assert.Equal(t, ".#.\n.#.\n.#.", p.String())
}
