package grid

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is a copy of the persisted board, used for BOARD broadcasts.
type Snapshot struct {
	Cols  int   `msgpack:"c"`
	Rows  int   `msgpack:"r"`
	Cells []int `msgpack:"v"` // row-major persisted values
}

// Snapshot copies the persisted values.
func (g *Grid) Snapshot() Snapshot {
	cells := make([]int, len(g.persisted))
	copy(cells, g.persisted)
	return Snapshot{Cols: g.cols, Rows: g.rows, Cells: cells}
}

// Get returns the value at (x, y), or OutOfBounds.
func (s Snapshot) Get(x, y int) int {
	if x < 0 || x >= s.Cols || y < 0 || y >= s.Rows {
		return OutOfBounds
	}
	return s.Cells[y*s.Cols+x]
}

// Encode packs the snapshot as base64 msgpack so it fits a text frame.
func (s Snapshot) Encode() (string, error) {
	b, err := msgpack.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeSnapshot reverses Encode.
func DecodeSnapshot(data string) (Snapshot, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	var s Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.Cols < 0 || s.Rows < 0 || len(s.Cells) != s.Cols*s.Rows {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %d cells for %dx%d", len(s.Cells), s.Cols, s.Rows)
	}
	return s, nil
}
