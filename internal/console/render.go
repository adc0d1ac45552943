package console

import (
	"fmt"
	"io"
	"strings"

	"gridfall/internal/grid"
	"gridfall/internal/piece"
	"gridfall/internal/protocol"
	"gridfall/internal/scores"
)

// cellChar maps a displayed value to one character: '.' empty, 'A'.. for
// piece colours, '+' for a valid preview and 'x' for an invalid one.
func cellChar(v int) byte {
	value, overlay := grid.DecodeDisplayed(v)
	switch {
	case overlay == grid.OverlayValid:
		return '+'
	case overlay == grid.OverlayInvalid:
		return 'x'
	case value == 0:
		return '.'
	case value <= 26:
		return byte('A' + value - 1)
	}
	return '#'
}

func renderCells(w io.Writer, cols, rows int, get func(x, y int) int) {
	var b strings.Builder
	b.WriteString("  ")
	for x := range cols {
		fmt.Fprintf(&b, " %d", x%10)
	}
	b.WriteByte('\n')
	for y := range rows {
		fmt.Fprintf(&b, "%2d", y)
		for x := range cols {
			b.WriteByte(' ')
			b.WriteByte(cellChar(get(x, y)))
		}
		b.WriteByte('\n')
	}
	io.WriteString(w, b.String())
}

// RenderBoard writes the displayed grid, overlays included.
func RenderBoard(w io.Writer, g *grid.Grid) {
	renderCells(w, g.Cols(), g.Rows(), g.Displayed)
}

// RenderSnapshot writes a board received from another player.
func RenderSnapshot(w io.Writer, s grid.Snapshot) {
	renderCells(w, s.Cols, s.Rows, s.Get)
}

// RenderPieces writes the current and next pieces side by side.
func RenderPieces(w io.Writer, current, next piece.Piece) {
	cur := strings.Split(current.String(), "\n")
	nxt := strings.Split(next.String(), "\n")
	fmt.Fprintf(w, "%-8s%s\n", "now", "next")
	for i := range cur {
		fmt.Fprintf(w, "%-8s%s\n", cur[i], nxt[i])
	}
}

// RenderStatus writes the score line.
func RenderStatus(w io.Writer, score, level, lives, multiplier int) {
	fmt.Fprintf(w, "score %d  level %d  lives %d  x%d\n", score, level, lives, multiplier)
}

// RenderScoreboard writes a channel scoreboard.
func RenderScoreboard(w io.Writer, entries []protocol.PlayerScore) {
	for _, e := range entries {
		lives := fmt.Sprint(e.Lives)
		if e.Dead {
			lives = "out"
		}
		fmt.Fprintf(w, "  %-16s %6d  %s\n", e.Name, e.Score, lives)
	}
}

// RenderHighScores writes a ranked high score list.
func RenderHighScores(w io.Writer, entries []scores.Entry) {
	if len(entries) == 0 {
		io.WriteString(w, "  no scores yet\n")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(w, "%3d. %-16s %6d\n", i+1, e.Name, e.Score)
	}
}
