// Package game runs one session: the current and next piece, score, level,
// lives and multiplier, and the rules applied after each placement.
package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gridfall/internal/grid"
	"gridfall/internal/piece"
)

// State is the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateActive
	StateOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateOver:
		return "over"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	DefaultCols = 5
	DefaultRows = 5
	MaxLives    = 3

	pointsPerBlock = 10
	pointsPerLevel = 1000

	minTimerDelay  = 2500 * time.Millisecond
	baseTimerDelay = 12000 * time.Millisecond
	timerStep      = 500 * time.Millisecond
)

// Hooks are UI notifications. All run synchronously on the game goroutine;
// nil hooks are skipped.
type Hooks struct {
	PieceUpdated func(current, next piece.Piece)
	LivesChanged func(lives int)
	ScoreChanged func(score, level, multiplier int)
	LinesCleared func(cells []grid.Cell)
	GameOver     func(score int)
}

// Options configure a Game.
type Options struct {
	Cols, Rows int
	Lives      int
	Source     PieceSource
	Reporter   Reporter
	Hooks      Hooks
	Log        *zap.Logger
}

// Game is one play session. It is not safe for concurrent use; the owning
// goroutine drives every method.
type Game struct {
	grid     *grid.Grid
	source   PieceSource
	reporter Reporter
	hooks    Hooks
	log      *zap.Logger

	state         State
	current, next piece.Piece

	score      int
	level      int
	lives      int
	multiplier int

	hovering       bool
	hoverX, hoverY int
}

// New creates an idle game. A nil Source means a time-seeded LocalSource.
func New(opts Options) *Game {
	if opts.Cols <= 0 {
		opts.Cols = DefaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.Lives <= 0 || opts.Lives > MaxLives {
		opts.Lives = MaxLives
	}
	if opts.Source == nil {
		opts.Source = NewLocalSource(uint64(time.Now().UnixNano()))
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Game{
		grid:       grid.New(opts.Cols, opts.Rows),
		source:     opts.Source,
		reporter:   opts.Reporter,
		hooks:      opts.Hooks,
		log:        opts.Log,
		lives:      opts.Lives,
		multiplier: 1,
	}
}

func (g *Game) Grid() *grid.Grid     { return g.grid }
func (g *Game) State() State         { return g.state }
func (g *Game) Current() piece.Piece { return g.current }
func (g *Game) Next() piece.Piece    { return g.next }
func (g *Game) Score() int           { return g.score }
func (g *Game) Level() int           { return g.level }
func (g *Game) Lives() int           { return g.lives }
func (g *Game) Multiplier() int      { return g.multiplier }

// Start draws the first two pieces and makes the game active.
func (g *Game) Start(ctx context.Context) error {
	if g.state != StateIdle {
		return fmt.Errorf("start: game is %s", g.state)
	}
	cur, err := g.source.Next(ctx)
	if err != nil {
		return fmt.Errorf("start: first piece: %w", err)
	}
	nxt, err := g.source.Next(ctx)
	if err != nil {
		return fmt.Errorf("start: second piece: %w", err)
	}
	g.current, g.next = cur, nxt
	g.state = StateActive
	g.log.Info("game started", zap.Int("cols", g.grid.Cols()), zap.Int("rows", g.grid.Rows()))

	g.firePieces()
	if g.hooks.LivesChanged != nil {
		g.hooks.LivesChanged(g.lives)
	}
	g.fireScore()
	return nil
}

// BlockClicked places the current piece anchored at (x, y) if it fits. A
// rejected placement returns false and changes nothing. The error reports a
// piece source failure after a successful placement; the game is then over.
func (g *Game) BlockClicked(ctx context.Context, x, y int) (bool, error) {
	if g.state != StateActive {
		return false, nil
	}
	if !grid.CanPlace(g.grid, g.current, x, y) {
		return false, nil
	}

	placed := g.current
	grid.Commit(g.grid, placed, x, y)
	g.log.Debug("piece placed", zap.String("piece", placed.Name()), zap.Int("x", x), zap.Int("y", y))

	// score the placement before drawing, so a failing source still counts it
	g.afterPiece(ctx)
	err := g.advance(ctx)
	g.refreshOverlay()
	return true, err
}

// afterPiece clears full lines and applies scoring.
func (g *Game) afterPiece(ctx context.Context) {
	cleared := grid.ClearLines(g.grid)
	if cleared.Lines > 0 {
		g.score += cleared.Lines * len(cleared.Cells) * pointsPerBlock * g.multiplier
		g.multiplier++
		if g.hooks.LinesCleared != nil {
			g.hooks.LinesCleared(cleared.Cells)
		}
	} else {
		g.multiplier = 1
	}
	g.level = g.score / pointsPerLevel
	g.fireScore()

	g.reporter.ReportScore(ctx, g.score)
	g.reporter.ReportBoard(ctx, g.grid.Snapshot())
}

// advance shifts next into current and draws a new next.
func (g *Game) advance(ctx context.Context) error {
	nxt, err := g.source.Next(ctx)
	if err != nil {
		g.log.Warn("piece source failed", zap.Error(err))
		g.current = g.next
		g.end(ctx)
		return fmt.Errorf("next piece: %w", err)
	}
	g.current, g.next = g.next, nxt
	g.firePieces()
	return nil
}

// HoverEnter marks (x, y) as hovered and previews the current piece there.
func (g *Game) HoverEnter(x, y int) {
	g.hovering = true
	g.hoverX, g.hoverY = x, y
	g.refreshOverlay()
}

// HoverExit clears the hover and its preview.
func (g *Game) HoverExit() {
	g.hovering = false
	g.refreshOverlay()
}

// Rotate turns the current piece n quarter turns clockwise (negative for
// counter-clockwise).
func (g *Game) Rotate(n int) {
	if g.state != StateActive {
		return
	}
	g.current = g.current.Rotate(n)
	g.firePieces()
	g.refreshOverlay()
}

// SwapPieces exchanges the current and next pieces.
func (g *Game) SwapPieces() {
	if g.state != StateActive {
		return
	}
	g.current, g.next = g.next, g.current
	g.firePieces()
	g.refreshOverlay()
}

// LoseLife removes one life. Losing the last one ends the game.
func (g *Game) LoseLife(ctx context.Context) {
	if g.state != StateActive {
		return
	}
	g.lives--
	if g.hooks.LivesChanged != nil {
		g.hooks.LivesChanged(g.lives)
	}
	if g.lives <= 0 {
		g.lives = 0
		g.end(ctx)
		return
	}
	g.reporter.ReportLives(ctx, g.lives)
}

// Timeout handles an expired piece timer: a life is lost, the multiplier
// resets and the current piece is discarded.
func (g *Game) Timeout(ctx context.Context) error {
	g.LoseLife(ctx)
	if g.state != StateActive {
		return nil
	}
	if g.multiplier != 1 {
		g.multiplier = 1
		g.fireScore()
	}
	err := g.advance(ctx)
	g.refreshOverlay()
	return err
}

// TimerDelay is how long the player has to place the current piece.
func (g *Game) TimerDelay() time.Duration {
	return max(minTimerDelay, baseTimerDelay-time.Duration(g.level)*timerStep)
}

// End finishes the game early, for example when the player quits.
func (g *Game) End(ctx context.Context) {
	if g.state == StateOver {
		return
	}
	g.end(ctx)
}

func (g *Game) end(ctx context.Context) {
	g.state = StateOver
	g.hovering = false
	grid.ClearOverlay(g.grid)
	g.log.Info("game over", zap.Int("score", g.score), zap.Int("level", g.level))
	g.reporter.ReportDeath(ctx)
	if g.hooks.GameOver != nil {
		g.hooks.GameOver(g.score)
	}
}

func (g *Game) refreshOverlay() {
	if !g.hovering || g.state != StateActive {
		grid.ClearOverlay(g.grid)
		return
	}
	ok := grid.CanPlace(g.grid, g.current, g.hoverX, g.hoverY)
	grid.SetPreview(g.grid, g.current, g.hoverX, g.hoverY, ok)
}

func (g *Game) firePieces() {
	if g.hooks.PieceUpdated != nil {
		g.hooks.PieceUpdated(g.current, g.next)
	}
}

func (g *Game) fireScore() {
	if g.hooks.ScoreChanged != nil {
		g.hooks.ScoreChanged(g.score, g.level, g.multiplier)
	}
}
