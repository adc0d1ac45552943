// Package console is the plain text front end used by cmd/client. It reads
// commands line by line and drives one game plus, when connected, the lobby.
// Everything runs on the goroutine that calls Run.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"gridfall/internal/client"
	"gridfall/internal/game"
	"gridfall/internal/grid"
	"gridfall/internal/lobby"
	"gridfall/internal/netqueue"
	"gridfall/internal/protocol"
	"gridfall/internal/scores"
	"gridfall/internal/transport"
)

const (
	closeWait   = 2 * time.Second
	defaultNick = "player"
)

// ErrDisconnected is returned by Run when the server goes away.
var ErrDisconnected = errors.New("disconnected from server")

// Options configure a Console.
type Options struct {
	In  io.Reader
	Out io.Writer

	// Conn is the server connection; nil plays offline.
	Conn  transport.Transport
	Queue netqueue.Config

	Nick   string
	Scores *scores.Table
	// Source feeds offline games; nil draws from a LocalSource seeded with
	// Seed, one seed per game.
	Source game.PieceSource
	Seed   uint64
	Log    *zap.Logger
}

// Console is one interactive client.
type Console struct {
	in     io.Reader
	out    io.Writer
	nick   string
	table  *scores.Table
	source game.PieceSource
	seed   uint64
	log    *zap.Logger

	sess  *client.Session
	game  *game.Game
	timer *time.Timer

	over         bool
	startPending bool
}

// New builds a console. With a connection it also builds the client
// session that owns it.
func New(opts Options) *Console {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	c := &Console{
		in:     opts.In,
		out:    opts.Out,
		nick:   opts.Nick,
		table:  opts.Scores,
		source: opts.Source,
		seed:   opts.Seed,
		log:    opts.Log,
	}
	if opts.Conn != nil {
		c.sess = client.New(opts.Conn, client.Config{Nick: opts.Nick, Queue: opts.Queue},
			listener{c}, c.handlers(), opts.Log.Named("session"))
	}
	return c
}

// Online reports whether the console has a server connection.
func (c *Console) Online() bool { return c.sess != nil }

// Run reads commands until the input ends, the user quits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	lines := scanLines(ctx, c.in)
	defer c.shutdown()

	var runErr chan error
	if c.sess != nil {
		runErr = make(chan error, 1)
		go func() {
			err := c.sess.Run(ctx)
			// a game waiting for a piece would otherwise never wake up
			c.sess.Interrupt()
			runErr <- err
		}()
		c.println("connected; /help lists lobby commands, /hiscores shows the online table")
		if c.nick != "" {
			if err := c.sess.Lobby().Input(ctx, "/nick "+c.nick); err != nil {
				return err
			}
		}
	} else {
		c.println("offline; type help for commands")
		c.newOfflineGame(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.handleLine(ctx, line); err != nil {
				if errors.Is(err, lobby.ErrQuit) {
					return nil
				}
				c.println("error:", err)
			}
		case msg := <-c.events():
			c.sess.Dispatch(msg)
		case err := <-runErr:
			c.endGame(ctx)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDisconnected, err)
			}
			return ErrDisconnected
		case <-c.timerC():
			c.timer = nil
			if err := c.game.Timeout(ctx); err != nil {
				c.println("error:", err)
			}
			c.println("too slow, a life is lost")
			c.after(ctx)
			c.armTimer()
		}

		if c.startPending {
			c.startPending = false
			c.newOnlineGame(ctx)
		}
	}
}

func scanLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (c *Console) events() <-chan protocol.Message {
	if c.sess == nil {
		return nil
	}
	return c.sess.Events()
}

func (c *Console) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if c.playing() {
		if handled, err := c.gameCommand(ctx, line); handled {
			return err
		}
	}
	if c.sess == nil {
		return c.offlineCommand(ctx, line)
	}
	switch line {
	case "/hiscores":
		return c.sess.RequestHighScores(ctx)
	case "/local":
		c.printLocalScores()
		return nil
	}
	return c.sess.Lobby().Input(ctx, line)
}

func (c *Console) playing() bool {
	return c.game != nil && c.game.State() == game.StateActive
}

// gameCommand runs a move. It reports false for lines that are not moves so
// they can go to the lobby instead.
func (c *Console) gameCommand(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "place", "p":
		x, y, err := coords(fields)
		if err != nil {
			return true, err
		}
		placed, err := c.game.BlockClicked(ctx, x, y)
		if err != nil {
			c.after(ctx)
			return true, err
		}
		if !placed {
			c.println("does not fit there")
			return true, nil
		}
		c.armTimer()
	case "hover", "h":
		x, y, err := coords(fields)
		if err != nil {
			return true, err
		}
		c.game.HoverEnter(x, y)
	case "unhover":
		c.game.HoverExit()
	case "rotate", "r":
		n := 1
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return true, fmt.Errorf("rotate: bad count %q", fields[1])
			}
			n = v
		}
		c.game.Rotate(n)
	case "swap", "s":
		c.game.SwapPieces()
	case "board", "b":
	case "end":
		c.game.End(ctx)
	default:
		return false, nil
	}
	c.after(ctx)
	return true, nil
}

func coords(fields []string) (int, int, error) {
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("usage: %s <x> <y>", fields[0])
	}
	x, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad x %q", fields[1])
	}
	y, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, fmt.Errorf("bad y %q", fields[2])
	}
	return x, y, nil
}

func (c *Console) offlineCommand(ctx context.Context, line string) error {
	switch strings.TrimPrefix(line, "/") {
	case "new":
		c.endGame(ctx)
		c.newOfflineGame(ctx)
	case "scores":
		c.printLocalScores()
	case "help":
		c.println("moves: place x y, hover x y, unhover, rotate [n], swap, board, end")
		c.println("other: new, scores, quit")
	case "quit":
		return lobby.ErrQuit
	default:
		c.printf("unknown command %q\n", line)
	}
	return nil
}

func (c *Console) hooks() game.Hooks {
	return game.Hooks{
		LivesChanged: func(lives int) {
			if lives < game.MaxLives {
				c.printf("lives left: %d\n", lives)
			}
		},
		LinesCleared: func(cells []grid.Cell) {
			c.printf("cleared %d cells\n", len(cells))
		},
		GameOver: func(int) { c.over = true },
	}
}

func (c *Console) newOfflineGame(ctx context.Context) {
	src := c.source
	if src == nil {
		src = game.NewLocalSource(c.seed)
		c.seed++
	}
	c.game = game.New(game.Options{
		Source: src,
		Hooks:  c.hooks(),
		Log:    c.log.Named("game"),
	})
	c.startGame(ctx)
}

func (c *Console) newOnlineGame(ctx context.Context) {
	c.endGame(ctx)
	c.println("game starting, waiting for pieces")
	c.game = c.sess.NewGame(ctx, game.Options{Hooks: c.hooks()})
	c.startGame(ctx)
}

func (c *Console) startGame(ctx context.Context) {
	c.over = false
	if err := c.game.Start(ctx); err != nil {
		c.println("could not start game:", err)
		return
	}
	c.armTimer()
	c.render()
}

// after renders the board, or wraps up the game if it just ended.
func (c *Console) after(ctx context.Context) {
	if c.over {
		c.finish(ctx)
		return
	}
	c.render()
}

func (c *Console) finish(ctx context.Context) {
	c.over = false
	c.stopTimer()
	score := c.game.Score()
	RenderBoard(c.out, c.game.Grid())
	c.printf("game over: score %d, level %d\n", score, c.game.Level())

	name := c.playerName()
	if c.table != nil {
		if rank := c.table.Insert(name, score); rank >= 0 {
			c.printf("new local high score, rank %d\n", rank+1)
			if err := c.table.Save(); err != nil {
				c.log.Warn("save scores", zap.Error(err))
			}
		}
	}
	if c.sess == nil {
		c.println("type new to play again or quit to exit")
		return
	}
	if score > 0 {
		if err := c.sess.SubmitScore(ctx, name, score); err != nil {
			c.log.Warn("submit score", zap.Error(err))
		}
	}
}

// endGame ends an active game early, scoring it like any other.
func (c *Console) endGame(ctx context.Context) {
	if !c.playing() {
		return
	}
	c.game.End(ctx)
	if c.over {
		c.finish(ctx)
	}
}

func (c *Console) playerName() string {
	if c.sess != nil {
		if n := c.sess.Lobby().Nick(); n != "" {
			return n
		}
	}
	if c.nick != "" {
		return c.nick
	}
	return defaultNick
}

func (c *Console) render() {
	if !c.playing() {
		return
	}
	g := c.game
	RenderBoard(c.out, g.Grid())
	RenderPieces(c.out, g.Current(), g.Next())
	RenderStatus(c.out, g.Score(), g.Level(), g.Lives(), g.Multiplier())
}

func (c *Console) armTimer() {
	c.stopTimer()
	if c.playing() {
		c.timer = time.NewTimer(c.game.TimerDelay())
	}
}

func (c *Console) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Console) timerC() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.C
}

func (c *Console) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), closeWait)
	defer cancel()
	c.endGame(ctx)
	c.stopTimer()
	if c.sess != nil {
		if err := c.sess.Close(ctx); err != nil {
			c.log.Debug("close session", zap.Error(err))
		}
	}
}

func (c *Console) printLocalScores() {
	if c.table == nil {
		c.println("no local score file")
		return
	}
	RenderHighScores(c.out, c.table.Entries())
}

func (c *Console) println(a ...any) { fmt.Fprintln(c.out, a...) }

func (c *Console) printf(format string, a ...any) { fmt.Fprintf(c.out, format, a...) }
