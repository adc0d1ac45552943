// Package netqueue buffers pieces delivered by the server ahead of the game
// loop's demand.
package netqueue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"gridfall/internal/piece"
	"gridfall/internal/protocol"
	"gridfall/internal/transport"
)

// ErrClosed is returned by Next once the queue is closed.
var ErrClosed = errors.New("piece queue closed")

// Policy decides what happens when a piece arrives at a full buffer.
type Policy int

const (
	// DropOldest discards the head of the buffer to make room.
	DropOldest Policy = iota
	// Reject discards the incoming piece.
	Reject
)

const (
	DefaultTarget   = 5
	DefaultCapacity = 64
)

// Config tunes the read-ahead.
type Config struct {
	Target   int // pieces to keep requested ahead of demand
	Capacity int // hard cap on buffered pieces
	Policy   Policy
}

func (c Config) withDefaults() Config {
	if c.Target <= 0 {
		c.Target = DefaultTarget
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Capacity < c.Target {
		c.Capacity = c.Target
	}
	return c
}

// Queue is a FIFO of pieces filled by the transport goroutine and drained by
// the game goroutine. OnPieceReceived never blocks; Next blocks while the
// buffer is empty.
type Queue struct {
	cfg    Config
	sender transport.Sender
	log    *zap.Logger

	mu      sync.Mutex
	buf     []piece.Piece
	dropped int

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a queue that requests pieces through sender.
func New(sender transport.Sender, cfg Config, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Queue{
		cfg:    cfg,
		sender: sender,
		log:    log,
		buf:    make([]piece.Piece, 0, cfg.Capacity),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// OnPieceReceived appends a delivered shape and wakes the consumer. Unknown
// shapes are logged and dropped.
func (q *Queue) OnPieceReceived(shape int) {
	p, err := piece.New(shape, 0)
	if err != nil {
		q.log.Warn("dropping piece", zap.Int("shape", shape), zap.Error(err))
		return
	}

	q.mu.Lock()
	if len(q.buf) >= q.cfg.Capacity {
		q.dropped++
		switch q.cfg.Policy {
		case Reject:
			q.mu.Unlock()
			q.log.Warn("piece buffer full, rejecting piece", zap.Int("shape", shape))
			return
		default:
			q.log.Warn("piece buffer full, dropping oldest", zap.Int("shape", q.buf[0].Shape()))
			q.buf = append(q.buf[:0], q.buf[1:]...)
		}
	}
	q.buf = append(q.buf, p)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Next requests enough pieces to refill the read-ahead, then returns the
// oldest buffered piece, waiting for one if necessary. It returns ErrClosed
// after Close and ctx.Err() if ctx ends first. Next must only be called from
// the game goroutine, never from the transport's handler.
func (q *Queue) Next(ctx context.Context) (piece.Piece, error) {
	if q.Closed() {
		return piece.Piece{}, ErrClosed
	}

	q.mu.Lock()
	deficit := q.cfg.Target - len(q.buf)
	q.mu.Unlock()

	request := protocol.Encode(protocol.PieceRequest{})
	for i := 0; i < deficit; i++ {
		if err := q.sender.Send(ctx, request); err != nil {
			q.log.Warn("piece request failed", zap.Int("sent", i), zap.Int("wanted", deficit), zap.Error(err))
			break
		}
	}

	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			p := q.buf[0]
			q.buf = append(q.buf[:0], q.buf[1:]...)
			q.mu.Unlock()
			return p, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-q.done:
			return piece.Piece{}, ErrClosed
		case <-ctx.Done():
			return piece.Piece{}, ctx.Err()
		}
	}
}

// Close wakes every waiter in Next with ErrClosed. It is idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Len returns the number of buffered pieces.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Dropped returns how many pieces overflow has discarded.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
