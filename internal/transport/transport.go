package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Handler receives one inbound frame. It runs on the transport's read
// goroutine and must not block on the game loop.
type Handler func(frame string)

// Sender queues an outbound frame.
type Sender interface {
	Send(ctx context.Context, frame string) error
}

// Transport is a bidirectional text frame channel.
type Transport interface {
	Sender
	// Run reads frames into h until ctx is done, the peer goes away or Close
	// is called.
	Run(ctx context.Context, h Handler) error
	Close() error
}
