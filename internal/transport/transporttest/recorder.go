// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"strings"
	"sync"

	"gridfall/internal/transport"
)

// Recorder records sent frames and lets tests inject inbound frames.
type Recorder struct {
	mu      sync.Mutex
	frames  []string
	sent    chan struct{}
	inbound chan string
	done    chan struct{}
	once    sync.Once
	fail    error
}

// New returns a ready Recorder.
func New() *Recorder {
	return &Recorder{
		sent:    make(chan struct{}, 1),
		inbound: make(chan string, 64),
		done:    make(chan struct{}),
	}
}

// FailWith makes every later Send return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *Recorder) Send(ctx context.Context, frame string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return transport.ErrClosed
	default:
	}
	if r.fail != nil {
		return r.fail
	}
	r.frames = append(r.frames, frame)
	select {
	case r.sent <- struct{}{}:
	default:
	}
	return nil
}

// Run delivers injected frames to h until ctx is done or Close is called.
func (r *Recorder) Run(ctx context.Context, h transport.Handler) error {
	for {
		select {
		case f := <-r.inbound:
			h(f)
		case <-r.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Recorder) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Inject queues an inbound frame for Run.
func (r *Recorder) Inject(frame string) {
	r.inbound <- frame
}

// Frames returns a copy of every frame sent so far.
func (r *Recorder) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	copy(out, r.frames)
	return out
}

// Count returns how many sent frames equal frame.
func (r *Recorder) Count(frame string) int {
	n := 0
	for _, f := range r.Frames() {
		if f == frame {
			n++
		}
	}
	return n
}

// Last returns the most recent frame starting with kind, or "".
func (r *Recorder) Last(kind string) string {
	frames := r.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i] == kind || strings.HasPrefix(frames[i], kind+" ") {
			return frames[i]
		}
	}
	return ""
}

// Sent is signalled (coalesced) after each Send.
func (r *Recorder) Sent() <-chan struct{} { return r.sent }
