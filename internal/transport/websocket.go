package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
)

const (
	sendBufSize = 64
	writeWait   = 5 * time.Second
	flushWait   = time.Second
)

// Conn is a websocket Transport. Outbound frames go through a buffered
// channel drained by a writer goroutine started in Run.
type Conn struct {
	ws  *websocket.Conn
	log *zap.Logger

	send chan string
	done chan struct{}

	mu        sync.Mutex
	running   bool
	closing   bool // set by Close; Run refuses to start after it
	writerEnd chan struct{}
	closeOnce sync.Once
}

// Dial connects to a websocket endpoint such as ws://host:8080/ws.
func Dial(ctx context.Context, url string, log *zap.Logger) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(ws, log), nil
}

// Accept upgrades an HTTP request to a websocket Transport.
func Accept(w http.ResponseWriter, r *http.Request, log *zap.Logger) (*Conn, error) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	return newConn(ws, log), nil
}

func newConn(ws *websocket.Conn, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{
		ws:        ws,
		log:       log,
		send:      make(chan string, sendBufSize),
		done:      make(chan struct{}),
		writerEnd: make(chan struct{}),
	}
}

// Send queues frame for the writer goroutine.
func (c *Conn) Send(ctx context.Context, frame string) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues frame without waiting. It reports false when the
// connection is closed or its buffer is full, in which case the frame is
// dropped.
func (c *Conn) TrySend(frame string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("send buffer full, dropping frame")
		return false
	}
}

// Run starts the writer and reads frames into h until the connection ends.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.running {
		c.mu.Unlock()
		return errors.New("transport already running")
	}
	c.running = true
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(c.writerEnd)
		return c.writeLoop(ctx)
	})
	g.Go(func() error {
		return c.readLoop(ctx, h)
	})
	err := g.Wait()
	c.Close()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (c *Conn) readLoop(ctx context.Context, h Handler) error {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			select {
			case <-c.done:
				return ErrClosed
			default:
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return ErrClosed
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			c.log.Warn("dropping binary frame", zap.Int("bytes", len(data)))
			continue
		}
		h(string(data))
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(ctx, frame); err != nil {
				return err
			}
		case <-c.done:
			c.flush()
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush writes whatever was queued before Close, so a final leaving message
// reaches the peer.
func (c *Conn) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushWait)
	defer cancel()
	for {
		select {
		case frame := <-c.send:
			if err := c.write(ctx, frame); err != nil {
				c.log.Debug("flush", zap.Error(err))
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(ctx context.Context, frame string) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := c.ws.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close flushes queued frames and closes the connection. Exactly one party
// flushes: the writer if Run already started, Close itself otherwise. It is
// safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		running := c.running
		c.mu.Unlock()
		close(c.done)
		if running {
			select {
			case <-c.writerEnd:
			case <-time.After(flushWait + writeWait):
			}
		} else {
			c.flush()
		}
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	return err
}
