package game

import (
	"context"

	"go.uber.org/zap"

	"gridfall/internal/grid"
	"gridfall/internal/protocol"
	"gridfall/internal/transport"
)

// Reporter publishes session events to other players. Implementations
// handle their own failures; a report never affects game state.
type Reporter interface {
	ReportLives(ctx context.Context, lives int)
	ReportScore(ctx context.Context, score int)
	ReportBoard(ctx context.Context, board grid.Snapshot)
	ReportDeath(ctx context.Context)
}

type nopReporter struct{}

func (nopReporter) ReportLives(context.Context, int)           {}
func (nopReporter) ReportScore(context.Context, int)           {}
func (nopReporter) ReportBoard(context.Context, grid.Snapshot) {}
func (nopReporter) ReportDeath(context.Context)                {}

// WireReporter sends LIVES, SCORE, BOARD and DIE frames.
type WireReporter struct {
	sender transport.Sender
	log    *zap.Logger
}

// NewWireReporter reports through sender.
func NewWireReporter(sender transport.Sender, log *zap.Logger) *WireReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &WireReporter{sender: sender, log: log}
}

func (r *WireReporter) ReportLives(ctx context.Context, lives int) {
	r.send(ctx, protocol.Lives{N: lives})
}

func (r *WireReporter) ReportScore(ctx context.Context, score int) {
	r.send(ctx, protocol.Score{N: score})
}

func (r *WireReporter) ReportBoard(ctx context.Context, board grid.Snapshot) {
	data, err := board.Encode()
	if err != nil {
		r.log.Warn("encode board", zap.Error(err))
		return
	}
	r.send(ctx, protocol.Board{Data: data})
}

func (r *WireReporter) ReportDeath(ctx context.Context) {
	r.send(ctx, protocol.Die{})
}

func (r *WireReporter) send(ctx context.Context, m protocol.Message) {
	if err := r.sender.Send(ctx, protocol.Encode(m)); err != nil {
		r.log.Warn("report failed", zap.String("kind", string(m.Kind())), zap.Error(err))
	}
}
