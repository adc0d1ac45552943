package game

import (
	"context"
	"errors"
	"math/rand/v2"

	"gridfall/internal/piece"
)

// ErrNoPieces is returned by a FixedSource built without pieces.
var ErrNoPieces = errors.New("no pieces to replay")

// PieceSource supplies the pieces a game plays. Next may block.
type PieceSource interface {
	Next(ctx context.Context) (piece.Piece, error)
}

// LocalSource draws catalog shapes from a seeded RNG. It never blocks.
type LocalSource struct {
	rng *rand.Rand
}

// NewLocalSource seeds a source; equal seeds give equal sequences.
func NewLocalSource(seed uint64) *LocalSource {
	return &LocalSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *LocalSource) Next(ctx context.Context) (piece.Piece, error) {
	if err := ctx.Err(); err != nil {
		return piece.Piece{}, err
	}
	return piece.New(s.rng.IntN(piece.Shapes()), 0)
}

// FixedSource replays a list of pieces, then repeats the last one. It is
// useful for puzzles and tests.
type FixedSource struct {
	pieces []piece.Piece
	i      int
}

// NewFixedSource returns a source over pieces.
func NewFixedSource(pieces ...piece.Piece) *FixedSource {
	return &FixedSource{pieces: pieces}
}

func (s *FixedSource) Next(ctx context.Context) (piece.Piece, error) {
	if err := ctx.Err(); err != nil {
		return piece.Piece{}, err
	}
	if len(s.pieces) == 0 {
		return piece.Piece{}, ErrNoPieces
	}
	p := s.pieces[min(s.i, len(s.pieces)-1)]
	s.i++
	return p, nil
}
