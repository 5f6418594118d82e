package features

import (
	"sync/atomic"

	"obseris/game"

	"github.com/rs/zerolog/log"
)

// Input is the encoded form of one position.
type Input struct {
	Board    []float64
	Features []float64
}

// Flat concatenates the board tensor and the feature vector.
func (in Input) Flat() []float64 {
	flat := make([]float64, 0, len(in.Board)+len(in.Features))
	flat = append(flat, in.Board...)
	return append(flat, in.Features...)
}

// Encoder turns positions into model inputs. Encoding is a pure function of
// the positions; the only state is a counter of blob decode fallbacks.
type Encoder struct {
	layout    Layout
	fallbacks atomic.Int64
}

func NewEncoder(layout Layout) *Encoder {
	if layout.Channels != 1 && layout.Channels != 2 {
		panic("encoder needs one or two board channels")
	}
	return &Encoder{layout: layout}
}

func (e *Encoder) Layout() Layout {
	return e.layout
}

// Encode builds the model input for self, optionally with the opponent's
// position as context. A nil opponent leaves its segments at zero.
func (e *Encoder) Encode(self game.Position, opp *game.Position) Input {
	in := Input{
		Board:    make([]float64, e.layout.BoardSize()),
		Features: make([]float64, e.layout.FeatureSize()),
	}

	writeBoard(in.Board[:game.BoardCells], &self.Board)
	if e.layout.Channels == 2 && opp != nil {
		writeBoard(in.Board[game.BoardCells:], &opp.Board)
	}

	if !e.layout.Features {
		return in
	}
	writeQueue(in.Features[e.layout.SelfQueueOffset():], self.Upcoming(game.QueueLength))
	in.Features[e.layout.SelfGarbageOffset()] = float64(self.PendingGarbage)
	if opp != nil {
		writeQueue(in.Features[e.layout.OpponentQueueOffset():], opp.Upcoming(game.QueueLength))
		in.Features[e.layout.OpponentGarbageOffset()] = float64(opp.PendingGarbage)
	}
	if e.layout.Hold {
		writeOneHot(in.Features[e.layout.HoldOffset():], self.Hold)
	}
	return in
}

// EncodeBatch encodes every position against the same opponent context.
func (e *Encoder) EncodeBatch(positions []game.Position, opp *game.Position) []Input {
	inputs := make([]Input, len(positions))
	for i, pos := range positions {
		inputs[i] = e.Encode(pos, opp)
	}
	return inputs
}

// BoardOrZero decodes a packed board. A malformed blob is logged, counted and
// replaced by an empty board; ok reports whether the blob was valid.
func (e *Encoder) BoardOrZero(raw []byte) (board game.Board, ok bool) {
	board, err := game.DecodeBoard(raw)
	if err != nil {
		e.fallbacks.Add(1)
		log.Error().Err(err).Msg("substituting empty board for malformed blob")
		return game.Board{}, false
	}
	return board, true
}

// Decode rebuilds an input from packed boards and a stored feature vector.
// An empty opponent blob means no opponent channel.
func (e *Encoder) Decode(selfRaw, oppRaw []byte, feats []float64) (Input, bool) {
	ok := true
	in := Input{Board: make([]float64, e.layout.BoardSize())}

	self, valid := e.BoardOrZero(selfRaw)
	ok = ok && valid
	writeBoard(in.Board[:game.BoardCells], &self)

	if e.layout.Channels == 2 && len(oppRaw) > 0 {
		opp, valid := e.BoardOrZero(oppRaw)
		ok = ok && valid
		writeBoard(in.Board[game.BoardCells:], &opp)
	}

	if len(feats) != e.layout.FeatureSize() {
		e.fallbacks.Add(1)
		log.Error().Msgf("feature vector has %d elements, want %d", len(feats), e.layout.FeatureSize())
		in.Features = make([]float64, e.layout.FeatureSize())
		return in, false
	}
	in.Features = append([]float64(nil), feats...)
	return in, ok
}

// Fallbacks returns how many blobs were replaced by zeros so far.
func (e *Encoder) Fallbacks() int64 {
	return e.fallbacks.Load()
}

func writeBoard(dst []float64, b *game.Board) {
	for y := 0; y < game.Height; y++ {
		for x := 0; x < game.Width; x++ {
			if b[y][x] != 0 {
				dst[y*game.Width+x] = 1
			}
		}
	}
}

func writeQueue(dst []float64, queue []game.Piece) {
	for i, p := range queue {
		writeOneHot(dst[i*game.NumPieces:], p)
	}
}

func writeOneHot(dst []float64, p game.Piece) {
	if p.Valid() {
		dst[int(p)] = 1
	}
}
