package game

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

var ErrGameOver = errors.New("game is over")

// Tetris is the reference simulator for one side.
type Tetris struct {
	*StandardRules
	seed  uint64
	rng   *rand.Rand
	bag   *Bag
	pos   Position
	score int64
}

// NewTetris creates a simulator. A zero seed draws a random one.
func NewTetris(seed uint64) *Tetris {
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64) + 1
	}
	t := &Tetris{StandardRules: NewStandardRules(), seed: seed}
	t.rng = rand.New(rand.NewSource(seed))
	t.Reset()
	return t
}

func (t *Tetris) Seed() uint64 {
	return t.seed
}

func (t *Tetris) Reset() {
	t.bag = NewBag(t.rng)
	t.pos = NewPosition()
	t.score = 0
	for i := range t.pos.Queue {
		t.pos.Queue[i] = t.bag.Next()
	}
	t.advance()
}

// SetPosition replaces the live position, e.g. to replay a host snapshot.
func (t *Tetris) SetPosition(pos Position) {
	t.pos = pos.Clone()
	t.pos.Queue = padQueue(t.pos.Queue, QueueLength)
}

func (t *Tetris) Position() Position {
	return t.pos.Clone()
}

func (t *Tetris) Over() bool {
	return t.pos.Over
}

func (t *Tetris) Score() int64 {
	return t.score
}

func (t *Tetris) Moves() ([]Candidate, error) {
	if t.pos.Over {
		return nil, nil
	}
	// two extra pieces keep the successor queues free of padding
	view := t.pos.Clone()
	view.Queue = append(view.Queue, t.bag.Peek(2)...)

	moves, err := t.Enumerate(view, view.Current)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate current piece")
	}
	for i := range moves {
		moves[i].Result = t.truncate(Successor(view, moves[i]))
	}
	if !view.CanHold {
		return moves, nil
	}

	piece := view.Hold
	if piece == NoPiece {
		piece = view.Queue[0]
	}
	held, err := t.Enumerate(view, piece)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate hold piece")
	}
	for _, c := range held {
		c = c.WithHold()
		c.Result = t.truncate(Successor(view, c))
		moves = append(moves, c)
	}
	return moves, nil
}

func (t *Tetris) truncate(pos Position) Position {
	pos.Queue = pos.Queue[:QueueLength]
	return pos
}

func (t *Tetris) Execute(c Candidate) error {
	if t.pos.Over {
		return ErrGameOver
	}
	if c.Facts.GameOver {
		t.pos.Over = true
		return nil
	}

	t.pos.Board = c.Result.Board
	t.pos.Combo = c.Facts.Combo
	t.pos.B2B = c.Facts.B2B
	t.pos.PendingGarbage = c.Facts.PendingGarbage
	t.score += c.Facts.ScoreDelta

	if c.Command.UseHold {
		if t.pos.Hold == NoPiece {
			t.pos.Hold = t.pos.Current
			t.advance()
		} else {
			t.pos.Hold = t.pos.Current
		}
	}
	t.pos.CanHold = !c.Command.UseHold

	if t.pos.PendingGarbage > 0 && t.applyGarbage() {
		t.pos.Over = true
		return nil
	}
	t.advance()
	return nil
}

func (t *Tetris) AddGarbage(amount int) {
	if amount > 0 {
		t.pos.PendingGarbage += amount
	}
}

func (t *Tetris) advance() {
	t.pos.Current = t.pos.Queue[0]
	t.pos.Queue = append(t.pos.Queue[1:len(t.pos.Queue):len(t.pos.Queue)], t.bag.Next())
}

// applyGarbage raises up to MaxGarbagePerPlacement lines with a single hole
// and reports whether blocks were pushed off the top.
func (t *Tetris) applyGarbage() bool {
	lines := min(t.pos.PendingGarbage, MaxGarbagePerPlacement)
	t.pos.PendingGarbage -= lines

	b := &t.pos.Board
	for y := 0; y < lines; y++ {
		for x := 0; x < Width; x++ {
			if b[y][x] != 0 {
				return true
			}
		}
	}
	copy(b[:Height-lines], b[lines:])

	hole := t.rng.Intn(Width)
	for y := Height - lines; y < Height; y++ {
		for x := 0; x < Width; x++ {
			b[y][x] = 1
		}
		b[y][hole] = 0
	}
	return false
}
