package game

import "golang.org/x/exp/rand"

// Bag is a 7-bag randomizer. It keeps at least one full bag buffered so that
// Peek can look past the visible queue.
type Bag struct {
	rng     *rand.Rand
	pending []Piece
}

func NewBag(rng *rand.Rand) *Bag {
	b := &Bag{rng: rng}
	b.fill()
	b.fill()
	return b
}

func (b *Bag) fill() {
	pieces := AllPieces
	b.rng.Shuffle(len(pieces), func(i, j int) {
		pieces[i], pieces[j] = pieces[j], pieces[i]
	})
	b.pending = append(b.pending, pieces[:]...)
}

func (b *Bag) Next() Piece {
	if len(b.pending) <= NumPieces {
		b.fill()
	}
	p := b.pending[0]
	b.pending = b.pending[1:]
	return p
}

// Peek returns up to n buffered pieces without consuming them.
func (b *Bag) Peek(n int) []Piece {
	if n > len(b.pending) {
		n = len(b.pending)
	}
	return append([]Piece(nil), b.pending[:n]...)
}
