package td

import (
	"golang.org/x/exp/rand"
)

// Observation is a post-action state stored by value: packed boards and a
// copy of the feature vector.
type Observation struct {
	Board    []byte
	Opponent []byte // empty for single-channel variants
	Features []float64
}

// Experience is one transition between consecutive learner decisions. Next
// is unset when Terminal.
type Experience struct {
	State    Observation
	Reward   float64
	Next     Observation
	Terminal bool
}

// ReplayBuffer is a fixed-capacity ring of experiences. It is not safe for
// concurrent use.
type ReplayBuffer struct {
	items []Experience
	next  int
	full  bool
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity < 1 {
		panic("replay buffer needs a positive capacity")
	}
	return &ReplayBuffer{items: make([]Experience, 0, capacity)}
}

// Push appends e, overwriting the oldest experience once the buffer is full.
func (b *ReplayBuffer) Push(e Experience) {
	if !b.full {
		b.items = append(b.items, e)
		if len(b.items) == cap(b.items) {
			b.full = true
		}
		return
	}
	b.items[b.next] = e
	b.next = (b.next + 1) % len(b.items)
}

func (b *ReplayBuffer) Len() int {
	return len(b.items)
}

func (b *ReplayBuffer) Cap() int {
	return cap(b.items)
}

// Sample draws min(n, Len()) distinct experiences uniformly at random. The
// cost grows with n only, not with the buffer length.
func (b *ReplayBuffer) Sample(rng *rand.Rand, n int) []Experience {
	size := len(b.items)
	n = min(n, size)
	chosen := make(map[int]bool, n)
	batch := make([]Experience, 0, n)
	for j := size - n; j < size; j++ {
		i := rng.Intn(j + 1)
		if chosen[i] {
			i = j
		}
		chosen[i] = true
		batch = append(batch, b.items[i])
	}
	return batch
}

// Items returns the stored experiences, oldest first.
func (b *ReplayBuffer) Items() []Experience {
	items := make([]Experience, 0, len(b.items))
	items = append(items, b.items[b.next:]...)
	return append(items, b.items[:b.next]...)
}
