package game

// Enumerator lists the landings reachable by a piece from a position.
//
// Candidates returned by Enumerate carry the post-placement board and
// counters in Result; the queue and hold slot are left as in pos and are
// advanced with Successor once the caller knows whether hold was used.
// Implementations must be safe for concurrent use.
type Enumerator interface {
	Enumerate(pos Position, piece Piece) ([]Candidate, error)
}

// Simulator owns one side's mutable position.
type Simulator interface {
	Enumerator
	// Reset starts a fresh game.
	Reset()
	// Moves returns the candidates for the current piece, followed by the
	// candidates for the hold piece when hold is available. Results are fully
	// advanced positions.
	Moves() ([]Candidate, error)
	// Execute commits a candidate previously returned by Moves.
	Execute(c Candidate) error
	// AddGarbage increments the pending garbage counter.
	AddGarbage(amount int)
	Position() Position
	Over() bool
}
