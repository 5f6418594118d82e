package game

// Successor advances pos past cand: the placed piece leaves the queue (or the
// hold slot), the next piece becomes current and hold is unavailable for one
// turn after a hold move. Missing queue entries are padded with NoPiece so the
// queue keeps its length.
func Successor(pos Position, cand Candidate) Position {
	next := cand.Result.Clone()
	queue := pos.Queue
	hold := pos.Hold

	if cand.Command.UseHold {
		if hold == NoPiece {
			// the placed piece came from the head of the queue
			queue = shift(queue)
		}
		hold = pos.Current
	}

	next.Current = NoPiece
	if len(queue) > 0 {
		next.Current = queue[0]
	}
	next.Queue = padQueue(shift(queue), len(pos.Queue))
	next.Hold = hold
	next.CanHold = !cand.Command.UseHold
	next.Over = cand.Facts.GameOver
	return next
}

func shift(queue []Piece) []Piece {
	if len(queue) == 0 {
		return nil
	}
	return queue[1:]
}
