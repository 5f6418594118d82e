package features

import "obseris/game"

// Layout fixes the tensor shapes one model variant consumes.
type Layout struct {
	// Channels is 1 for the own board only, 2 to add the opponent board.
	Channels int
	// Features enables the queue and garbage vector.
	Features bool
	// Hold appends a one-hot of the held piece.
	Hold bool
}

const queueSegment = game.QueueLength * game.NumPieces

func (l Layout) BoardSize() int {
	return l.Channels * game.BoardCells
}

func (l Layout) FeatureSize() int {
	if !l.Features {
		return 0
	}
	size := 2*queueSegment + 2
	if l.Hold {
		size += game.NumPieces
	}
	return size
}

// Offsets of each segment in the feature vector.
func (l Layout) SelfQueueOffset() int       { return 0 }
func (l Layout) OpponentQueueOffset() int   { return queueSegment }
func (l Layout) SelfGarbageOffset() int     { return 2 * queueSegment }
func (l Layout) OpponentGarbageOffset() int { return 2*queueSegment + 1 }
func (l Layout) HoldOffset() int            { return 2*queueSegment + 2 }
