package searcher

import (
	"obseris/experiments/metrics"
	"obseris/game"
)

// Defaults for the beam search
const (
	BeamWidth = 5
	Depth     = 3
)

// Scorer rates positions in one batch; higher is better for the side that
// produced them.
type Scorer interface {
	Score(positions []game.Position) ([]float64, error)
}

// Decision is the outcome of one search: the first-ply move leading to the
// best leaf.
type Decision struct {
	Command  game.Command
	Facts    game.Facts
	Score    float64
	Plies    int
	Fallback bool // no candidate survived; Command is a plain hard drop
	Metric   metrics.SearchMetric
}

func fallbackDecision(plies int) Decision {
	return Decision{Command: game.FallbackCommand(), Plies: plies, Fallback: true}
}
