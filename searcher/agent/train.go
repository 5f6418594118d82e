package agent

import (
	"context"

	"obseris/searcher"

	"golang.org/x/exp/rand"
)

// TrainingAgent explores during self-play: with probability epsilon it plays
// a uniformly random candidate, otherwise it searches like the evaluation
// agent. It is not safe for concurrent use.
type TrainingAgent struct {
	beam    *searcher.Beam
	scoring Scoring
	rng     *rand.Rand
	epsilon float64
}

// NewTrainingAgent returns a new agent for self-play during training.
func NewTrainingAgent(beam *searcher.Beam, scoring Scoring, rng *rand.Rand) *TrainingAgent {
	return &TrainingAgent{beam: beam, scoring: scoring, rng: rng}
}

func (a *TrainingAgent) SetEpsilon(epsilon float64) {
	a.epsilon = epsilon
}

func (a *TrainingAgent) Epsilon() float64 {
	return a.epsilon
}

func (a *TrainingAgent) FindMove(ctx context.Context, view View) (Choice, error) {
	if len(view.Candidates) > 0 && a.rng.Float64() < a.epsilon {
		i := a.rng.Intn(len(view.Candidates))
		c := view.Candidates[i]
		return Choice{
			Index:    i,
			Decision: searcher.Decision{Command: c.Command, Facts: c.Facts},
			Explored: true,
		}, nil
	}
	return search(ctx, a.beam, a.scoring, view)
}
