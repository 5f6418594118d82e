package agent

import (
	"context"

	"obseris/searcher"
)

type evaluationAgent struct {
	beam    *searcher.Beam
	scoring Scoring
}

// NewEvaluationAgent returns a new agent for actual game play during evaluation.
func NewEvaluationAgent(beam *searcher.Beam, scoring Scoring) Agent {
	return evaluationAgent{beam: beam, scoring: scoring}
}

func (a evaluationAgent) FindMove(ctx context.Context, view View) (Choice, error) {
	return search(ctx, a.beam, a.scoring, view)
}
