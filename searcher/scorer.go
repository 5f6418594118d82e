package searcher

import (
	"obseris/features"
	"obseris/game"

	"github.com/samber/lo"
)

// Evaluator is the part of a value model the search needs.
type Evaluator interface {
	EvaluateInputs(inputs []features.Input) ([]float64, error)
}

// ValueScorer scores positions with a value model, pairing each one with a
// fixed snapshot of the opponent.
type ValueScorer struct {
	Net      Evaluator
	Encoder  *features.Encoder
	Opponent *game.Position
}

func (s ValueScorer) Score(positions []game.Position) ([]float64, error) {
	return s.Net.EvaluateInputs(s.Encoder.EncodeBatch(positions, s.Opponent))
}

// ScoreFunc adapts a plain function to Scorer.
type ScoreFunc func(positions []game.Position) ([]float64, error)

func (f ScoreFunc) Score(positions []game.Position) ([]float64, error) {
	return f(positions)
}

// HeuristicScorer scores each position independently with evaluate.
func HeuristicScorer(evaluate game.Evaluate) Scorer {
	return ScoreFunc(func(positions []game.Position) ([]float64, error) {
		return lo.Map(positions, func(p game.Position, _ int) float64 { return evaluate(p) }), nil
	})
}
