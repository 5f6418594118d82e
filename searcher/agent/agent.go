package agent

import (
	"context"

	"obseris/features"
	"obseris/game"
	"obseris/searcher"

	"github.com/rs/zerolog/log"
)

// View is what an agent sees when it is asked to move.
type View struct {
	Self       game.Position
	Opponent   *game.Position // nil when unknown
	Candidates []game.Candidate
	Enumerator game.Enumerator
}

// Choice identifies the candidate to execute. Index is -1 when there was
// nothing to choose from.
type Choice struct {
	Index    int
	Decision searcher.Decision
	Explored bool
}

type Agent interface {
	// FindMove picks one of view.Candidates
	FindMove(ctx context.Context, view View) (Choice, error)
}

// Scoring builds the scorer for one decision from the opponent snapshot.
type Scoring func(opponent *game.Position) searcher.Scorer

// ValueScoring scores positions with a value model.
func ValueScoring(net searcher.Evaluator, enc *features.Encoder) Scoring {
	return func(opponent *game.Position) searcher.Scorer {
		return searcher.ValueScorer{Net: net, Encoder: enc, Opponent: opponent}
	}
}

// HeuristicScoring ignores the opponent and scores with evaluate.
func HeuristicScoring(evaluate game.Evaluate) Scoring {
	scorer := searcher.HeuristicScorer(evaluate)
	return func(*game.Position) searcher.Scorer {
		return scorer
	}
}

// search runs the beam and maps its decision onto a candidate. A decision
// that matches no candidate is replaced by the first one so that the game
// always receives a legal move.
func search(ctx context.Context, beam *searcher.Beam, scoring Scoring, view View) (Choice, error) {
	if len(view.Candidates) == 0 {
		return Choice{Index: -1}, nil
	}
	d, err := beam.Search(ctx, view.Self, view.Enumerator, scoring(view.Opponent))
	if err != nil {
		return Choice{}, err
	}
	for i, c := range view.Candidates {
		if c.Command.Equal(d.Command) {
			return Choice{Index: i, Decision: d}, nil
		}
	}
	if !d.Fallback {
		log.Warn().Msgf("decision %s matches no candidate, forcing the first one", d.Command)
	}
	return Choice{Index: 0, Decision: d}, nil
}
