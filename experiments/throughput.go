package experiments

import (
	"context"
	"time"

	"obseris/experiments/metrics"
	"obseris/game"
	"obseris/searcher"
	"obseris/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Throughput times the same searches once per worker count. Positions are
// sampled from a game played greedily with the surface heuristic.
func (e Experiment) Throughput(ctx context.Context, scoring agent.Scoring, workers []int, searches, width, depth int) ([]metrics.ThroughputRecord, error) {
	if searches < 1 {
		return nil, errors.Errorf("need at least one search, got %d", searches)
	}
	positions, err := samplePositions(e.rng().Uint64(), searches)
	if err != nil {
		return nil, err
	}
	rules := game.NewStandardRules()
	scorer := scoring(nil)

	log.Info().Msgf("starting %s experiment over %d positions...", e.Name, len(positions))

	records := make([]metrics.ThroughputRecord, 0, len(workers))
	for _, w := range workers {
		beam := searcher.NewBeam(
			searcher.WithBeamWidth(width),
			searcher.WithDepth(depth),
			searcher.WithWorkers(w),
			searcher.WithMetrics(),
		)
		evaluations := 0
		start := time.Now()
		for i, pos := range positions {
			d, err := beam.Search(ctx, pos, rules, scorer)
			if err != nil {
				return nil, errors.Wrapf(err, "search %d with %d workers failed", i+1, w)
			}
			evaluations += d.Metric.Evaluations
		}
		elapsed := time.Since(start)
		record := metrics.ThroughputRecord{
			Workers:     w,
			Searches:    len(positions),
			Duration:    elapsed,
			PerSecond:   float64(len(positions)) / max(elapsed.Seconds(), 1e-9),
			Evaluations: evaluations,
		}
		records = append(records, record)
		log.Info().Msgf("%d workers: %.1f searches/s, %d evaluations", w, record.PerSecond, evaluations)
	}

	writer, err := e.writer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create experiment writer")
	}
	if err := writer.WriteThroughputRecords(records); err != nil {
		return nil, err
	}
	log.Info().Msgf("stored throughput records in %s", writer.Dir())
	return records, nil
}

// samplePositions plays greedy placements, restarting on game over, until
// n positions are collected.
func samplePositions(seed uint64, n int) ([]game.Position, error) {
	sim := game.NewTetris(seed)
	positions := make([]game.Position, 0, n)
	for len(positions) < n {
		moves, err := sim.Moves()
		if err != nil {
			return nil, errors.Wrap(err, "failed to sample positions")
		}
		if len(moves) == 0 {
			seed++
			sim = game.NewTetris(seed)
			continue
		}
		positions = append(positions, sim.Position())
		best := lo.MaxBy(moves, func(a, b game.Candidate) bool {
			return game.EvaluateSurface(a.Result) > game.EvaluateSurface(b.Result)
		})
		if err := sim.Execute(best); err != nil {
			return nil, errors.Wrap(err, "failed to sample positions")
		}
	}
	return positions, nil
}
