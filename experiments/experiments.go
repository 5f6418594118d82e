package experiments

import (
	"context"
	"fmt"
	"math"
	"slices"

	"obseris/engine"
	"obseris/experiments/metrics"
	"obseris/game"
	"obseris/meta"
	"obseris/model"
	"obseris/searcher"
	"obseris/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

// Experiment plays or benchmarks agents and stores the results as CSV.
type Experiment struct {
	Name string
	// Dir replaces the default experiments/<name>/<timestamp> output.
	Dir      string
	Games    int    // per pairing
	MaxSteps int    // 0 uses engine.MaxSteps
	Seed     uint64 // 0 draws a random seed
}

func (e Experiment) writer() (*metrics.Writer, error) {
	if e.Dir != "" {
		return metrics.NewWriter(e.Dir)
	}
	return metrics.NewExperimentWriter(e.Name)
}

func (e Experiment) rng() *rand.Rand {
	seed := e.Seed
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64) + 1
	}
	return rand.New(rand.NewSource(seed))
}

// Scoring resolves an entrant: a heuristic name or a checkpoint path.
func Scoring(name string) (agent.Scoring, error) {
	switch name {
	case meta.SurfaceHeuristic:
		return agent.HeuristicScoring(game.EvaluateSurface), nil
	case meta.AggressiveHeuristic:
		return agent.HeuristicScoring(game.EvaluateAggressive), nil
	}
	net, err := model.LoadNetwork(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load entrant %s", name)
	}
	return agent.ValueScoring(net, net.Variant().Encoder()), nil
}

// Entrants numbers names from 1 with a shared search setup.
func Entrants(names []string, workers, width, depth int) []metrics.AgentConfig {
	configs := make([]metrics.AgentConfig, len(names))
	for i, name := range names {
		configs[i] = metrics.AgentConfig{ID: i + 1, Name: name, Workers: workers, BeamWidth: width, Depth: depth}
	}
	return configs
}

// Standing is one entrant's record over an arena.
type Standing struct {
	Agent  metrics.AgentConfig
	Wins   int
	Draws  int
	Losses int
}

func (s Standing) Points() float64 {
	return float64(s.Wins) + 0.5*float64(s.Draws)
}

// Arena plays every pair of configs Games times. Sides alternate between
// games and both sides of a game draw pieces from the same seed.
func (e Experiment) Arena(ctx context.Context, configs []metrics.AgentConfig) ([]Standing, error) {
	if len(configs) < 2 {
		return nil, errors.Errorf("arena needs at least two entrants, got %d", len(configs))
	}
	if e.Games < 1 {
		return nil, errors.Errorf("arena needs at least one game per pairing, got %d", e.Games)
	}
	agents := make(map[int]agent.Agent, len(configs))
	standings := make(map[int]*Standing, len(configs))
	for _, config := range configs {
		a, err := newAgent(config)
		if err != nil {
			return nil, err
		}
		agents[config.ID] = a
		standings[config.ID] = &Standing{Agent: config}
	}

	rng := e.rng()
	matchUps := matchUps(configs)
	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}

	log.Info().Msgf("starting %s arena with %d entrants...", e.Name, len(configs))

	for mi, matchup := range matchUps {
		log.Info().Msgf("starting matchup %d of %d between %s and %s...", mi+1, len(matchUps), matchup[0].Name, matchup[1].Name)

		for i := 0; i < e.Games; i++ {
			config1, config2 := matchup[0], matchup[1]
			if i%2 == 1 {
				config1, config2 = config2, config1
			}
			res, err := e.runGame(ctx, agents, config1, config2, rng.Uint64())
			if err != nil {
				return nil, errors.Wrapf(err, "matchup %d game %d failed", mi+1, i+1)
			}
			count++
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent1:     config1.ID,
				Agent2:     config2.ID,
				GameMetric: res.Game,
			})
			for _, mm := range res.Moves {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					MoveMetric: mm,
				})
			}
			tally(standings[config1.ID], res.Outcomes[0])
			tally(standings[config2.ID], res.Outcomes[1])

			log.Info().Msgf("completed matchup %d of %d game %d with winner: %s", mi+1, len(matchUps), i+1,
				winnerName(res, config1, config2))
		}
	}

	writer, err := e.writer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create experiment writer")
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return nil, err
	}
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return nil, err
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return nil, err
	}
	log.Info().Msgf("stored %d games in %s", len(gameRecords), writer.Dir())

	table := make([]Standing, 0, len(configs))
	for _, config := range configs {
		table = append(table, *standings[config.ID])
	}
	slices.SortStableFunc(table, func(a, b Standing) int {
		switch {
		case a.Points() > b.Points():
			return -1
		case a.Points() < b.Points():
			return 1
		}
		return 0
	})
	for rank, s := range table {
		log.Info().Msgf("%d. %s: %d wins, %d draws, %d losses", rank+1, s.Agent.Name, s.Wins, s.Draws, s.Losses)
	}
	return table, nil
}

// matchUps pairs every config with every later one.
func matchUps(configs []metrics.AgentConfig) [][2]metrics.AgentConfig {
	var pairs [][2]metrics.AgentConfig
	for i := range configs {
		for j := i + 1; j < len(configs); j++ {
			pairs = append(pairs, [2]metrics.AgentConfig{configs[i], configs[j]})
		}
	}
	return pairs
}

func newAgent(config metrics.AgentConfig) (agent.Agent, error) {
	scoring, err := Scoring(config.Name)
	if err != nil {
		return nil, err
	}
	beam := searcher.NewBeam(
		searcher.WithBeamWidth(config.BeamWidth),
		searcher.WithDepth(config.Depth),
		searcher.WithWorkers(config.Workers),
		searcher.WithMetrics(),
	)
	return agent.NewEvaluationAgent(beam, scoring), nil
}

// runGame executes a single game between two entrants.
func (e Experiment) runGame(ctx context.Context, agents map[int]agent.Agent, config1, config2 metrics.AgentConfig, seed uint64) (engine.Result, error) {
	steps := e.MaxSteps
	if steps < 1 {
		steps = engine.MaxSteps
	}
	m := engine.LocalEngine(
		engine.Side{Name: config1.Name, Simulator: game.NewTetris(seed), Agent: agents[config1.ID]},
		engine.Side{Name: config2.Name, Simulator: game.NewTetris(seed), Agent: agents[config2.ID]},
		engine.WithMaxSteps(steps),
	)
	return m.Run(ctx)
}

func tally(s *Standing, o engine.Outcome) {
	switch o {
	case engine.Win:
		s.Wins++
	case engine.Loss:
		s.Losses++
	default:
		s.Draws++
	}
}

func winnerName(res engine.Result, config1, config2 metrics.AgentConfig) string {
	switch res.Winner() {
	case 0:
		return config1.Name
	case 1:
		return config2.Name
	}
	return fmt.Sprintf("none (draw after %d steps)", res.Steps)
}
