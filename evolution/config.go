package evolution

import (
	"runtime"

	"obseris/engine"
	"obseris/model"
	"obseris/searcher"

	"github.com/pkg/errors"
)

// FailureFitness is assigned to individuals whose evaluation failed.
const FailureFitness = -999.0

type Config struct {
	Variant          string  `yaml:"variant"`
	PopulationSize   int     `yaml:"population_size"`
	EliteSize        int     `yaml:"elite_size"`
	TournamentSize   int     `yaml:"tournament_size"`
	MutationRate     float64 `yaml:"mutation_rate"`
	MutationStrength float64 `yaml:"mutation_strength"`
	CrossoverRate    float64 `yaml:"crossover_rate"`
	PoolCapacity     int     `yaml:"pool_capacity"`
	MilestoneEvery   int     `yaml:"milestone_every"`
	Generations      int     `yaml:"generations"`
	// StartGeneration numbers the first generation, for resumed runs.
	StartGeneration int    `yaml:"start_generation"`
	Workers         int    `yaml:"workers"`
	Seed            uint64 `yaml:"seed"`

	MaxSteps  int `yaml:"max_steps"`
	BeamWidth int `yaml:"beam_width"`
	Depth     int `yaml:"depth"`

	// Dir receives the opponent pool, milestones, best_latest.json and the
	// generation stats.
	Dir string `yaml:"dir"`
	// Resume seeds the population from this checkpoint when set.
	Resume string `yaml:"resume"`
	// Baseline is the opponent while the pool is empty. Without one the
	// surface heuristic plays instead.
	Baseline string `yaml:"baseline"`

	FailureFitness float64               `yaml:"failure_fitness"`
	Fitness        engine.FitnessWeights `yaml:"fitness"`
}

func DefaultConfig() Config {
	return Config{
		Variant:          model.V2.Name,
		PopulationSize:   100,
		EliteSize:        5,
		TournamentSize:   5,
		MutationRate:     0.05,
		MutationStrength: 0.1,
		CrossoverRate:    0.5,
		PoolCapacity:     20,
		MilestoneEvery:   100,
		Generations:      1000,
		Workers:          min(100, runtime.NumCPU()),
		MaxSteps:         engine.MaxSteps,
		BeamWidth:        searcher.BeamWidth,
		Depth:            searcher.Depth,
		Dir:              "runs/ga",
		FailureFitness:   FailureFitness,
		Fitness:          engine.DefaultFitness(),
	}
}

func (c Config) Validate() error {
	if _, err := model.VariantByName(c.Variant); err != nil {
		return err
	}
	switch {
	case c.PopulationSize < 2:
		return errors.Errorf("population size must be at least 2, got %d", c.PopulationSize)
	case c.EliteSize < 0 || c.EliteSize >= c.PopulationSize:
		return errors.Errorf("elite size must be in [0, %d), got %d", c.PopulationSize, c.EliteSize)
	case c.TournamentSize < 1:
		return errors.Errorf("tournament size must be positive, got %d", c.TournamentSize)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return errors.Errorf("mutation rate must be in [0, 1], got %v", c.MutationRate)
	case c.CrossoverRate < 0 || c.CrossoverRate > 1:
		return errors.Errorf("crossover rate must be in [0, 1], got %v", c.CrossoverRate)
	case c.MutationStrength < 0:
		return errors.Errorf("mutation strength must not be negative, got %v", c.MutationStrength)
	case c.PoolCapacity < 1:
		return errors.Errorf("pool capacity must be positive, got %d", c.PoolCapacity)
	case c.MilestoneEvery < 1:
		return errors.Errorf("milestone interval must be positive, got %d", c.MilestoneEvery)
	case c.Generations < 0 || c.StartGeneration < 0:
		return errors.New("generation counts must not be negative")
	case c.Workers < 1:
		return errors.Errorf("must use at least one worker, got %d", c.Workers)
	case c.MaxSteps < 1 || c.BeamWidth < 1 || c.Depth < 1:
		return errors.New("match and search limits must be positive")
	case c.Dir == "":
		return errors.New("run directory must be set")
	case c.FailureFitness >= c.Fitness.Loss-c.Fitness.ShapingLimit():
		return errors.Errorf("failure fitness %v must rank below any loss (%v)", c.FailureFitness, c.Fitness.Loss-c.Fitness.ShapingLimit())
	}
	return c.Fitness.Validate(c.MaxSteps)
}
