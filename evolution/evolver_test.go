package evolution

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"obseris/engine"
	"obseris/model"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func smallConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.Variant = model.V1.Name
	cfg.PopulationSize = 4
	cfg.EliteSize = 1
	cfg.TournamentSize = 2
	cfg.PoolCapacity = 1
	cfg.MilestoneEvery = 1
	cfg.Generations = 2
	cfg.Workers = 2
	cfg.Seed = 3
	cfg.MaxSteps = 15
	cfg.BeamWidth = 2
	cfg.Depth = 2
	cfg.Dir = dir
	return cfg
}

func TestConfig(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"elites fill the population":        func(c *Config) { c.EliteSize = c.PopulationSize },
		"negative mutation strength":        func(c *Config) { c.MutationStrength = -1 },
		"crossover rate above one":          func(c *Config) { c.CrossoverRate = 1.5 },
		"unknown variant":                   func(c *Config) { c.Variant = "v9" },
		"failure ranks above a loss":        func(c *Config) { c.FailureFitness = 0 },
		"failure ranks above a shaped loss": func(c *Config) { c.FailureFitness = -110 },
		"losing is rewarded":                func(c *Config) { c.Fitness.Loss = 10 },
		"no run directory":                  func(c *Config) { c.Dir = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestEvaluate(t *testing.T) {
	e, err := New(smallConfig(t.TempDir()))
	require.NoError(t, err)
	e.play = func(_ context.Context, tk task) (engine.Result, error) {
		switch tk.index {
		case 0:
			panic("worker crashed")
		case 1:
			return engine.Result{}, errors.New("match failed")
		}
		return engine.Result{Steps: 10 * tk.index, Outcomes: [2]engine.Outcome{engine.Win, engine.Loss}}, nil
	}

	pop := e.InitialPopulation()
	e.Evaluate(context.Background(), 0, pop)

	require.Equal(t, FailureFitness, pop[0].Fitness)
	require.True(t, pop[0].Failed)
	require.Equal(t, FailureFitness, pop[1].Fitness)
	require.InDelta(t, 100.2, pop[2].Fitness, 1e-9)
	require.InDelta(t, 100.3, pop[3].Fitness, 1e-9)
	require.False(t, pop[3].Failed)

	record := summarize(0, pop, FailureFitness)
	require.Equal(t, 2, record.Failures)
	require.InDelta(t, 100.25, record.Mean, 1e-9, "Failed individuals should not count toward the mean")
	require.InDelta(t, 100.3, record.Best, 1e-9)
	require.Equal(t, FailureFitness, record.Worst)

	t.Run("next generation keeps the elite and resets fitness", func(t *testing.T) {
		next := e.Next(pop)
		require.Len(t, next, len(pop))
		require.Equal(t, pop[3].Weights, next[0].Weights)
		for _, ind := range next {
			require.True(t, math.IsInf(ind.Fitness, -1))
		}
	})
}

func TestStep(t *testing.T) {
	t.Run("an abandoned generation is not persisted", func(t *testing.T) {
		dir := t.TempDir()
		e, err := New(smallConfig(dir))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err = e.Step(ctx, 7, e.InitialPopulation())
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, e.Pool().Len())
		require.NoFileExists(t, filepath.Join(dir, "best_latest.json"))
		require.NoFileExists(t, filepath.Join(dir, "opponent_pool", "opponent_gen_7.json"))
	})

	t.Run("a generation without a successful evaluation keeps the previous champion", func(t *testing.T) {
		dir := t.TempDir()
		e, err := New(smallConfig(dir))
		require.NoError(t, err)
		e.play = func(context.Context, task) (engine.Result, error) {
			return engine.Result{}, errors.New("host unavailable")
		}

		next, best, err := e.Step(context.Background(), 7, e.InitialPopulation())
		require.NoError(t, err)
		require.True(t, best.Failed)
		require.Len(t, next, 4)
		require.Zero(t, e.Pool().Len())
		require.NoFileExists(t, filepath.Join(dir, "best_latest.json"))
		require.FileExists(t, filepath.Join(dir, "generations.csv"))
	})
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	e, err := New(smallConfig(dir))
	require.NoError(t, err)

	best, err := e.Run(context.Background())
	require.NoError(t, err)
	require.False(t, math.IsInf(best.Fitness, -1))

	require.FileExists(t, filepath.Join(dir, "best_latest.json"))
	require.FileExists(t, filepath.Join(dir, "milestones", "milestone_gen_1.json"))
	require.FileExists(t, filepath.Join(dir, "milestones", "milestone_gen_2.json"))
	require.FileExists(t, filepath.Join(dir, "generations.csv"))
	require.NoFileExists(t, filepath.Join(dir, "opponent_pool", "opponent_gen_0.json"))
	require.FileExists(t, filepath.Join(dir, "opponent_pool", "opponent_gen_1.json"))

	t.Run("resumed run continues the numbering", func(t *testing.T) {
		cfg := smallConfig(dir)
		cfg.StartGeneration = 2
		cfg.Generations = 1
		cfg.Resume = filepath.Join(dir, "best_latest.json")
		resumed, err := New(cfg)
		require.NoError(t, err)

		pop := resumed.InitialPopulation()
		saved, err := model.LoadNetwork(cfg.Resume)
		require.NoError(t, err)
		require.Equal(t, saved.Weights(), pop[0].Weights)

		_, err = resumed.Run(context.Background())
		require.NoError(t, err)
		require.FileExists(t, filepath.Join(dir, "milestones", "milestone_gen_3.json"))
		require.Equal(t, 2, resumed.Pool().Handles()[0].Generation)
	})

	t.Run("cancelled context stops between generations", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}
