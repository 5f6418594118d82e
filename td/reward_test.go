package td

import (
	"math"
	"testing"

	"obseris/engine"
	"obseris/game"

	"github.com/stretchr/testify/require"
)

func TestReward(t *testing.T) {
	w := DefaultReward()
	record := func(f game.Facts, received int) engine.StepRecord {
		return engine.StepRecord{Side: learnerSide, Candidate: game.Candidate{Facts: f}, GarbageReceived: received}
	}

	t.Run("shaping combines attack, lines, combo, garbage and survival", func(t *testing.T) {
		rec := record(game.Facts{Attack: 2, LinesCleared: 2, Combo: 1}, 1)
		require.InDelta(t, 2+0.6+0.2-2+0.01, w.Reward(rec), 1e-9)
	})

	t.Run("combo counts only while running", func(t *testing.T) {
		require.InDelta(t, 0.01, w.Reward(record(game.Facts{Combo: -1}, 0)), 1e-9)
		require.InDelta(t, 0.01, w.Reward(record(game.Facts{Combo: 0}, 0)), 1e-9)
	})

	t.Run("game over overrides shaping and adds the loss", func(t *testing.T) {
		rec := record(game.Facts{GameOver: true, Attack: 4, LinesCleared: 4}, 3)
		require.Equal(t, -10.0, w.Shaping(rec))
		rec.Over = true
		require.Equal(t, -30.0, w.Reward(rec))
	})

	t.Run("eliminating the opponent adds the win bonus", func(t *testing.T) {
		rec := record(game.Facts{}, 0)
		rec.OpponentOver = true
		require.InDelta(t, 20.01, w.Reward(rec), 1e-9)
	})
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	t.Run("epsilon decays exponentially toward the floor", func(t *testing.T) {
		require.InDelta(t, 0.9, cfg.Epsilon(0), 1e-12)
		require.InDelta(t, 0.05+0.85/math.E, cfg.Epsilon(100000), 1e-12)
		require.Greater(t, cfg.Epsilon(10), cfg.Epsilon(20))
		require.InDelta(t, 0.05, cfg.Epsilon(1e8), 1e-9)
	})

	for name, mutate := range map[string]func(*Config){
		"gamma above one":              func(c *Config) { c.Gamma = 1.5 },
		"epsilon rising":               func(c *Config) { c.EpsilonEnd = 0.95 },
		"capacity below the batch":     func(c *Config) { c.Capacity = c.BatchSize - 1 },
		"unknown solver":               func(c *Config) { c.Solver = "rmsprop" },
		"target never synced":          func(c *Config) { c.TargetSync = 0 },
		"checkpoints never written":    func(c *Config) { c.CheckpointEvery = 0 },
		"unknown variant":              func(c *Config) { c.Variant = "v0" },
		"no run directory":             func(c *Config) { c.Dir = "" },
		"non-positive epsilon horizon": func(c *Config) { c.EpsilonDecay = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
