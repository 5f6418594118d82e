package td

import (
	"math"

	"obseris/engine"
	"obseris/model"
	"obseris/searcher"

	"github.com/pkg/errors"
)

type Config struct {
	Variant string  `yaml:"variant"`
	Gamma   float64 `yaml:"gamma"`

	EpsilonStart float64 `yaml:"epsilon_start"`
	EpsilonEnd   float64 `yaml:"epsilon_end"`
	// EpsilonDecay is the number of learner steps over which epsilon decays
	// by a factor of e.
	EpsilonDecay float64 `yaml:"epsilon_decay"`

	// TargetSync is the number of optimizer steps between hard copies of the
	// online network into the target network.
	TargetSync  int `yaml:"target_sync"`
	Capacity    int `yaml:"capacity"`
	BatchSize   int `yaml:"batch_size"`
	WarmupSteps int `yaml:"warmup_steps"`

	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum"`
	HuberDelta   float64 `yaml:"huber_delta"`
	Solver       string  `yaml:"solver"`

	Episodes        int `yaml:"episodes"`
	StartEpisode    int `yaml:"start_episode"`
	CheckpointEvery int `yaml:"checkpoint_every"`

	MaxSteps  int    `yaml:"max_steps"`
	BeamWidth int    `yaml:"beam_width"`
	Depth     int    `yaml:"depth"`
	Workers   int    `yaml:"workers"`
	Seed      uint64 `yaml:"seed"`

	Dir    string        `yaml:"dir"`
	Resume string        `yaml:"resume"`
	Reward RewardWeights `yaml:"reward"`
}

func DefaultConfig() Config {
	return Config{
		Variant:         model.V2.Name,
		Gamma:           0.99,
		EpsilonStart:    0.9,
		EpsilonEnd:      0.05,
		EpsilonDecay:    100000,
		TargetSync:      20000,
		Capacity:        200000,
		BatchSize:       128,
		WarmupSteps:     5000,
		LearningRate:    1e-4,
		Momentum:        0.9,
		HuberDelta:      1.0,
		Solver:          "adam",
		Episodes:        100000,
		CheckpointEvery: 100,
		MaxSteps:        engine.MaxSteps,
		BeamWidth:       searcher.BeamWidth,
		Depth:           searcher.Depth,
		Workers:         1,
		Dir:             "runs/td",
		Reward:          DefaultReward(),
	}
}

func (c Config) Validate() error {
	if _, err := model.VariantByName(c.Variant); err != nil {
		return err
	}
	switch {
	case c.Gamma < 0 || c.Gamma > 1:
		return errors.Errorf("gamma must be in [0, 1], got %v", c.Gamma)
	case c.EpsilonStart < 0 || c.EpsilonStart > 1 || c.EpsilonEnd < 0 || c.EpsilonEnd > c.EpsilonStart:
		return errors.Errorf("epsilon must decay within [0, 1], got %v to %v", c.EpsilonStart, c.EpsilonEnd)
	case c.EpsilonDecay <= 0:
		return errors.Errorf("epsilon decay must be positive, got %v", c.EpsilonDecay)
	case c.TargetSync < 1:
		return errors.Errorf("target sync interval must be positive, got %d", c.TargetSync)
	case c.BatchSize < 1 || c.Capacity < c.BatchSize:
		return errors.Errorf("replay capacity %d must hold a batch of %d", c.Capacity, c.BatchSize)
	case c.WarmupSteps < 0:
		return errors.Errorf("warmup must not be negative, got %d", c.WarmupSteps)
	case c.LearningRate <= 0:
		return errors.Errorf("learning rate must be positive, got %v", c.LearningRate)
	case c.Solver != "adam" && c.Solver != "sgd":
		return errors.Errorf("unknown solver %q", c.Solver)
	case c.Episodes < 0 || c.StartEpisode < 0:
		return errors.New("episode counts must not be negative")
	case c.CheckpointEvery < 1:
		return errors.Errorf("checkpoint interval must be positive, got %d", c.CheckpointEvery)
	case c.MaxSteps < 1 || c.BeamWidth < 1 || c.Depth < 1 || c.Workers < 1:
		return errors.New("match and search limits must be positive")
	case c.Dir == "":
		return errors.New("run directory must be set")
	}
	return nil
}

// Epsilon returns the exploration rate after steps learner moves.
func (c Config) Epsilon(steps int) float64 {
	return c.EpsilonEnd + (c.EpsilonStart-c.EpsilonEnd)*math.Exp(-float64(steps)/c.EpsilonDecay)
}
