package td

import "obseris/engine"

// RewardWeights shapes the immediate reward of one learner move.
type RewardWeights struct {
	Attack          float64 `yaml:"attack"`
	Lines           float64 `yaml:"lines"`
	Combo           float64 `yaml:"combo"`
	GarbageReceived float64 `yaml:"garbage_received"`
	Survival        float64 `yaml:"survival"`
	// GameOver replaces every shaping term on a move that tops out.
	GameOver float64 `yaml:"game_over"`
	Win      float64 `yaml:"win"`
	Loss     float64 `yaml:"loss"`
}

func DefaultReward() RewardWeights {
	return RewardWeights{
		Attack:          1.0,
		Lines:           0.3,
		Combo:           0.2,
		GarbageReceived: 2.0,
		Survival:        0.01,
		GameOver:        -10,
		Win:             20,
		Loss:            -20,
	}
}

// Shaping scores the move itself given the garbage received before it.
func (w RewardWeights) Shaping(rec engine.StepRecord) float64 {
	f := rec.Candidate.Facts
	if f.GameOver {
		return w.GameOver
	}
	r := float64(f.Attack)*w.Attack + float64(f.LinesCleared)*w.Lines
	if f.Combo > 0 {
		r += float64(f.Combo) * w.Combo
	}
	r -= float64(rec.GarbageReceived) * w.GarbageReceived
	return r + w.Survival
}

// Reward adds the match-deciding terms to the shaping reward.
func (w RewardWeights) Reward(rec engine.StepRecord) float64 {
	r := w.Shaping(rec)
	switch {
	case rec.Over:
		r += w.Loss
	case rec.OpponentOver:
		r += w.Win
	}
	return r
}
