package engine

import (
	"context"
	"time"

	"obseris/experiments/metrics"
	"obseris/game"
	"obseris/searcher/agent"
)

const MaxSteps = 3000

type Engine interface {
	// Run plays a match till one side is over or the step cap is reached
	Run(ctx context.Context) (Result, error)
}

type Outcome int

const (
	Loss Outcome = -1
	Draw Outcome = 0
	Win  Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "draw"
	}
}

// Side is one participant of a match.
type Side struct {
	Name      string
	Simulator game.Simulator
	Agent     agent.Agent
}

// Stats accumulates what one side did during a match.
type Stats struct {
	Pieces          int
	Attack          int
	Lines           int
	Spins           int
	Minis           int
	MaxCombo        int
	SoftDrops       int
	Holds           int
	GarbageReceived int
}

func (s *Stats) record(f game.Facts) {
	s.Pieces++
	s.Attack += f.Attack
	s.Lines += f.LinesCleared
	switch f.Spin {
	case game.SpinFull:
		s.Spins++
	case game.SpinMini:
		s.Minis++
	}
	s.MaxCombo = max(s.MaxCombo, f.Combo)
	if f.UsedSoftDrop {
		s.SoftDrops++
	}
	if f.UsedHold {
		s.Holds++
	}
}

// StepRecord describes one executed move.
type StepRecord struct {
	Step      int // 1-based
	Side      int
	Choice    agent.Choice
	Candidate game.Candidate
	Before    game.Position
	After     game.Position // simulator position after Execute
	Opponent  game.Position // opponent position after the attack was sent
	// GarbageReceived is the garbage the opponent sent since this side's
	// previous move.
	GarbageReceived int
	Over            bool
	OpponentOver    bool
}

type Result struct {
	Steps    int
	Outcomes [2]Outcome
	Stats    [2]Stats
	Capped   bool
	Duration time.Duration
	Game     metrics.GameMetric
	Moves    []metrics.MoveMetric
}

// Winner returns the index of the winning side, or -1 for a draw.
func (r Result) Winner() int {
	for i, o := range r.Outcomes {
		if o == Win {
			return i
		}
	}
	return -1
}

func outcomes(overA, overB bool) [2]Outcome {
	switch {
	case overA && !overB:
		return [2]Outcome{Loss, Win}
	case overB && !overA:
		return [2]Outcome{Win, Loss}
	default:
		return [2]Outcome{Draw, Draw}
	}
}
