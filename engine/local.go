package engine

import (
	"context"
	"time"

	"obseris/experiments/metrics"
	"obseris/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Option func(m *Match)

// Match runs two sides against each other on local simulators. Each step
// lets side A and then side B place one piece; attack is sent as garbage to
// the other side.
type Match struct {
	sides    [2]Side
	maxSteps int
	observer func(StepRecord)
	reset    bool

	out      [2]bool // sides that ran out of candidates
	received [2]int  // garbage received since the side's last move
}

func WithMaxSteps(steps int) Option {
	return func(m *Match) {
		m.maxSteps = steps
	}
}

// WithObserver calls observe after every executed move.
func WithObserver(observe func(StepRecord)) Option {
	return func(m *Match) {
		m.observer = observe
	}
}

// WithoutReset plays from the simulators' current positions.
func WithoutReset() Option {
	return func(m *Match) {
		m.reset = false
	}
}

func LocalEngine(a, b Side, options ...Option) *Match {
	if a.Simulator == nil || b.Simulator == nil {
		panic("both sides need a simulator")
	}
	if a.Agent == nil || b.Agent == nil {
		panic("both sides need an agent")
	}
	m := &Match{
		sides:    [2]Side{a, b},
		maxSteps: MaxSteps,
		reset:    true,
	}
	for _, option := range options {
		option(m)
	}
	if m.maxSteps < 1 {
		panic("Must allow at least one step")
	}
	return m
}

func (m *Match) over(side int) bool {
	return m.out[side] || m.sides[side].Simulator.Over()
}

// Run plays the match. Simulator and agent errors end the match early and
// are returned together with the partial result.
func (m *Match) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	if m.reset {
		for _, s := range m.sides {
			s.Simulator.Reset()
		}
	}
	m.out = [2]bool{}
	m.received = [2]int{}

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return m.finish(res, start), errors.Wrapf(err, "match interrupted at step %d", res.Steps)
		}
		for side := range m.sides {
			if m.over(side) {
				continue
			}
			if err := m.turn(ctx, side, &res); err != nil {
				return m.finish(res, start), errors.Wrapf(err, "%s failed at step %d", m.sides[side].Name, res.Steps+1)
			}
		}
		res.Steps++
		if m.over(0) || m.over(1) || res.Steps >= m.maxSteps {
			break
		}
	}
	res = m.finish(res, start)
	log.Debug().Msgf("%s vs %s: %s/%s after %d steps", m.sides[0].Name, m.sides[1].Name,
		res.Outcomes[0], res.Outcomes[1], res.Steps)
	return res, nil
}

func (m *Match) turn(ctx context.Context, side int, res *Result) error {
	self, opp := m.sides[side], m.sides[1-side]
	moves, err := self.Simulator.Moves()
	if err != nil {
		return errors.Wrap(err, "failed to list moves")
	}
	if len(moves) == 0 {
		m.out[side] = true
		return nil
	}

	before := self.Simulator.Position()
	oppPos := opp.Simulator.Position()
	choice, err := self.Agent.FindMove(ctx, agent.View{
		Self:       before,
		Opponent:   &oppPos,
		Candidates: moves,
		Enumerator: self.Simulator,
	})
	if err != nil {
		return errors.Wrap(err, "failed to find move")
	}
	if choice.Index < 0 {
		m.out[side] = true
		return nil
	}
	if choice.Index >= len(moves) {
		return errors.Errorf("agent chose candidate %d of %d", choice.Index, len(moves))
	}

	cand := moves[choice.Index]
	if err := self.Simulator.Execute(cand); err != nil {
		return errors.Wrapf(err, "failed to execute %s", cand.Command)
	}
	if cand.Facts.Attack > 0 {
		opp.Simulator.AddGarbage(cand.Facts.Attack)
		m.received[1-side] += cand.Facts.Attack
		res.Stats[1-side].GarbageReceived += cand.Facts.Attack
	}
	res.Stats[side].record(cand.Facts)
	res.Moves = append(res.Moves, metrics.MoveMetric{Step: res.Steps + 1, Side: side, SearchMetric: choice.Decision.Metric})

	received := m.received[side]
	m.received[side] = 0
	if m.observer != nil {
		m.observer(StepRecord{
			Step:            res.Steps + 1,
			Side:            side,
			Choice:          choice,
			Candidate:       cand,
			Before:          before,
			After:           self.Simulator.Position(),
			Opponent:        opp.Simulator.Position(),
			GarbageReceived: received,
			Over:            m.over(side),
			OpponentOver:    m.over(1 - side),
		})
	}
	return nil
}

func (m *Match) finish(res Result, start time.Time) Result {
	overA, overB := m.over(0), m.over(1)
	res.Outcomes = outcomes(overA, overB)
	res.Capped = !overA && !overB && res.Steps >= m.maxSteps
	res.Duration = time.Since(start)
	res.Game = metrics.GameMetric{
		Winner:    res.Winner(),
		StartTime: start,
		EndTime:   time.Now(),
		Duration:  res.Duration,
		Steps:     res.Steps,
		Capped:    res.Capped,
	}
	return res
}
