package td

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"obseris/engine"
	"obseris/experiments/metrics"
	"obseris/features"
	"obseris/game"
	"obseris/model"
	"obseris/searcher"
	"obseris/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

// learnerSide answers the opponent's move in every step.
const learnerSide = 1

// Trainer learns a value model by bootstrapping from a periodically synced
// target network while playing against a frozen copy of that target.
type Trainer struct {
	cfg     Config
	variant model.Variant
	enc     *features.Encoder
	rng     *rand.Rand

	online   *model.Network
	target   *model.Network
	opponent *model.Network
	learner  *agent.TrainingAgent
	rival    agent.Agent

	buffer  *ReplayBuffer
	writer  *metrics.Writer
	records []metrics.EpisodeRecord

	steps         int // learner moves over all episodes
	optimizations int
}

func NewTrainer(cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid training config")
	}
	variant, _ := model.VariantByName(cfg.Variant)
	seed := cfg.Seed
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64) + 1
	}
	writer, err := metrics.NewWriter(cfg.Dir)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	enc := variant.Encoder()
	online := model.LoadOrFresh(cfg.Resume, variant, rng)
	t := &Trainer{
		cfg:      cfg,
		variant:  variant,
		enc:      enc,
		rng:      rng,
		online:   online,
		target:   online.Clone(),
		opponent: online.Clone(),
		buffer:   NewReplayBuffer(cfg.Capacity),
		writer:   writer,
	}
	t.learner = agent.NewTrainingAgent(t.newBeam(), agent.ValueScoring(online, enc), rng)
	t.rival = agent.NewEvaluationAgent(t.newBeam(), agent.ValueScoring(t.opponent, enc))
	log.Info().Msgf("td seed %d, %s model, replay capacity %d", seed, variant.Name, cfg.Capacity)
	return t, nil
}

func (t *Trainer) newBeam() *searcher.Beam {
	return searcher.NewBeam(
		searcher.WithBeamWidth(t.cfg.BeamWidth),
		searcher.WithDepth(t.cfg.Depth),
		searcher.WithWorkers(t.cfg.Workers),
	)
}

func (t *Trainer) Online() *model.Network { return t.online }
func (t *Trainer) Target() *model.Network { return t.target }
func (t *Trainer) Buffer() *ReplayBuffer  { return t.buffer }
func (t *Trainer) Steps() int             { return t.steps }
func (t *Trainer) Optimizations() int     { return t.optimizations }

// Run plays the configured episodes. A failed episode is logged and skipped;
// only cancellation and checkpoint failures stop the run.
func (t *Trainer) Run(ctx context.Context) error {
	for i := 0; i < t.cfg.Episodes; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "training interrupted")
		}
		n := t.cfg.StartEpisode + i
		record, err := t.Episode(ctx, n)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return errors.Wrap(ctxErr, "training interrupted")
			}
			log.Error().Err(err).Int("episode", n).Msg("skipping episode")
			continue
		}
		t.records = append(t.records, record)

		if (n+1)%t.cfg.CheckpointEvery == 0 {
			if err := t.checkpoint(fmt.Sprintf("td_ep_%d.json", n+1), n+1); err != nil {
				return err
			}
			if err := t.writer.WriteEpisodeRecords(t.records); err != nil {
				return err
			}
		}
	}
	if err := t.writer.WriteEpisodeRecords(t.records); err != nil {
		return err
	}
	return t.checkpoint("td_latest.json", t.cfg.StartEpisode+t.cfg.Episodes)
}

func (t *Trainer) checkpoint(name string, episode int) error {
	path := filepath.Join(t.cfg.Dir, name)
	if err := model.SaveNetwork(path, t.online, episode); err != nil {
		return err
	}
	log.Info().Msgf("saved %s", path)
	return nil
}

// Episode plays one match of the learner against the current target and
// learns from every learner move.
func (t *Trainer) Episode(ctx context.Context, n int) (metrics.EpisodeRecord, error) {
	start := time.Now()
	epsilon := t.cfg.Epsilon(t.steps)
	t.learner.SetEpsilon(epsilon)
	if err := t.opponent.CopyFrom(t.target); err != nil {
		return metrics.EpisodeRecord{}, err
	}

	ep := &episode{t: t, logger: log.With().Int("episode", n).Logger()}
	m := engine.LocalEngine(
		engine.Side{Name: "opponent", Simulator: game.NewTetris(t.rng.Uint64()), Agent: t.rival},
		engine.Side{Name: "learner", Simulator: game.NewTetris(t.rng.Uint64()), Agent: t.learner},
		engine.WithMaxSteps(t.cfg.MaxSteps),
		engine.WithObserver(ep.observe),
	)
	res, err := m.Run(ctx)
	if err == nil {
		err = ep.err
	}
	if err != nil {
		return metrics.EpisodeRecord{}, errors.Wrapf(err, "episode %d", n)
	}
	ep.close(res.Outcomes[learnerSide])

	record := metrics.EpisodeRecord{
		Episode:  n,
		Steps:    res.Steps,
		Reward:   ep.reward,
		Epsilon:  epsilon,
		Loss:     lo.Mean(ep.losses),
		Outcome:  int(res.Outcomes[learnerSide]),
		Buffered: t.buffer.Len(),
		Duration: time.Since(start),
	}
	event := ep.logger.Debug()
	if (n+1)%10 == 0 {
		event = ep.logger.Info()
	}
	event.Msgf("%s after %d steps, %d total, epsilon %.4f, reward %.2f, loss %.4f",
		res.Outcomes[learnerSide], res.Steps, t.steps, epsilon, record.Reward, record.Loss)
	return record, nil
}

// Optimize takes one regression step on a uniform batch and syncs the target
// network on schedule. Experiences whose blobs fail to decode are dropped.
func (t *Trainer) Optimize() (float64, error) {
	batch := t.buffer.Sample(t.rng, t.cfg.BatchSize)
	states := make([]features.Input, 0, len(batch))
	rewards := make([]float64, 0, len(batch))
	nextOf := make([]int, 0, len(batch))
	var nexts []features.Input
	dropped := 0

	for _, e := range batch {
		state, ok := t.decode(e.State)
		if !ok {
			dropped++
			continue
		}
		idx := -1
		if !e.Terminal {
			next, ok := t.decode(e.Next)
			if !ok {
				dropped++
				continue
			}
			idx = len(nexts)
			nexts = append(nexts, next)
		}
		states = append(states, state)
		rewards = append(rewards, e.Reward)
		nextOf = append(nextOf, idx)
	}
	if dropped > 0 {
		log.Error().Msgf("dropped %d of %d experiences with malformed blobs", dropped, len(batch))
	}
	if len(states) == 0 {
		return 0, nil
	}

	values, err := t.target.EvaluateInputs(nexts)
	if err != nil {
		return 0, errors.Wrap(err, "failed to evaluate next states")
	}
	targets := make([]float64, len(states))
	for i := range states {
		targets[i] = rewards[i]
		if nextOf[i] >= 0 {
			targets[i] += t.cfg.Gamma * values[nextOf[i]]
		}
	}
	loss, err := t.online.Regress(states, targets, model.RegressOptions{
		LearningRate: t.cfg.LearningRate,
		Momentum:     t.cfg.Momentum,
		HuberDelta:   t.cfg.HuberDelta,
		Solver:       t.cfg.Solver,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to regress")
	}

	t.optimizations++
	if t.optimizations%t.cfg.TargetSync == 0 {
		if err := t.target.CopyFrom(t.online); err != nil {
			return loss, err
		}
		log.Info().Msgf("synced target network after %d optimizer steps", t.optimizations)
	}
	return loss, nil
}

// observation packs the position the learner's move leads to, seen against
// the opponent's current position.
func (t *Trainer) observation(rec engine.StepRecord) Observation {
	post := game.Successor(rec.Before, rec.Candidate)
	opp := rec.Opponent
	in := t.enc.Encode(post, &opp)
	obs := Observation{Board: post.Board.Bytes(), Features: in.Features}
	if t.variant.Layout.Channels == 2 {
		obs.Opponent = opp.Board.Bytes()
	}
	return obs
}

func (t *Trainer) decode(o Observation) (features.Input, bool) {
	return t.enc.Decode(o.Board, o.Opponent, o.Features)
}

// episode turns the learner's moves into transitions. The transition of a
// move stays pending until the learner's next move supplies its successor.
type episode struct {
	t       *Trainer
	logger  zerolog.Logger
	pending *Experience
	reward  float64
	losses  []float64
	err     error
}

func (ep *episode) observe(rec engine.StepRecord) {
	if rec.Side != learnerSide {
		return
	}
	t := ep.t
	obs := t.observation(rec)
	r := t.cfg.Reward.Reward(rec)
	ep.reward += r

	if ep.pending != nil {
		ep.pending.Next = obs
		t.buffer.Push(*ep.pending)
	}
	ep.pending = &Experience{State: obs, Reward: r}
	if rec.Over || rec.OpponentOver {
		ep.pending.Terminal = true
		t.buffer.Push(*ep.pending)
		ep.pending = nil
	}

	t.steps++
	if ep.err != nil || t.steps <= t.cfg.WarmupSteps || t.buffer.Len() < t.cfg.BatchSize {
		return
	}
	loss, err := t.Optimize()
	if err != nil {
		ep.logger.Error().Err(err).Msg("optimization failed")
		ep.err = err
		return
	}
	ep.losses = append(ep.losses, loss)
}

// close stores the last transition as terminal. A learner that lost without
// a move of its own ending the game is penalized here.
func (ep *episode) close(outcome engine.Outcome) {
	if ep.pending == nil {
		return
	}
	ep.pending.Terminal = true
	if outcome == engine.Loss {
		ep.pending.Reward += ep.t.cfg.Reward.Loss
		ep.reward += ep.t.cfg.Reward.Loss
	}
	ep.t.buffer.Push(*ep.pending)
	ep.pending = nil
}
