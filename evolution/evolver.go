package evolution

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"obseris/engine"
	"obseris/experiments/metrics"
	"obseris/game"
	"obseris/model"
	"obseris/searcher"
	"obseris/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

// Evolver runs the genetic optimization of value model weights.
type Evolver struct {
	cfg     Config
	variant model.Variant
	rng     *rand.Rand
	pool    *Pool
	writer  *metrics.Writer
	records []metrics.GenerationRecord
	play    func(ctx context.Context, t task) (engine.Result, error)
}

// task is one fitness evaluation. Each task builds its own networks and
// simulators.
type task struct {
	index    int
	weights  model.Weights
	opponent *Handle // nil plays the baseline
	seed     uint64
}

func New(cfg Config) (*Evolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid evolution config")
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

	e := &Evolver{
		cfg:     cfg,
		variant: variant,
		rng:     rand.New(rand.NewSource(seed)),
		pool:    NewPool(cfg.PoolCapacity, FileStore{Dir: filepath.Join(cfg.Dir, "opponent_pool")}),
		writer:  writer,
	}
	e.play = e.playMatch
	log.Info().Msgf("evolution seed %d, population %d, %d workers", seed, cfg.PopulationSize, cfg.Workers)
	return e, nil
}

func (e *Evolver) Pool() *Pool {
	return e.pool
}

// Run evolves the configured number of generations and returns the best
// individual of the last one.
func (e *Evolver) Run(ctx context.Context) (Individual, error) {
	if err := e.pool.Restore(); err != nil {
		return Individual{}, err
	}
	pop := e.InitialPopulation()

	var best Individual
	for i := 0; i < e.cfg.Generations; i++ {
		if err := ctx.Err(); err != nil {
			return best, errors.Wrap(err, "evolution interrupted")
		}
		var err error
		pop, best, err = e.Step(ctx, e.cfg.StartGeneration+i, pop)
		if err != nil {
			return best, err
		}
	}
	return best, nil
}

// InitialPopulation returns fresh individuals, or the resume checkpoint plus
// mutated copies of it.
func (e *Evolver) InitialPopulation() []Individual {
	pop := make([]Individual, e.cfg.PopulationSize)
	if e.cfg.Resume == "" {
		for i := range pop {
			pop[i] = newIndividual(model.New(e.variant, e.rng).Weights())
		}
		return pop
	}

	base := model.LoadOrFresh(e.cfg.Resume, e.variant, e.rng).Weights()
	pop[0] = newIndividual(base)
	for i := 1; i < len(pop); i++ {
		pop[i] = newIndividual(Mutate(base, e.cfg.MutationRate, e.cfg.MutationStrength, e.rng))
	}
	log.Info().Msgf("resuming from %s with %d mutated copies", e.cfg.Resume, len(pop)-1)
	return pop
}

// Step evaluates one generation, records it and breeds the next.
func (e *Evolver) Step(ctx context.Context, gen int, pop []Individual) ([]Individual, Individual, error) {
	start := time.Now()
	logger := log.With().Int("generation", gen).Logger()
	logger.Info().Msgf("evaluating %d individuals against a pool of %d", len(pop), e.pool.Len())

	e.Evaluate(ctx, gen, pop)
	if err := ctx.Err(); err != nil {
		return nil, Individual{}, errors.Wrapf(err, "generation %d abandoned", gen)
	}
	best := lo.MaxBy(pop, func(a, b Individual) bool { return a.Fitness > b.Fitness })
	record := summarize(gen, pop, e.cfg.FailureFitness)

	if best.Failed {
		logger.Warn().Msg("every evaluation failed, keeping the previous champion")
	} else if err := e.persist(gen, best); err != nil {
		return nil, best, err
	}
	record.PoolSize = e.pool.Len()
	record.Duration = time.Since(start)
	e.records = append(e.records, record)
	if err := e.writer.WriteGenerationRecords(e.records); err != nil {
		return nil, best, err
	}
	logger.Info().Msgf("best %.2f, mean %.2f, worst %.2f, %d failed in %s",
		record.Best, record.Mean, record.Worst, record.Failures, record.Duration)

	return e.Next(pop), best, nil
}

// Evaluate assigns a fitness to every individual. Failed evaluations receive
// the failure fitness instead of aborting the generation.
func (e *Evolver) Evaluate(ctx context.Context, gen int, pop []Individual) {
	tasks := make([]task, len(pop))
	for i := range pop {
		pop[i].Fitness, pop[i].Failed = math.Inf(-1), false
		tasks[i] = task{index: i, weights: pop[i].Weights, seed: e.rng.Uint64() | 1}
		if h, ok := e.pool.Sample(e.rng); ok {
			tasks[i].opponent = &h
		}
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range tasks {
		g.Go(func() error {
			pop[i].Fitness, pop[i].Failed = e.evaluate(ctx, gen, tasks[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Evolver) evaluate(ctx context.Context, gen int, t task) (fitness float64, failed bool) {
	logger := log.With().Int("generation", gen).Int("individual", t.index).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Msgf("evaluation panicked: %v", r)
			fitness, failed = e.cfg.FailureFitness, true
		}
	}()

	res, err := e.play(ctx, t)
	if err != nil {
		logger.Error().Err(err).Msg("evaluation failed")
		return e.cfg.FailureFitness, true
	}
	fitness = res.Fitness(0, e.cfg.Fitness)
	s := res.Stats[0]
	logger.Debug().Msgf("%s after %d steps, fitness %.2f (pieces %d, attack %d, soft drops %d)",
		res.Outcomes[0], res.Steps, fitness, s.Pieces, s.Attack, s.SoftDrops)
	return fitness, false
}

func (e *Evolver) newBeam() *searcher.Beam {
	// generations already run one match per worker
	return searcher.NewBeam(
		searcher.WithBeamWidth(e.cfg.BeamWidth),
		searcher.WithDepth(e.cfg.Depth),
		searcher.WithWorkers(1),
	)
}

func (e *Evolver) playMatch(ctx context.Context, t task) (engine.Result, error) {
	net, err := model.FromWeights(e.variant, t.weights)
	if err != nil {
		return engine.Result{}, err
	}
	self := agent.NewEvaluationAgent(e.newBeam(), agent.ValueScoring(net, e.variant.Encoder()))
	opponent, name := e.opponent(t.opponent)

	m := engine.LocalEngine(
		engine.Side{Name: fmt.Sprintf("individual %d", t.index), Simulator: game.NewTetris(t.seed), Agent: self},
		engine.Side{Name: name, Simulator: game.NewTetris(t.seed), Agent: opponent},
		engine.WithMaxSteps(e.cfg.MaxSteps),
	)
	return m.Run(ctx)
}

// opponent loads the pool snapshot h, or the baseline when h is nil. An
// unreadable snapshot is replaced by the surface heuristic.
func (e *Evolver) opponent(h *Handle) (agent.Agent, string) {
	path, name := e.cfg.Baseline, "baseline"
	if h != nil {
		path, name = h.Path, fmt.Sprintf("opponent %d", h.Generation)
	}
	if path != "" {
		net, err := model.LoadNetwork(path)
		if err == nil {
			return agent.NewEvaluationAgent(e.newBeam(), agent.ValueScoring(net, net.Variant().Encoder())), name
		}
		log.Warn().Err(err).Msgf("%s unavailable, playing the surface heuristic", name)
	}
	return agent.NewEvaluationAgent(e.newBeam(), agent.HeuristicScoring(game.EvaluateSurface)), name + " (heuristic)"
}

// persist adds the generation's best to the pool and writes best_latest and,
// on milestone generations, a permanent snapshot.
func (e *Evolver) persist(gen int, best Individual) error {
	net, err := model.FromWeights(e.variant, best.Weights)
	if err != nil {
		return errors.Wrap(err, "failed to rebuild the best individual")
	}
	if err := e.pool.Add(gen, net); err != nil {
		return err
	}
	if err := model.SaveNetwork(filepath.Join(e.cfg.Dir, "best_latest.json"), net, gen); err != nil {
		return err
	}
	if (gen+1)%e.cfg.MilestoneEvery == 0 {
		path := filepath.Join(e.cfg.Dir, "milestones", fmt.Sprintf("milestone_gen_%d.json", gen+1))
		if err := model.SaveNetwork(path, net, gen+1); err != nil {
			return err
		}
		log.Info().Msgf("saved milestone %s", path)
	}
	return nil
}

// Next breeds the following generation: elites survive unchanged, the rest
// are mutated crossovers of two distinct picks from the tournament pool.
func (e *Evolver) Next(pop []Individual) []Individual {
	elites, parents := Select(pop, e.cfg.EliteSize, e.cfg.TournamentSize, e.rng)
	next := make([]Individual, 0, len(pop))
	for _, i := range elites {
		next = append(next, newIndividual(pop[i].Weights.Clone()))
	}
	for len(next) < len(pop) {
		a := e.rng.Intn(len(parents))
		b := e.rng.Intn(len(parents) - 1)
		if b >= a {
			b++
		}
		child := Crossover(pop[parents[a]].Weights, pop[parents[b]].Weights, e.cfg.CrossoverRate, e.rng)
		next = append(next, newIndividual(Mutate(child, e.cfg.MutationRate, e.cfg.MutationStrength, e.rng)))
	}
	return next
}

func summarize(gen int, pop []Individual, failure float64) metrics.GenerationRecord {
	fitness := lo.Map(pop, func(ind Individual, _ int) float64 { return ind.Fitness })
	valid := lo.Filter(pop, func(ind Individual, _ int) bool { return !ind.Failed })
	record := metrics.GenerationRecord{
		Generation: gen,
		Best:       lo.Max(fitness),
		Worst:      lo.Min(fitness),
		Failures:   len(pop) - len(valid),
		Mean:       failure,
	}
	if len(valid) > 0 {
		record.Mean = lo.SumBy(valid, func(ind Individual) float64 { return ind.Fitness }) / float64(len(valid))
	}
	return record
}
