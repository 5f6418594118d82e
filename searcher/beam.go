package searcher

import (
	"context"
	"runtime"
	"slices"

	"obseris/experiments/metrics"
	"obseris/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type Option func(b *Beam)

// Beam is a breadth-limited lookahead search. Each ply expands every
// surviving node with its own current piece (and hold piece), scores all
// children in one batch and keeps the best width of them.
type Beam struct {
	width   int
	depth   int
	workers int
	metrics metrics.Collector
}

func WithBeamWidth(width int) Option {
	return func(b *Beam) {
		b.width = width
	}
}

// WithDepth sets the search depth. A depth of d searches max(1, d-1) plies.
func WithDepth(depth int) Option {
	return func(b *Beam) {
		b.depth = depth
	}
}

func WithWorkers(workers int) Option {
	return func(b *Beam) {
		b.workers = workers
	}
}

func WithMetrics() Option {
	return func(b *Beam) {
		b.metrics = metrics.NewCollector()
	}
}

func NewBeam(options ...Option) *Beam {
	b := &Beam{ // Default values
		width:   BeamWidth,
		depth:   Depth,
		workers: runtime.GOMAXPROCS(0),
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(b)
	}
	if b.width < 1 {
		panic("Beam width must be positive")
	}
	if b.depth < 1 {
		panic("Search depth must be positive")
	}
	if b.workers < 1 {
		panic("Must use at least one worker")
	}
	return b
}

func (b *Beam) Width() int {
	return b.width
}

// Plies returns the number of plies a search expands.
func (b *Beam) Plies() int {
	return max(1, b.depth-1)
}

// Search returns the first-ply move of the best node after the last ply.
// Enumeration failures only prune the failing node; a scorer failure or a
// cancelled context aborts the search.
func (b *Beam) Search(ctx context.Context, root game.Position, enum game.Enumerator, scorer Scorer) (Decision, error) {
	b.metrics.Start(b.workers, b.width, b.depth)
	plies := b.Plies()

	frontier := []*node{{pos: root}}
	var scores []float64
	for ply := 1; ply <= plies; ply++ {
		children, err := b.expand(ctx, frontier, enum, ply)
		if err != nil {
			return Decision{}, err
		}
		if len(children) == 0 {
			log.Debug().Msgf("no candidates at ply %d, falling back to hard drop", ply)
			b.metrics.SetFallback(true)
			d := fallbackDecision(plies)
			d.Metric = b.metrics.Complete()
			return d, nil
		}

		childScores, err := scorer.Score(lo.Map(children, func(n *node, _ int) game.Position { return n.pos }))
		if err != nil {
			return Decision{}, errors.Wrapf(err, "failed to score ply %d", ply)
		}
		if len(childScores) != len(children) {
			return Decision{}, errors.Errorf("scorer returned %d scores for %d positions at ply %d", len(childScores), len(children), ply)
		}
		b.metrics.AddEvaluations(len(children))
		b.metrics.AddPly()

		frontier, scores = prune(children, childScores, b.width)
	}

	best := frontier[0]
	return Decision{
		Command: best.origin.Command,
		Facts:   best.origin.Facts,
		Score:   scores[0],
		Plies:   plies,
		Metric:  b.metrics.Complete(),
	}, nil
}

// expand enumerates the children of every node in frontier. Results keep the
// frontier order regardless of which worker finishes first.
func (b *Beam) expand(ctx context.Context, frontier []*node, enum game.Enumerator, ply int) ([]*node, error) {
	results := make([][]*node, len(frontier))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, parent := range frontier {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b.metrics.AddExpansion()
			children, err := expandNode(parent, enum)
			if err != nil {
				log.Warn().Err(err).Msgf("enumeration failed at ply %d, treating node as childless", ply)
				b.metrics.AddEnumerationError()
				return nil
			}
			if len(children) == 0 {
				b.metrics.AddDeadEnd()
			}
			results[i] = children
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "search interrupted at ply %d", ply)
	}
	return lo.Flatten(results), nil
}

func expandNode(parent *node, enum game.Enumerator) (children []*node, err error) {
	defer func() {
		if r := recover(); r != nil {
			children, err = nil, errors.Errorf("enumerator panicked: %v", r)
		}
	}()
	cands, err := parent.candidates(enum)
	if err != nil {
		return nil, err
	}
	children = make([]*node, len(cands))
	for i, c := range cands {
		children[i] = newChild(parent, c)
	}
	return children, nil
}

// prune keeps the width best nodes, ordered by descending score. Equal scores
// keep their enumeration order.
func prune(nodes []*node, scores []float64, width int) ([]*node, []float64) {
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})
	order = order[:min(width, len(order))]

	kept := make([]*node, len(order))
	keptScores := make([]float64, len(order))
	for i, j := range order {
		kept[i], keptScores[i] = nodes[j], scores[j]
	}
	return kept, keptScores
}
