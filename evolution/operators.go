package evolution

import (
	"math"
	"slices"

	"obseris/model"

	"golang.org/x/exp/rand"
)

// Individual is one member of the population.
type Individual struct {
	Weights model.Weights
	Fitness float64
	Failed  bool
}

func newIndividual(w model.Weights) Individual {
	return Individual{Weights: w, Fitness: math.Inf(-1)}
}

// Tournament samples size individuals uniformly with replacement and returns
// the index of the fittest.
func Tournament(pop []Individual, size int, rng *rand.Rand) int {
	best := rng.Intn(len(pop))
	for i := 1; i < size; i++ {
		if j := rng.Intn(len(pop)); pop[j].Fitness > pop[best].Fitness {
			best = j
		}
	}
	return best
}

// Select returns the indices of the elite individuals, fittest first, and a
// pool of 2*(len(pop)-elite) tournament winners to draw parents from.
func Select(pop []Individual, elite, tournament int, rng *rand.Rand) (elites, parents []int) {
	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case pop[a].Fitness > pop[b].Fitness:
			return -1
		case pop[a].Fitness < pop[b].Fitness:
			return 1
		default:
			return 0
		}
	})
	elites = order[:elite]

	parents = make([]int, 2*(len(pop)-elite))
	for i := range parents {
		parents[i] = Tournament(pop, tournament, rng)
	}
	return elites, parents
}

// Crossover builds a child from two parents. Each float tensor is the
// elementwise mean of both parents with probability rate and a copy of p1
// otherwise. Integer tensors, and tensors p2 lacks, come from p1.
func Crossover(p1, p2 model.Weights, rate float64, rng *rand.Rand) model.Weights {
	child := p1.Clone()
	for i, t := range child {
		if t.Integer {
			continue
		}
		other, ok := p2.Get(t.Name)
		if !ok || !slices.Equal(other.Shape, t.Shape) {
			continue
		}
		if rng.Float64() >= rate {
			continue
		}
		for j := range t.Data {
			child[i].Data[j] = (t.Data[j] + other.Data[j]) / 2
		}
	}
	return child
}

// Mutate returns a copy of w where, with probability rate per float tensor,
// every element receives Gaussian noise of standard deviation strength.
func Mutate(w model.Weights, rate, strength float64, rng *rand.Rand) model.Weights {
	mutant := w.Clone()
	for i, t := range mutant {
		if t.Integer || rng.Float64() >= rate {
			continue
		}
		for j := range t.Data {
			mutant[i].Data[j] += rng.NormFloat64() * strength
		}
	}
	return mutant
}
