package evolution

import (
	"math"
	"slices"
	"testing"

	"obseris/model"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func weightsOf(seed uint64) model.Weights {
	return model.Seeded(model.V1, seed).Weights()
}

func TestCrossover(t *testing.T) {
	p1, p2 := weightsOf(1), weightsOf(2)

	t.Run("same seed gives the same child", func(t *testing.T) {
		a := Crossover(p1, p2, 0.5, rand.New(rand.NewSource(7)))
		b := Crossover(p1, p2, 0.5, rand.New(rand.NewSource(7)))
		require.Equal(t, a, b)
	})

	t.Run("rate one averages every float tensor", func(t *testing.T) {
		child := Crossover(p1, p2, 1, rand.New(rand.NewSource(7)))
		for i, tensor := range child {
			if tensor.Integer {
				continue
			}
			for j, v := range tensor.Data {
				require.Equal(t, (p1[i].Data[j]+p2[i].Data[j])/2, v)
			}
		}
	})

	t.Run("rate zero copies the first parent", func(t *testing.T) {
		require.Equal(t, p1, Crossover(p1, p2, 0, rand.New(rand.NewSource(7))))
	})

	t.Run("integer tensors come from the first parent", func(t *testing.T) {
		a, b := p1.Clone(), p2.Clone()
		for i := range a {
			if a[i].Integer {
				a[i].Data[0], b[i].Data[0] = 10, 20
			}
		}
		child := Crossover(a, b, 1, rand.New(rand.NewSource(7)))
		require.Equal(t, int64(10), child.Updates())
	})

	t.Run("parents are not modified", func(t *testing.T) {
		before := p1.Clone()
		Crossover(p1, p2, 1, rand.New(rand.NewSource(7)))
		require.Equal(t, before, p1)
	})
}

func TestMutate(t *testing.T) {
	w := weightsOf(3)
	for i := range w {
		if w[i].Integer {
			w[i].Data[0] = 42
		}
	}

	t.Run("noise has the configured strength", func(t *testing.T) {
		mutant := Mutate(w, 1, 0.1, rand.New(rand.NewSource(11)))
		first, _ := w.Get("dense0.weight")
		mutated, _ := mutant.Get("dense0.weight")

		sum, sumSq := 0.0, 0.0
		for j := range first.Data {
			d := mutated.Data[j] - first.Data[j]
			sum += d
			sumSq += d * d
		}
		n := float64(len(first.Data))
		mean := sum / n
		std := math.Sqrt(sumSq/n - mean*mean)
		require.InDelta(t, 0, mean, 0.005)
		require.InDelta(t, 0.1, std, 0.005)
		require.Equal(t, int64(42), mutant.Updates(), "Integer tensors should never be perturbed")
	})

	t.Run("rate zero changes nothing", func(t *testing.T) {
		require.Equal(t, w, Mutate(w, 0, 0.1, rand.New(rand.NewSource(11))))
	})

	t.Run("tensors mutate at the configured rate", func(t *testing.T) {
		rng := rand.New(rand.NewSource(13))
		changed, total := 0, 0
		for range 2000 {
			mutant := Mutate(w, 0.3, 0.1, rng)
			for i, tensor := range mutant {
				if tensor.Integer {
					continue
				}
				total++
				if !slices.Equal(tensor.Data, w[i].Data) {
					changed++
				}
			}
		}
		require.InDelta(t, 0.3, float64(changed)/float64(total), 0.03)
	})

	t.Run("mutation touches whole tensors", func(t *testing.T) {
		mutant := Mutate(w, 0.5, 0.1, rand.New(rand.NewSource(12)))
		for i, tensor := range mutant {
			changed := 0
			for j := range tensor.Data {
				if tensor.Data[j] != w[i].Data[j] {
					changed++
				}
			}
			require.True(t, changed == 0 || changed == len(tensor.Data) || tensor.Integer,
				"%s should be mutated entirely or not at all", tensor.Name)
		}
	})
}

func TestSelect(t *testing.T) {
	pop := make([]Individual, 6)
	for i := range pop {
		pop[i] = Individual{Fitness: float64(i)}
	}
	pop[2].Fitness = 50

	elites, parents := Select(pop, 2, 3, rand.New(rand.NewSource(5)))
	require.Equal(t, []int{2, 5}, elites)
	require.Len(t, parents, 2*(6-2))

	t.Run("large tournaments find the fittest", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		for i := 0; i < 20; i++ {
			require.Equal(t, 2, Tournament(pop, 200, rng))
		}
	})

	t.Run("single-entry tournaments are uniform picks", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		seen := map[int]bool{}
		for i := 0; i < 200; i++ {
			seen[Tournament(pop, 1, rng)] = true
		}
		require.Len(t, seen, len(pop))
	})
}
