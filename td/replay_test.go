package td

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestReplayBuffer(t *testing.T) {
	t.Run("keeps the newest experiences once full", func(t *testing.T) {
		b := NewReplayBuffer(3)
		for i := 1; i <= 5; i++ {
			b.Push(Experience{Reward: float64(i)})
		}
		require.Equal(t, 3, b.Len())
		require.Equal(t, 3, b.Cap())
		rewards := lo.Map(b.Items(), func(e Experience, _ int) float64 { return e.Reward })
		require.Equal(t, []float64{3, 4, 5}, rewards)
	})

	t.Run("items are oldest first before wrapping", func(t *testing.T) {
		b := NewReplayBuffer(4)
		b.Push(Experience{Reward: 1})
		b.Push(Experience{Reward: 2})
		rewards := lo.Map(b.Items(), func(e Experience, _ int) float64 { return e.Reward })
		require.Equal(t, []float64{1, 2}, rewards)
	})

	t.Run("samples distinct experiences", func(t *testing.T) {
		b := NewReplayBuffer(10)
		for i := 0; i < 10; i++ {
			b.Push(Experience{Reward: float64(i)})
		}
		rng := rand.New(rand.NewSource(1))
		for range 50 {
			batch := b.Sample(rng, 4)
			require.Len(t, batch, 4)
			rewards := lo.Map(batch, func(e Experience, _ int) float64 { return e.Reward })
			require.Len(t, lo.Uniq(rewards), 4)
		}
	})

	t.Run("small batches from a large buffer reach every experience", func(t *testing.T) {
		b := NewReplayBuffer(1000)
		for i := 0; i < 1000; i++ {
			b.Push(Experience{Reward: float64(i)})
		}
		rng := rand.New(rand.NewSource(2))
		hits := make([]int, 1000)
		for range 2000 {
			batch := b.Sample(rng, 10)
			require.Len(t, lo.UniqBy(batch, func(e Experience) float64 { return e.Reward }), 10)
			for _, e := range batch {
				hits[int(e.Reward)]++
			}
		}
		// 20 expected hits per experience
		require.Positive(t, lo.Min(hits))
		require.Less(t, lo.Max(hits), 60)
	})

	t.Run("sampling the whole buffer returns every experience once", func(t *testing.T) {
		b := NewReplayBuffer(6)
		for i := 0; i < 6; i++ {
			b.Push(Experience{Reward: float64(i)})
		}
		rewards := lo.Map(b.Sample(rand.New(rand.NewSource(3)), 6), func(e Experience, _ int) float64 { return e.Reward })
		require.ElementsMatch(t, []float64{0, 1, 2, 3, 4, 5}, rewards)
	})

	t.Run("sample is capped by the buffer length", func(t *testing.T) {
		b := NewReplayBuffer(10)
		b.Push(Experience{Reward: 1})
		b.Push(Experience{Reward: 2})
		require.Len(t, b.Sample(rand.New(rand.NewSource(1)), 8), 2)
		require.Empty(t, NewReplayBuffer(1).Sample(rand.New(rand.NewSource(1)), 8))
	})

	t.Run("zero capacity panics", func(t *testing.T) {
		require.Panics(t, func() { NewReplayBuffer(0) })
	})
}
