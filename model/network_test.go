package model

import (
	"path/filepath"
	"testing"

	"obseris/features"
	"obseris/game"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func samplePositions() (game.Position, game.Position) {
	sim := game.NewTetris(17)
	self := sim.Position()
	self.Board[39][3] = 1
	self.PendingGarbage = 2
	opp := game.NewTetris(18).Position()
	opp.Board[38][1] = 1
	return self, opp
}

func TestEvaluate(t *testing.T) {
	self, opp := samplePositions()

	t.Run("same seed gives the same scores", func(t *testing.T) {
		a, b := Seeded(V2, 1), Seeded(V2, 1)
		in := V2.Encoder().Encode(self, &opp)

		sa, err := a.EvaluateInputs([]features.Input{in, in})
		require.NoError(t, err)
		sb, err := b.EvaluateInputs([]features.Input{in})
		require.NoError(t, err)
		require.Len(t, sa, 2)
		require.Equal(t, sa[0], sa[1], "Evaluation should not depend on batch position")
		require.Equal(t, sa[0], sb[0])
	})

	t.Run("mismatched shapes are rejected", func(t *testing.T) {
		n := Seeded(V2, 1)
		_, err := n.Evaluate([][]float64{make([]float64, 10)}, [][]float64{make([]float64, 72)})
		require.ErrorIs(t, err, ErrShape)
		_, err = n.Evaluate([][]float64{make([]float64, 800)}, nil)
		require.ErrorIs(t, err, ErrShape)
	})

	t.Run("zero weights score everything zero", func(t *testing.T) {
		n := Seeded(V1, 1)
		w := n.Weights()
		for i := range w {
			if !w[i].Integer {
				clear(w[i].Data)
			}
		}
		require.NoError(t, n.SetWeights(w))
		scores, err := n.EvaluateInputs(V1.Encoder().EncodeBatch([]game.Position{self, opp}, nil))
		require.NoError(t, err)
		require.Equal(t, []float64{0, 0}, scores)
	})
}

func TestWeights(t *testing.T) {
	n := Seeded(V2, 3)
	w := n.Weights()

	t.Run("tensors are named per layer", func(t *testing.T) {
		weight, ok := w.Get("dense0.weight")
		require.True(t, ok)
		require.Equal(t, []int{64, V2.Inputs()}, weight.Shape)
		require.Len(t, weight.Data, weight.Size())
		_, ok = w.Get("dense1.weight")
		require.True(t, ok)
		_, ok = w.Get("dense2.weight")
		require.True(t, ok, "Output layer should be exported")
		updates, ok := w.Get(updatesTensor)
		require.True(t, ok)
		require.True(t, updates.Integer)
	})

	t.Run("clone evaluates identically", func(t *testing.T) {
		self, opp := samplePositions()
		in := V2.Encoder().Encode(self, &opp)
		want, err := n.EvaluateInputs([]features.Input{in})
		require.NoError(t, err)
		got, err := n.Clone().EvaluateInputs([]features.Input{in})
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("exported weights are detached", func(t *testing.T) {
		w[0].Data[0] += 1
		require.NotEqual(t, w[0].Data[0], n.Weights()[0].Data[0])
	})

	t.Run("wrong shapes are rejected", func(t *testing.T) {
		err := Seeded(V3, 1).SetWeights(Seeded(V2, 1).Weights())
		require.ErrorIs(t, err, ErrShape)
	})
}

func TestMigrate(t *testing.T) {
	old := Seeded(V2, 5)
	migrated, err := Migrate(old.Weights(), V3, rand.New(rand.NewSource(6)))
	require.NoError(t, err)

	oldFirst, _ := old.Weights().Get("dense0.weight")
	newFirst, _ := migrated.Get("dense0.weight")
	require.Equal(t, []int{64, V3.Inputs()}, newFirst.Shape)
	oldCols, newCols := oldFirst.Shape[1], newFirst.Shape[1]
	for r := 0; r < 64; r++ {
		require.Equal(t, oldFirst.Data[r*oldCols:(r+1)*oldCols], newFirst.Data[r*newCols:r*newCols+oldCols],
			"Row %d should keep the old weights in its leading columns", r)
	}
	for _, name := range []string{"dense0.bias", "dense1.weight", "dense2.weight"} {
		a, _ := old.Weights().Get(name)
		b, _ := migrated.Get(name)
		require.Equal(t, a.Data, b.Data, "%s should be copied unchanged", name)
	}

	t.Run("migrated network agrees when nothing is held", func(t *testing.T) {
		self, opp := samplePositions()
		self.Hold = game.NoPiece
		n, err := FromWeights(V3, migrated)
		require.NoError(t, err)

		want, err := old.EvaluateInputs([]features.Input{V2.Encoder().Encode(self, &opp)})
		require.NoError(t, err)
		got, err := n.EvaluateInputs([]features.Input{V3.Encoder().Encode(self, &opp)})
		require.NoError(t, err)
		require.InDelta(t, want[0], got[0], 1e-9)
	})

	t.Run("unrelated weights cannot be migrated", func(t *testing.T) {
		_, err := Migrate(Weights{{Name: "other", Shape: []int{1}, Data: []float64{1}}}, V3, rand.New(rand.NewSource(1)))
		require.Error(t, err)
	})
}

func TestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(9))

	t.Run("round trip", func(t *testing.T) {
		n := Seeded(V2, 11)
		path := filepath.Join(dir, "best.json")
		require.NoError(t, SaveNetwork(path, n, 7))

		c, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "v2", c.Variant)
		require.Equal(t, 7, c.Generation)

		loaded, err := LoadNetwork(path)
		require.NoError(t, err)
		require.Equal(t, n.Weights(), loaded.Weights())
	})

	t.Run("missing file falls back to fresh weights", func(t *testing.T) {
		n := LoadOrFresh(filepath.Join(dir, "missing.json"), V3, rng)
		require.NotNil(t, n)
		require.Equal(t, "v3", n.Variant().Name)
	})

	t.Run("older variant is migrated on load", func(t *testing.T) {
		path := filepath.Join(dir, "v2.json")
		old := Seeded(V2, 12)
		require.NoError(t, SaveNetwork(path, old, 1))

		n := LoadOrFresh(path, V3, rng)
		oldBias, _ := old.Weights().Get("dense1.bias")
		newBias, _ := n.Weights().Get("dense1.bias")
		require.Equal(t, oldBias.Data, newBias.Data)
	})
}

func TestRegress(t *testing.T) {
	n := Seeded(V1, 21)
	self, _ := samplePositions()
	enc := V1.Encoder()
	inputs := enc.EncodeBatch([]game.Position{self, game.NewPosition()}, nil)
	targets := []float64{1.5, -0.5}
	opts := RegressOptions{LearningRate: 0.01, HuberDelta: 1}

	first, err := n.Regress(inputs, targets, opts)
	require.NoError(t, err)
	last := first
	for i := 0; i < 100; i++ {
		last, err = n.Regress(inputs, targets, opts)
		require.NoError(t, err)
	}
	require.Less(t, last, first, "Loss should decrease toward fixed targets")
	require.Equal(t, int64(101), n.Updates())
	require.Equal(t, int64(101), n.Weights().Updates())

	_, err = n.Regress(inputs, targets[:1], opts)
	require.ErrorIs(t, err, ErrShape)
}
