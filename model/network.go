package model

import (
	"math"
	"sync"

	"obseris/features"

	"github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// ErrShape is returned when inputs or tensors do not match the variant.
var ErrShape = errors.New("shape mismatch")

// Network is a value model backed by a go-deep multilayer perceptron with
// ReLU hidden layers and a linear output. Calls are serialized because
// forward passes store activations on the graph.
type Network struct {
	mu      sync.Mutex
	variant Variant
	net     *deep.Neural
	updates int64
	solver  training.Solver
}

// New creates a network with He-normal weights drawn from rng and zero
// biases.
func New(v Variant, rng *rand.Rand) *Network {
	n := newNetwork(v)
	raw := n.net.Weights()
	fanIns := v.fanIns()
	for i := range raw {
		std := math.Sqrt(2 / float64(fanIns[i]))
		for j := range raw[i] {
			for k := range raw[i][j] {
				if k < fanIns[i] {
					raw[i][j][k] = rng.NormFloat64() * std
				} else {
					raw[i][j][k] = 0
				}
			}
		}
	}
	n.net.ApplyWeights(raw)
	return n
}

// Seeded creates a network from a fixed seed.
func Seeded(v Variant, seed uint64) *Network {
	return New(v, rand.New(rand.NewSource(seed)))
}

func newNetwork(v Variant) *Network {
	return &Network{
		variant: v,
		net: deep.NewNeural(&deep.Config{
			Inputs:     v.Inputs(),
			Layout:     v.layout(),
			Activation: deep.ActivationReLU,
			Mode:       deep.ModeRegression,
			Weight:     deep.NewNormal(0.1, 0),
			Bias:       true,
		}),
	}
}

func (n *Network) Variant() Variant {
	return n.variant
}

// Evaluate scores a batch; boards[i] and feats[i] describe one position.
func (n *Network) Evaluate(boards, feats [][]float64) ([]float64, error) {
	if len(boards) != len(feats) {
		return nil, errors.Wrapf(ErrShape, "%d boards but %d feature vectors", len(boards), len(feats))
	}
	boardSize, featureSize := n.variant.Layout.BoardSize(), n.variant.Layout.FeatureSize()

	n.mu.Lock()
	defer n.mu.Unlock()

	scores := make([]float64, len(boards))
	input := make([]float64, boardSize+featureSize)
	for i := range boards {
		if len(boards[i]) != boardSize || len(feats[i]) != featureSize {
			return nil, errors.Wrapf(ErrShape, "input %d has board %d and features %d, want %d and %d",
				i, len(boards[i]), len(feats[i]), boardSize, featureSize)
		}
		copy(input, boards[i])
		copy(input[boardSize:], feats[i])
		scores[i] = n.net.Predict(input)[0]
	}
	return scores, nil
}

// EvaluateInputs scores encoded positions.
func (n *Network) EvaluateInputs(inputs []features.Input) ([]float64, error) {
	boards := make([][]float64, len(inputs))
	feats := make([][]float64, len(inputs))
	for i, in := range inputs {
		boards[i], feats[i] = in.Board, in.Features
	}
	return n.Evaluate(boards, feats)
}

// Weights exports the parameters as named tensors.
func (n *Network) Weights() Weights {
	n.mu.Lock()
	defer n.mu.Unlock()

	raw := n.net.Weights()
	fanIns := n.variant.fanIns()
	var w Weights
	for i, layer := range raw {
		out, in := len(layer), fanIns[i]
		weight := Tensor{Name: weightName(i), Shape: []int{out, in}, Data: make([]float64, 0, out*in)}
		bias := Tensor{Name: biasName(i), Shape: []int{out}}
		for _, neuron := range layer {
			weight.Data = append(weight.Data, neuron[:in]...)
			if len(neuron) > in {
				bias.Data = append(bias.Data, neuron[in])
			}
		}
		w = append(w, weight)
		if len(bias.Data) == out {
			w = append(w, bias)
		}
	}
	return append(w, Tensor{Name: updatesTensor, Shape: []int{1}, Data: []float64{float64(n.updates)}, Integer: true})
}

// SetWeights loads named tensors. Every tensor the network needs must be
// present with the right shape; extra tensors are ignored.
func (n *Network) SetWeights(w Weights) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	raw := n.net.Weights()
	fanIns := n.variant.fanIns()
	for i, layer := range raw {
		out, in := len(layer), fanIns[i]
		weight, ok := w.Get(weightName(i))
		if !ok || len(weight.Shape) != 2 || weight.Shape[0] != out || weight.Shape[1] != in {
			return errors.Wrapf(ErrShape, "tensor %s missing or not %dx%d", weightName(i), out, in)
		}
		bias, hasBias := w.Get(biasName(i))
		for j, neuron := range layer {
			copy(neuron[:in], weight.Data[j*in:(j+1)*in])
			if len(neuron) > in {
				if !hasBias || len(bias.Data) != out {
					return errors.Wrapf(ErrShape, "tensor %s missing or not %d long", biasName(i), out)
				}
				neuron[in] = bias.Data[j]
			}
		}
	}
	n.net.ApplyWeights(raw)
	n.updates = w.Updates()
	return nil
}

// Clone returns an independent copy with the same weights.
func (n *Network) Clone() *Network {
	c := newNetwork(n.variant)
	if err := c.SetWeights(n.Weights()); err != nil {
		panic(errors.Wrap(err, "failed to clone network"))
	}
	return c
}

// CopyFrom hard-copies the weights of other into n.
func (n *Network) CopyFrom(other *Network) error {
	if other.variant.Name != n.variant.Name {
		return errors.Errorf("cannot copy %s weights into %s network", other.variant.Name, n.variant.Name)
	}
	return n.SetWeights(other.Weights())
}

// FromWeights builds a network of variant v holding w.
func FromWeights(v Variant, w Weights) (*Network, error) {
	n := newNetwork(v)
	if err := n.SetWeights(w); err != nil {
		return nil, err
	}
	return n, nil
}

// Updates returns the number of optimizer steps applied so far.
func (n *Network) Updates() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updates
}
