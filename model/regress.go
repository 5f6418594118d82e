package model

import (
	"math"

	"obseris/features"

	"github.com/patrikeh/go-deep/training"
	"github.com/pkg/errors"
)

type RegressOptions struct {
	LearningRate float64
	// Momentum is only used by the SGD solver.
	Momentum float64
	// HuberDelta bounds the per-sample gradient; errors beyond it are
	// penalized linearly.
	HuberDelta float64
	// Solver is "adam" (default) or "sgd".
	Solver string
}

func (o RegressOptions) newSolver() training.Solver {
	if o.Solver == "sgd" {
		return training.NewSGD(o.LearningRate, o.Momentum, 0, false)
	}
	return training.NewAdam(o.LearningRate, 0.9, 0.999, 1e-8)
}

// Regress takes one minibatch step moving the outputs for inputs toward
// targets under a Huber loss and returns the mean loss before the step.
func (n *Network) Regress(inputs []features.Input, targets []float64, opts RegressOptions) (float64, error) {
	if len(inputs) != len(targets) {
		return 0, errors.Wrapf(ErrShape, "%d inputs but %d targets", len(inputs), len(targets))
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	if opts.HuberDelta <= 0 {
		opts.HuberDelta = 1
	}
	size := n.variant.Inputs()

	n.mu.Lock()
	defer n.mu.Unlock()

	params := n.numWeights()
	if n.solver == nil {
		n.solver = opts.newSolver()
		n.solver.Init(params)
	}

	grads := make([]float64, params)
	loss := 0.0
	for i, in := range inputs {
		x := in.Flat()
		if len(x) != size {
			return 0, errors.Wrapf(ErrShape, "input %d has %d values, want %d", i, len(x), size)
		}
		diff := n.net.Predict(x)[0] - targets[i]
		loss += huber(diff, opts.HuberDelta)
		n.accumulate(grads, clamp(diff, opts.HuberDelta))
	}

	n.updates++
	scale := 1 / float64(len(inputs))
	idx := 0
	for _, layer := range n.net.Layers {
		for _, neuron := range layer.Neurons {
			for _, syn := range neuron.In {
				syn.Weight += n.solver.Update(syn.Weight, grads[idx]*scale, int(n.updates), idx)
				idx++
			}
		}
	}
	return loss * scale, nil
}

// accumulate backpropagates an output gradient through the activations left
// by the last forward pass.
func (n *Network) accumulate(grads []float64, outGrad float64) {
	layers := n.net.Layers
	deltas := make([][]float64, len(layers))
	last := len(layers) - 1

	deltas[last] = make([]float64, len(layers[last].Neurons))
	for j, neuron := range layers[last].Neurons {
		deltas[last][j] = outGrad * neuron.DActivate(neuron.Value)
	}
	for i := last - 1; i >= 0; i-- {
		deltas[i] = make([]float64, len(layers[i].Neurons))
		for j, neuron := range layers[i].Neurons {
			sum := 0.0
			for k, syn := range neuron.Out {
				sum += syn.Weight * deltas[i+1][k]
			}
			deltas[i][j] = neuron.DActivate(neuron.Value) * sum
		}
	}

	idx := 0
	for i, layer := range layers {
		for j, neuron := range layer.Neurons {
			for _, syn := range neuron.In {
				grads[idx] += deltas[i][j] * syn.In
				idx++
			}
		}
	}
}

func (n *Network) numWeights() int {
	count := 0
	for _, layer := range n.net.Layers {
		for _, neuron := range layer.Neurons {
			count += len(neuron.In)
		}
	}
	return count
}

func huber(diff, delta float64) float64 {
	if a := math.Abs(diff); a > delta {
		return delta * (a - 0.5*delta)
	}
	return 0.5 * diff * diff
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
