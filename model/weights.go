package model

import (
	"fmt"
	"slices"
)

const updatesTensor = "updates"

// Tensor is one named parameter block, stored row-major.
type Tensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
	// Integer tensors hold counters, not learned parameters. They are never
	// averaged or perturbed.
	Integer bool `json:"integer,omitempty"`
}

// Weights is an ordered set of named tensors.
type Weights []Tensor

func weightName(layer int) string { return fmt.Sprintf("dense%d.weight", layer) }
func biasName(layer int) string   { return fmt.Sprintf("dense%d.bias", layer) }

func (t Tensor) Clone() Tensor {
	t.Shape = slices.Clone(t.Shape)
	t.Data = slices.Clone(t.Data)
	return t
}

func (t Tensor) Size() int {
	size := 1
	for _, d := range t.Shape {
		size *= d
	}
	return size
}

func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for i, t := range w {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the tensor with the given name.
func (w Weights) Get(name string) (Tensor, bool) {
	for _, t := range w {
		if t.Name == name {
			return t, true
		}
	}
	return Tensor{}, false
}

// Updates returns the optimizer step counter, or zero when absent.
func (w Weights) Updates() int64 {
	t, ok := w.Get(updatesTensor)
	if !ok || len(t.Data) == 0 {
		return 0
	}
	return int64(t.Data[0])
}

// Parameters counts the float elements.
func (w Weights) Parameters() int {
	n := 0
	for _, t := range w {
		if !t.Integer {
			n += len(t.Data)
		}
	}
	return n
}
