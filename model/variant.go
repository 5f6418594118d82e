package model

import (
	"obseris/features"

	"github.com/pkg/errors"
)

// Variant names one model configuration: its input contract and hidden
// layer sizes. All variants share the same Evaluate interface.
type Variant struct {
	Name   string
	Layout features.Layout
	Hidden []int
}

var (
	// V1 sees only its own board.
	V1 = Variant{Name: "v1", Layout: features.Layout{Channels: 1}, Hidden: []int{64, 32}}
	// V2 adds the opponent board, both queues and both garbage counters.
	V2 = Variant{Name: "v2", Layout: features.Layout{Channels: 2, Features: true}, Hidden: []int{64, 32}}
	// V3 extends V2 with the held piece.
	V3 = Variant{Name: "v3", Layout: features.Layout{Channels: 2, Features: true, Hold: true}, Hidden: []int{64, 32}}
)

var variants = []Variant{V1, V2, V3}

func VariantByName(name string) (Variant, error) {
	for _, v := range variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, errors.Errorf("unknown model variant %q", name)
}

func (v Variant) Inputs() int {
	return v.Layout.BoardSize() + v.Layout.FeatureSize()
}

// Encoder returns an encoder producing inputs for this variant.
func (v Variant) Encoder() *features.Encoder {
	return features.NewEncoder(v.Layout)
}

// fanIns returns the number of inputs per dense layer.
func (v Variant) fanIns() []int {
	fanIns := []int{v.Inputs()}
	return append(fanIns, v.Hidden...)
}

func (v Variant) layout() []int {
	layout := append([]int(nil), v.Hidden...)
	return append(layout, 1)
}
