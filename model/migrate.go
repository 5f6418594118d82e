package model

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// Migrate maps weights trained for one variant onto variant to. Tensors with
// the same name and shape are copied. A weight matrix whose input width grew
// receives the old columns in its leading range while the appended columns
// keep their fresh initialization. Anything else stays freshly initialized.
func Migrate(old Weights, to Variant, rng *rand.Rand) (Weights, error) {
	fresh := New(to, rng).Weights()
	copied := 0
	for i, t := range fresh {
		src, ok := old.Get(t.Name)
		if !ok {
			continue
		}
		switch {
		case slices.Equal(src.Shape, t.Shape):
			copy(fresh[i].Data, src.Data)
			copied++
		case widened(src.Shape, t.Shape):
			rows, oldCols, newCols := t.Shape[0], src.Shape[1], t.Shape[1]
			for r := 0; r < rows; r++ {
				copy(fresh[i].Data[r*newCols:r*newCols+oldCols], src.Data[r*oldCols:(r+1)*oldCols])
			}
			copied++
			log.Info().Msgf("widened %s from %v to %v", t.Name, src.Shape, t.Shape)
		default:
			log.Warn().Msgf("keeping fresh %s: shape %v does not fit %v", t.Name, src.Shape, t.Shape)
		}
	}
	if copied == 0 {
		return nil, errors.New("no tensors in common")
	}
	return fresh, nil
}

func widened(from, to []int) bool {
	return len(from) == 2 && len(to) == 2 && from[0] == to[0] && from[1] < to[1]
}
