package engine

import "github.com/pkg/errors"

// FitnessWeights turns a match result into a scalar fitness.
type FitnessWeights struct {
	Win        float64 `yaml:"win"`
	Loss       float64 `yaml:"loss"`
	Steps      float64 `yaml:"steps"`
	Attack     float64 `yaml:"attack"`
	Efficiency float64 `yaml:"efficiency"` // per unit of attack per piece
	SoftDrop   float64 `yaml:"soft_drop"`  // penalty per soft-dropped piece
}

func DefaultFitness() FitnessWeights {
	return FitnessWeights{Win: 100, Loss: -100, Steps: 0.01, Attack: 0.2, Efficiency: 2.0, SoftDrop: 0.01}
}

// Validate rejects weights that reward losing or make surviving to maxSteps
// worth as much as a win. Fitness bounds the remaining shaping terms.
func (w FitnessWeights) Validate(maxSteps int) error {
	if w.Win <= 0 {
		return errors.Errorf("win reward must be positive, got %v", w.Win)
	}
	if w.Loss >= 0 {
		return errors.Errorf("loss reward must be negative, got %v", w.Loss)
	}
	if w.Steps < 0 || w.Attack < 0 || w.Efficiency < 0 || w.SoftDrop < 0 {
		return errors.New("shaping coefficients must not be negative")
	}
	if survival := w.Steps * float64(maxSteps); survival >= w.Win {
		return errors.Errorf("surviving %d steps is worth %v, not less than a win (%v)", maxSteps, survival, w.Win)
	}
	return nil
}

// ShapingLimit bounds the absolute shaping term so that any win scores above
// any draw and any draw above any loss.
func (w FitnessWeights) ShapingLimit() float64 {
	return min(w.Win, -w.Loss) / 3
}

// Fitness scores side's performance in r.
func (r Result) Fitness(side int, w FitnessWeights) float64 {
	s := r.Stats[side]
	shaping := w.Steps * float64(r.Steps)
	shaping += w.Attack * float64(s.Attack)
	if s.Pieces > 0 {
		shaping += w.Efficiency * float64(s.Attack) / float64(s.Pieces)
	}
	shaping -= w.SoftDrop * float64(s.SoftDrops)
	limit := w.ShapingLimit()
	fitness := max(-limit, min(limit, shaping))

	switch r.Outcomes[side] {
	case Win:
		fitness += w.Win
	case Loss:
		fitness += w.Loss
	}
	return fitness
}
