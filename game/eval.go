package game

// Evaluate scores a position for the side to move; higher is better.
type Evaluate func(Position) float64

// EvaluateSurface penalizes tall, holey and bumpy boards and any garbage
// still waiting to rise. It serves as a model-free baseline evaluator.
func EvaluateSurface(pos Position) float64 {
	if pos.Over {
		return -1e6
	}
	heights := pos.Board.ColumnHeights()

	aggregate, bumpiness := 0, 0
	for x, h := range heights {
		aggregate += h
		if x > 0 {
			bumpiness += abs(h - heights[x-1])
		}
	}
	holes := pos.Board.Holes()

	return -0.51*float64(aggregate) - 0.36*float64(holes) - 0.18*float64(bumpiness) - 0.5*float64(pos.PendingGarbage)
}

// EvaluateAggressive adds a bonus for a running combo and back-to-back state
// on top of EvaluateSurface.
func EvaluateAggressive(pos Position) float64 {
	score := EvaluateSurface(pos)
	if pos.Combo > 0 {
		score += 0.8 * float64(pos.Combo)
	}
	if pos.B2B {
		score += 1.5
	}
	return score
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
