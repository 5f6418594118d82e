package game

const (
	PerfectClearAttack = 10
	PerfectClearScore  = 3000
	// MaxGarbagePerPlacement caps the lines that rise after one placement.
	MaxGarbagePerPlacement = 10
)

var comboBonus = [...]int{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 4, 5}

// Attack returns the raw attack of a clear before garbage offsetting.
func Attack(lines int, spin Spin, b2b bool, combo int) int {
	attack := 0
	switch spin {
	case SpinFull:
		switch lines {
		case 1:
			attack = 2
		case 2:
			attack = 4
		case 3:
			attack = 6
		}
	case SpinMini:
		if lines == 2 {
			attack = 2
		} else {
			attack = 1
		}
	default:
		switch lines {
		case 2:
			attack = 1
		case 3:
			attack = 2
		case 4:
			attack = 4
		}
	}
	if b2b && attack > 0 {
		attack++
	}
	if combo >= 1 {
		if combo < len(comboBonus) {
			attack += comboBonus[combo]
		} else {
			attack += comboBonus[len(comboBonus)-1]
		}
	}
	return attack
}

// Score returns the base score of a clear.
func Score(lines int, spin Spin) int64 {
	switch spin {
	case SpinFull:
		switch lines {
		case 1:
			return 800
		case 2:
			return 1200
		case 3:
			return 1600
		default:
			return 400
		}
	case SpinMini:
		switch lines {
		case 1:
			return 200
		case 2:
			return 400
		default:
			return 100
		}
	default:
		switch lines {
		case 1:
			return 100
		case 2:
			return 300
		case 3:
			return 500
		case 4:
			return 800
		default:
			return 0
		}
	}
}

// OffsetGarbage cancels pending garbage with attack first and returns what
// is left to send and what is still pending.
func OffsetGarbage(attack, pending int) (sent, remaining int) {
	if attack <= 0 {
		return 0, pending
	}
	left := pending - attack
	if left < 0 {
		return -left, 0
	}
	return 0, left
}
