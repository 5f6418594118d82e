package game

type cell struct{ dx, dy int }

// shapes holds block offsets per piece and rotation, relative to the piece
// origin. dy grows downwards.
var shapes = [NumPieces][4][4]cell{
	T: {
		{{-1, 0}, {0, 0}, {1, 0}, {0, -1}}, {{0, -1}, {0, 0}, {0, 1}, {1, 0}},
		{{-1, 0}, {0, 0}, {1, 0}, {0, 1}}, {{0, -1}, {0, 0}, {0, 1}, {-1, 0}},
	},
	Z: {
		{{-1, -1}, {0, -1}, {0, 0}, {1, 0}}, {{1, -1}, {1, 0}, {0, 0}, {0, 1}},
		{{-1, 0}, {0, 0}, {0, 1}, {1, 1}}, {{-1, 1}, {-1, 0}, {0, 0}, {0, -1}},
	},
	S: {
		{{-1, 0}, {0, 0}, {0, -1}, {1, -1}}, {{0, -1}, {0, 0}, {1, 0}, {1, 1}},
		{{-1, 1}, {0, 1}, {0, 0}, {1, 0}}, {{-1, -1}, {-1, 0}, {0, 0}, {0, 1}},
	},
	I: {
		{{-1, 0}, {0, 0}, {1, 0}, {2, 0}}, {{1, -1}, {1, 0}, {1, 1}, {1, 2}},
		{{-1, 1}, {0, 1}, {1, 1}, {2, 1}}, {{0, -1}, {0, 0}, {0, 1}, {0, 2}},
	},
	O: {
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	},
	L: {
		{{-1, 0}, {0, 0}, {1, 0}, {1, -1}}, {{0, -1}, {0, 0}, {0, 1}, {1, 1}},
		{{-1, 1}, {-1, 0}, {0, 0}, {1, 0}}, {{-1, -1}, {0, -1}, {0, 0}, {0, 1}},
	},
	J: {
		{{-1, -1}, {-1, 0}, {0, 0}, {1, 0}}, {{1, -1}, {0, -1}, {0, 0}, {0, 1}},
		{{-1, 0}, {0, 0}, {1, 0}, {1, 1}}, {{-1, 1}, {0, 1}, {0, 0}, {0, -1}},
	},
}

// Wall kick tests indexed by transition: 0->1, 1->0, 1->2, 2->1, 2->3, 3->2,
// 3->0, 0->3.
var kicksJLSTZ = [8][5]cell{
	{{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
}

var kicksI = [8][5]cell{
	{{0, 0}, {-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{{0, 0}, {2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{{0, 0}, {-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
	{{0, 0}, {1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{{0, 0}, {2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{{0, 0}, {-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{{0, 0}, {1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{{0, 0}, {-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
}

var noKick = []cell{{0, 0}}

func kickTests(p Piece, from, to int) []cell {
	idx := -1
	switch {
	case from == 0 && to == 1:
		idx = 0
	case from == 1 && to == 0:
		idx = 1
	case from == 1 && to == 2:
		idx = 2
	case from == 2 && to == 1:
		idx = 3
	case from == 2 && to == 3:
		idx = 4
	case from == 3 && to == 2:
		idx = 5
	case from == 3 && to == 0:
		idx = 6
	case from == 0 && to == 3:
		idx = 7
	}
	if idx < 0 {
		return noKick
	}
	if p == I {
		return kicksI[idx][:]
	}
	return kicksJLSTZ[idx][:]
}

// tCorners are the diagonal neighbours of the T centre; tFront lists the two
// corners on the pointing side per rotation.
var (
	tCorners = [4]cell{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	tFront   = [4][2]cell{
		{{-1, -1}, {1, -1}},
		{{1, -1}, {1, 1}},
		{{-1, 1}, {1, 1}},
		{{-1, -1}, {-1, 1}},
	}
)
