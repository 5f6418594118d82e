package game

import (
	"slices"

	"github.com/pkg/errors"
)

// StandardRules enumerates placements with SRS rotation, soft drop tucks and
// T-spin detection. It holds no state and is safe for concurrent use.
type StandardRules struct{}

func NewStandardRules() *StandardRules {
	return &StandardRules{}
}

type pieceState struct {
	x, y, rot int
	grounded  bool
}

type landingKey struct {
	cells [4]cell
	spin  Spin
}

// Enumerate runs a breadth-first search over (x, y, rotation, grounded)
// states from the spawn point. Every grounded state and every hard-drop
// landing of an airborne state yields a candidate; duplicates with the same
// cells and spin class keep the shortest path.
func (r *StandardRules) Enumerate(pos Position, piece Piece) ([]Candidate, error) {
	if !piece.Valid() {
		return nil, errors.Wrapf(errNoPiece, "piece %d", piece)
	}
	board := &pos.Board

	start := pieceState{x: SpawnX, y: SpawnY}
	if !fits(board, piece, 0, start.x, start.y) {
		start.y--
		if !fits(board, piece, 0, start.x, start.y) {
			return []Candidate{blockedSpawn(pos, piece)}, nil
		}
	}

	parent := map[pieceState]pieceState{}
	action := map[pieceState]string{start: ""}
	seen := map[landingKey]bool{}
	queue := []pieceState{start}
	var candidates []Candidate

	emit := func(from pieceState, x, y int, last string) {
		c := land(pos, piece, x, y, from.rot, last)
		key := landingKey{cells: placedCells(piece, from.rot, x, y), spin: c.Facts.Spin}
		if seen[key] {
			return
		}
		seen[key] = true
		path := tracePath(from, start, parent, action)
		c.Facts.UsedSoftDrop = slices.Contains(path, ActionSoftDrop)
		path = append(path, ActionHardDrop)
		c.Command = Command{Path: path, X: x, Rot: from.rot}
		candidates = append(candidates, c)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.grounded {
			emit(cur, cur.x, cur.y, action[cur])
		} else {
			y := dropY(board, piece, cur.rot, cur.x, cur.y)
			emit(cur, cur.x, y, ActionHardDrop)
		}

		for _, a := range searchActions {
			if cur.grounded && a == ActionSoftDrop {
				continue
			}
			next, ok := step(board, piece, cur, a)
			if !ok {
				continue
			}
			next.grounded = !fits(board, piece, next.rot, next.x, next.y+1)
			if _, visited := action[next]; visited {
				continue
			}
			parent[next] = cur
			action[next] = a
			queue = append(queue, next)
		}
	}
	return candidates, nil
}

func step(board *Board, piece Piece, s pieceState, action string) (pieceState, bool) {
	switch action {
	case ActionMoveLeft:
		s.x--
	case ActionMoveRight:
		s.x++
	case ActionSoftDrop:
		s.y++
	case ActionRotateLeft, ActionRotateRight:
		return rotate(board, piece, s, action == ActionRotateRight)
	}
	return s, fits(board, piece, s.rot, s.x, s.y)
}

func rotate(board *Board, piece Piece, s pieceState, clockwise bool) (pieceState, bool) {
	if piece == O {
		return s, true
	}
	next := (s.rot + 1) % 4
	if !clockwise {
		next = (s.rot + 3) % 4
	}
	for _, k := range kickTests(piece, s.rot, next) {
		if fits(board, piece, next, s.x+k.dx, s.y+k.dy) {
			return pieceState{x: s.x + k.dx, y: s.y + k.dy, rot: next, grounded: s.grounded}, true
		}
	}
	return s, false
}

func tracePath(s, start pieceState, parent map[pieceState]pieceState, action map[pieceState]string) []string {
	var path []string
	for s != start {
		path = append(path, action[s])
		s = parent[s]
	}
	slices.Reverse(path)
	return path
}

func fits(board *Board, piece Piece, rot, x, y int) bool {
	for _, c := range shapes[piece][rot] {
		if board.Occupied(x+c.dx, y+c.dy) {
			return false
		}
	}
	return true
}

func dropY(board *Board, piece Piece, rot, x, y int) int {
	for fits(board, piece, rot, x, y+1) {
		y++
	}
	return y
}

func placedCells(piece Piece, rot, x, y int) [4]cell {
	var cells [4]cell
	for i, c := range shapes[piece][rot] {
		cells[i] = cell{x + c.dx, y + c.dy}
	}
	slices.SortFunc(cells[:], func(a, b cell) int {
		if a.dy != b.dy {
			return a.dy - b.dy
		}
		return a.dx - b.dx
	})
	return cells
}

func blockedSpawn(pos Position, piece Piece) Candidate {
	result := pos.Clone()
	result.Over = true
	return Candidate{
		Piece:   piece,
		X:       SpawnX,
		Y:       SpawnY,
		Command: FallbackCommand(),
		Facts:   Facts{GameOver: true, Combo: pos.Combo, PendingGarbage: pos.PendingGarbage, B2B: pos.B2B},
		Result:  result,
	}
}

// land places piece at its final spot and evaluates the consequences.
func land(pos Position, piece Piece, x, y, rot int, last string) Candidate {
	c := Candidate{Piece: piece, X: x, Y: y, Rot: rot, Result: pos.Clone()}

	if lockedOut(piece, rot, y) {
		c.Facts = Facts{GameOver: true, Combo: pos.Combo, PendingGarbage: pos.PendingGarbage, B2B: pos.B2B}
		c.Result.Over = true
		return c
	}

	board := pos.Board
	for _, cl := range shapes[piece][rot] {
		board[y+cl.dy][x+cl.dx] = 1
	}
	spin := detectSpin(&board, piece, x, y, rot, last)
	board, lines := clearLines(board)

	f := Facts{LinesCleared: lines, Spin: spin}
	difficult := spin != SpinNone || lines == 4
	if lines > 0 {
		f.Combo = pos.Combo + 1
		b2b := pos.B2B && difficult
		f.Attack, f.PendingGarbage = OffsetGarbage(Attack(lines, spin, b2b, f.Combo), pos.PendingGarbage)

		score := Score(lines, spin)
		if b2b {
			score = score * 3 / 2
		}
		if f.Combo > 0 {
			score += 50 * int64(f.Combo)
		}
		f.B2B = difficult
		if board.Empty() {
			f.Attack += PerfectClearAttack
			score += PerfectClearScore
		}
		f.ScoreDelta = score
	} else {
		f.Combo = -1
		f.B2B = pos.B2B
		f.PendingGarbage = pos.PendingGarbage
	}

	c.Facts = f
	c.Result.Board = board
	c.Result.Combo = f.Combo
	c.Result.B2B = f.B2B
	c.Result.PendingGarbage = f.PendingGarbage
	return c
}

// lockedOut reports whether every block would rest in the hidden rows.
func lockedOut(piece Piece, rot, y int) bool {
	for _, c := range shapes[piece][rot] {
		if y+c.dy >= HiddenRows {
			return false
		}
	}
	return true
}

func detectSpin(board *Board, piece Piece, x, y, rot int, last string) Spin {
	if piece != T || !isRotation(last) {
		return SpinNone
	}
	corners := 0
	for _, c := range tCorners {
		if board.Occupied(x+c.dx, y+c.dy) {
			corners++
		}
	}
	if corners < 3 {
		return SpinNone
	}
	front := 0
	for _, c := range tFront[rot] {
		if board.Occupied(x+c.dx, y+c.dy) {
			front++
		}
	}
	if front == 2 {
		return SpinFull
	}
	return SpinMini
}

func clearLines(board Board) (Board, int) {
	var cleared Board
	lines := 0
	row := Height - 1
	for y := Height - 1; y >= 0; y-- {
		full := true
		for x := 0; x < Width; x++ {
			if board[y][x] == 0 {
				full = false
				break
			}
		}
		if full {
			lines++
			continue
		}
		cleared[row] = board[y]
		row--
	}
	return cleared, lines
}
