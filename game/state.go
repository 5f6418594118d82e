package game

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	Width       = 10
	Height      = 40
	HiddenRows  = 20
	QueueLength = 5
	BoardCells  = Width * Height

	SpawnX = 4
	SpawnY = HiddenRows
)

// ErrBoardSize is returned when a raw board blob does not hold exactly
// BoardCells little-endian int32 values.
var ErrBoardSize = errors.New("board blob has wrong element count")

// Board is indexed [row][column] with row 0 at the top. The first HiddenRows
// rows sit above the visible field. A cell is occupied iff it is non-zero.
type Board [Height][Width]uint8

// Occupied reports whether (x, y) is filled. Cells outside the field count as
// occupied.
func (b *Board) Occupied(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return true
	}
	return b[y][x] != 0
}

func (b *Board) Empty() bool {
	for y := range b {
		for x := range b[y] {
			if b[y][x] != 0 {
				return false
			}
		}
	}
	return true
}

// ColumnHeights returns the height of the highest filled cell per column.
func (b *Board) ColumnHeights() [Width]int {
	var heights [Width]int
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			if b[y][x] != 0 {
				heights[x] = Height - y
				break
			}
		}
	}
	return heights
}

// Holes counts empty cells covered by a filled cell in the same column.
func (b *Board) Holes() int {
	holes := 0
	for x := 0; x < Width; x++ {
		covered := false
		for y := 0; y < Height; y++ {
			if b[y][x] != 0 {
				covered = true
			} else if covered {
				holes++
			}
		}
	}
	return holes
}

// Bytes packs the board as BoardCells little-endian int32 values.
func (b *Board) Bytes() []byte {
	raw := make([]byte, BoardCells*4)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			binary.LittleEndian.PutUint32(raw[(y*Width+x)*4:], uint32(b[y][x]))
		}
	}
	return raw
}

// DecodeBoard unpacks a blob produced by Bytes or by the native engine.
func DecodeBoard(raw []byte) (Board, error) {
	var b Board
	if len(raw) != BoardCells*4 {
		return b, errors.Wrapf(ErrBoardSize, "got %d bytes, want %d", len(raw), BoardCells*4)
	}
	for i := 0; i < BoardCells; i++ {
		if v := int32(binary.LittleEndian.Uint32(raw[i*4:])); v != 0 {
			b[i/Width][i%Width] = 1
		}
	}
	return b, nil
}

// BoardFromRows converts a host grid. Hosts that only report the visible
// field send Height-HiddenRows rows, which are aligned to the bottom.
func BoardFromRows(rows [][]int) (Board, error) {
	var b Board
	if len(rows) != Height && len(rows) != Height-HiddenRows {
		return b, errors.Wrapf(ErrBoardSize, "got %d rows", len(rows))
	}
	offset := Height - len(rows)
	for y, row := range rows {
		if len(row) != Width {
			return b, errors.Wrapf(ErrBoardSize, "row %d has %d cells", y, len(row))
		}
		for x, v := range row {
			if v != 0 {
				b[y+offset][x] = 1
			}
		}
	}
	return b, nil
}

func (b *Board) Rows() [][]int {
	rows := make([][]int, Height)
	for y := range rows {
		rows[y] = make([]int, Width)
		for x := 0; x < Width; x++ {
			rows[y][x] = int(b[y][x])
		}
	}
	return rows
}

// Position is one side's game state at a point in time.
type Position struct {
	Board          Board
	Current        Piece
	Queue          []Piece
	Hold           Piece
	CanHold        bool
	PendingGarbage int
	// Combo is -1 when no combo is running.
	Combo int
	B2B   bool
	Over  bool
}

func NewPosition() Position {
	return Position{
		Current: NoPiece,
		Queue:   padQueue(nil, QueueLength),
		Hold:    NoPiece,
		CanHold: true,
		Combo:   -1,
	}
}

func (p Position) Clone() Position {
	p.Queue = append([]Piece(nil), p.Queue...)
	return p
}

// Upcoming returns [Current, Queue...] truncated or padded with NoPiece to n.
func (p Position) Upcoming(n int) []Piece {
	upcoming := make([]Piece, 0, n)
	upcoming = append(upcoming, p.Current)
	upcoming = append(upcoming, p.Queue...)
	return padQueue(upcoming, n)
}

func padQueue(queue []Piece, n int) []Piece {
	out := make([]Piece, n)
	for i := range out {
		if i < len(queue) {
			out[i] = queue[i]
		} else {
			out[i] = NoPiece
		}
	}
	return out
}
