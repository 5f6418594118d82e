package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestBag(t *testing.T) {
	bag := NewBag(rand.New(rand.NewSource(7)))
	for round := 0; round < 3; round++ {
		seen := map[Piece]bool{}
		for i := 0; i < NumPieces; i++ {
			seen[bag.Next()] = true
		}
		require.Len(t, seen, NumPieces, "Every bag should deal each piece once")
	}
	require.GreaterOrEqual(t, len(bag.Peek(10)), NumPieces, "Bag should keep a full bag buffered")
}

func TestTetrisReset(t *testing.T) {
	a := NewTetris(42)
	b := NewTetris(42)

	require.Equal(t, a.Position(), b.Position(), "Same seed should deal the same pieces")
	pos := a.Position()
	require.True(t, pos.Current.Valid())
	require.Len(t, pos.Queue, QueueLength)
	require.Equal(t, NoPiece, pos.Hold)
	require.True(t, pos.CanHold)
	require.Equal(t, -1, pos.Combo)
	require.False(t, a.Over())
}

func TestTetrisMoves(t *testing.T) {
	sim := NewTetris(3)
	moves, err := sim.Moves()
	require.NoError(t, err)
	require.NotEmpty(t, moves)

	holds := 0
	for _, m := range moves {
		if m.Command.UseHold {
			holds++
			require.True(t, m.Facts.UsedHold)
			require.False(t, m.Result.CanHold, "Hold should be locked for the next piece")
		}
	}
	require.Greater(t, holds, 0, "Hold moves should be offered while hold is available")
}

func TestTetrisExecute(t *testing.T) {
	t.Run("move results predict the executed position", func(t *testing.T) {
		sim := NewTetris(11)
		for i := 0; i < 10; i++ {
			moves, err := sim.Moves()
			require.NoError(t, err)
			move := moves[len(moves)-1]

			require.NoError(t, sim.Execute(move))
			got := sim.Position()
			require.Equal(t, move.Result.Current, got.Current)
			require.Equal(t, move.Result.Queue, got.Queue)
			require.Equal(t, move.Result.Hold, got.Hold)
			require.Equal(t, move.Result.CanHold, got.CanHold)
			require.Equal(t, move.Result.Board, got.Board)
		}
	})

	t.Run("hold with an empty slot takes the next piece", func(t *testing.T) {
		sim := NewTetris(5)
		before := sim.Position()
		moves, err := sim.Moves()
		require.NoError(t, err)

		var hold Candidate
		for _, m := range moves {
			if m.Command.UseHold {
				hold = m
				break
			}
		}
		require.Equal(t, before.Queue[0], hold.Piece)
		require.NoError(t, sim.Execute(hold))

		after := sim.Position()
		require.Equal(t, before.Current, after.Hold)
		require.Equal(t, before.Queue[1], after.Current)
		require.False(t, after.CanHold)
	})

	t.Run("pending garbage rises after placement", func(t *testing.T) {
		sim := NewTetris(9)
		sim.AddGarbage(3)
		moves, err := sim.Moves()
		require.NoError(t, err)
		require.NoError(t, sim.Execute(moves[0]))

		pos := sim.Position()
		require.Equal(t, 0, pos.PendingGarbage)
		hole := -1
		for y := Height - 3; y < Height; y++ {
			filled := 0
			for x := 0; x < Width; x++ {
				if pos.Board[y][x] != 0 {
					filled++
				} else {
					if hole >= 0 {
						require.Equal(t, hole, x, "Garbage lines share one hole column")
					}
					hole = x
				}
			}
			require.Equal(t, Width-1, filled, "Garbage lines should have a single hole")
		}
	})

	t.Run("garbage pushing blocks off the top ends the game", func(t *testing.T) {
		sim := NewTetris(9)
		pos := sim.Position()
		pos.Board[0][0] = 1
		sim.SetPosition(pos)
		sim.AddGarbage(1)

		moves, err := sim.Moves()
		require.NoError(t, err)
		require.NoError(t, sim.Execute(moves[0]))
		require.True(t, sim.Over())
		require.ErrorIs(t, sim.Execute(moves[0]), ErrGameOver)

		moves, err = sim.Moves()
		require.NoError(t, err)
		require.Empty(t, moves, "A finished game has no moves")
	})

	t.Run("executing a terminal candidate ends the game", func(t *testing.T) {
		sim := NewTetris(1)
		pos := sim.Position()
		for y := 10; y < Height; y++ {
			fillRow(&pos.Board, y, y%Width)
		}
		pos.CanHold = false
		sim.SetPosition(pos)

		moves, err := sim.Moves()
		require.NoError(t, err)
		require.Len(t, moves, 1)
		require.NoError(t, sim.Execute(moves[0]))
		require.True(t, sim.Over())
	})
}

func TestSuccessor(t *testing.T) {
	base := NewPosition()
	base.Current = T
	base.Queue = []Piece{Z, S, I, O, L}

	t.Run("plain move takes the queue head", func(t *testing.T) {
		next := Successor(base, Candidate{})
		require.Equal(t, Z, next.Current)
		require.Equal(t, []Piece{S, I, O, L, NoPiece}, next.Queue)
		require.Equal(t, NoPiece, next.Hold)
		require.True(t, next.CanHold)
	})

	t.Run("hold into an empty slot consumes two pieces", func(t *testing.T) {
		next := Successor(base, Candidate{}.WithHold())
		require.Equal(t, S, next.Current)
		require.Equal(t, []Piece{I, O, L, NoPiece, NoPiece}, next.Queue)
		require.Equal(t, T, next.Hold)
		require.False(t, next.CanHold)
	})

	t.Run("hold swap keeps the queue moving once", func(t *testing.T) {
		pos := base.Clone()
		pos.Hold = O
		next := Successor(pos, Candidate{}.WithHold())
		require.Equal(t, Z, next.Current)
		require.Equal(t, T, next.Hold)
		require.Equal(t, []Piece{S, I, O, L, NoPiece}, next.Queue)
	})

	t.Run("input queue is not modified", func(t *testing.T) {
		_ = Successor(base, Candidate{}.WithHold())
		require.Equal(t, []Piece{Z, S, I, O, L}, base.Queue)
	})
}

func TestBoardBytes(t *testing.T) {
	var b Board
	b[39][0] = 1
	b[20][9] = 1

	decoded, err := DecodeBoard(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, b, decoded)

	_, err = DecodeBoard(make([]byte, 12))
	require.ErrorIs(t, err, ErrBoardSize)
}
