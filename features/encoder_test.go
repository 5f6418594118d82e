package features

import (
	"testing"

	"obseris/game"

	"github.com/stretchr/testify/require"
)

var (
	dualLayout = Layout{Channels: 2, Features: true}
	holdLayout = Layout{Channels: 2, Features: true, Hold: true}
)

func testPositions() (game.Position, game.Position) {
	self := game.NewPosition()
	self.Current = game.T
	self.Queue = []game.Piece{game.Z, game.S, game.I, game.O, game.L}
	self.Hold = game.J
	self.PendingGarbage = 3
	self.Board[39][0] = 1

	opp := game.NewPosition()
	opp.Current = game.L
	opp.Queue = []game.Piece{game.J, game.NoPiece}
	opp.PendingGarbage = 5
	opp.Board[38][9] = 1
	return self, opp
}

func TestLayoutSizes(t *testing.T) {
	require.Equal(t, 0, Layout{Channels: 1}.FeatureSize(), "Single channel variant has no features")
	require.Equal(t, 72, dualLayout.FeatureSize())
	require.Equal(t, 79, holdLayout.FeatureSize())
	require.Equal(t, 800, dualLayout.BoardSize())
}

func TestEncodeSegments(t *testing.T) {
	self, opp := testPositions()
	in := NewEncoder(dualLayout).Encode(self, &opp)

	/*
		Expected layout:
		[0, 35)  self queue, 5 rows of 7: T, Z, S, I, O
		[35, 70) opponent queue: L, J, then empty rows
		70       own pending garbage
		71       opponent pending garbage
	*/
	want := make([]float64, 72)
	want[0*7+int(game.T)] = 1
	want[1*7+int(game.Z)] = 1
	want[2*7+int(game.S)] = 1
	want[3*7+int(game.I)] = 1
	want[4*7+int(game.O)] = 1
	want[35+0*7+int(game.L)] = 1
	want[35+1*7+int(game.J)] = 1
	want[70] = 3
	want[71] = 5

	require.Equal(t, want, in.Features)
}

func TestEncodeHold(t *testing.T) {
	self, opp := testPositions()
	in := NewEncoder(holdLayout).Encode(self, &opp)

	require.Len(t, in.Features, 79)
	hold := in.Features[holdLayout.HoldOffset():]
	require.Equal(t, []float64{0, 0, 0, 0, 0, 0, 1}, hold, "Held J should be the last one-hot slot")
}

func TestEncodeBoard(t *testing.T) {
	self, opp := testPositions()

	t.Run("two channels carry both boards", func(t *testing.T) {
		in := NewEncoder(dualLayout).Encode(self, &opp)
		require.Len(t, in.Board, 2*game.BoardCells)
		require.Equal(t, 1.0, in.Board[39*game.Width+0])
		require.Equal(t, 1.0, in.Board[game.BoardCells+38*game.Width+9])
		require.Equal(t, 2.0, sum(in.Board))
	})

	t.Run("missing opponent leaves its segments empty", func(t *testing.T) {
		in := NewEncoder(dualLayout).Encode(self, nil)
		require.Equal(t, 1.0, sum(in.Board))
		require.Equal(t, 0.0, sum(in.Features[dualLayout.OpponentQueueOffset():dualLayout.SelfGarbageOffset()]))
		require.Equal(t, 0.0, in.Features[dualLayout.OpponentGarbageOffset()])
	})

	t.Run("single channel ignores the opponent", func(t *testing.T) {
		in := NewEncoder(Layout{Channels: 1}).Encode(self, &opp)
		require.Len(t, in.Board, game.BoardCells)
		require.Empty(t, in.Features)
		require.Len(t, in.Flat(), game.BoardCells)
	})

	t.Run("encoding is reproducible", func(t *testing.T) {
		enc := NewEncoder(holdLayout)
		require.Equal(t, enc.Encode(self, &opp), enc.Encode(self, &opp))
	})
}

func TestDecode(t *testing.T) {
	self, opp := testPositions()
	enc := NewEncoder(dualLayout)
	encoded := enc.Encode(self, &opp)

	t.Run("valid blobs round trip", func(t *testing.T) {
		in, ok := enc.Decode(self.Board.Bytes(), opp.Board.Bytes(), encoded.Features)
		require.True(t, ok)
		require.Equal(t, encoded, in)
		require.Equal(t, int64(0), enc.Fallbacks())
	})

	t.Run("malformed blob falls back to zeros", func(t *testing.T) {
		in, ok := enc.Decode([]byte{1, 2, 3}, opp.Board.Bytes(), encoded.Features)
		require.False(t, ok, "Fallback must be reported")
		require.Equal(t, 0.0, sum(in.Board[:game.BoardCells]))
		require.Equal(t, int64(1), enc.Fallbacks())
	})

	t.Run("wrong feature length falls back to zeros", func(t *testing.T) {
		in, ok := enc.Decode(self.Board.Bytes(), opp.Board.Bytes(), []float64{1})
		require.False(t, ok)
		require.Equal(t, 0.0, sum(in.Features))
	})
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
