package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttack(t *testing.T) {
	cases := []struct {
		lines  int
		spin   Spin
		b2b    bool
		combo  int
		attack int
	}{
		{1, SpinNone, false, 0, 0},
		{2, SpinNone, false, 0, 1},
		{3, SpinNone, false, 0, 2},
		{4, SpinNone, false, 0, 4},
		{4, SpinNone, true, 0, 5},
		{1, SpinFull, false, 0, 2},
		{2, SpinFull, false, 0, 4},
		{3, SpinFull, true, 0, 7},
		{1, SpinMini, false, 0, 1},
		{2, SpinMini, false, 0, 2},
		{1, SpinNone, true, 0, 0},
		{1, SpinNone, false, 2, 1},
		{2, SpinNone, false, 11, 6},
		{2, SpinNone, false, 20, 6},
	}
	for _, c := range cases {
		name := fmt.Sprintf("%d lines spin=%s b2b=%t combo=%d", c.lines, c.spin, c.b2b, c.combo)
		t.Run(name, func(t *testing.T) {
			require.Equal(t, c.attack, Attack(c.lines, c.spin, c.b2b, c.combo))
		})
	}
}

func TestOffsetGarbage(t *testing.T) {
	t.Run("attack larger than pending is sent", func(t *testing.T) {
		sent, remaining := OffsetGarbage(5, 2)
		require.Equal(t, 3, sent)
		require.Equal(t, 0, remaining)
	})

	t.Run("attack smaller than pending only cancels", func(t *testing.T) {
		sent, remaining := OffsetGarbage(2, 5)
		require.Equal(t, 0, sent)
		require.Equal(t, 3, remaining)
	})

	t.Run("no attack leaves pending untouched", func(t *testing.T) {
		sent, remaining := OffsetGarbage(0, 4)
		require.Equal(t, 0, sent)
		require.Equal(t, 4, remaining)
	})
}

func TestScore(t *testing.T) {
	require.Equal(t, int64(800), Score(4, SpinNone), "Quad should score 800")
	require.Equal(t, int64(1200), Score(2, SpinFull), "T-spin double should score 1200")
	require.Equal(t, int64(400), Score(0, SpinFull), "T-spin without lines should score 400")
	require.Equal(t, int64(0), Score(0, SpinNone), "No clear should score nothing")
}
