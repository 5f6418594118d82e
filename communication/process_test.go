package communication

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string) *Process {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	p := NewProcess(5*time.Second, sh, "-c", script)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("answers each command with a snapshot", func(t *testing.T) {
		p := shell(t, `echo JAVA_PROCESS_STARTED
echo '{"board":[],"currentMino":"TShape","isGameOver":false}'
while read line; do echo '{"board":[],"currentMino":"SShape","isGameOver":true}'; done`)

		snap, err := p.Reset(ctx)
		require.NoError(t, err)
		require.False(t, snap.IsGameOver)

		snap, err = p.Step(ctx, Command{Path: []string{"HARD_DROP"}})
		require.NoError(t, err)
		require.True(t, snap.IsGameOver)

		t.Run("reset starts over", func(t *testing.T) {
			snap, err := p.Reset(ctx)
			require.NoError(t, err)
			require.False(t, snap.IsGameOver)
		})
	})

	t.Run("host exit surfaces as closed", func(t *testing.T) {
		p := shell(t, `echo '{"board":[],"isGameOver":false}'
echo 'boom' >&2
exit 3`)

		_, err := p.Reset(ctx)
		require.NoError(t, err)
		_, err = p.Step(ctx, Command{Path: []string{"HARD_DROP"}})
		require.ErrorIs(t, err, ErrHostClosed)
	})

	t.Run("step before start fails", func(t *testing.T) {
		_, err := NewProcess(0, "unused").Step(ctx, Command{})
		require.ErrorIs(t, err, ErrHostClosed)
	})
}
