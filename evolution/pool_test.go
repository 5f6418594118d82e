package evolution

import (
	"os"
	"path/filepath"
	"testing"

	"obseris/model"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestPool(t *testing.T) {
	net := model.Seeded(model.V1, 1)

	t.Run("keeps the newest snapshots within capacity", func(t *testing.T) {
		store := FileStore{Dir: t.TempDir()}
		pool := NewPool(3, store)
		var added []Handle
		for gen := 0; gen < 5; gen++ {
			require.NoError(t, pool.Add(gen, net))
			require.LessOrEqual(t, pool.Len(), pool.Cap())
			added = append(added, Handle{Generation: gen, Path: store.path(gen)})
		}

		handles := pool.Handles()
		require.Len(t, handles, 3)
		require.Equal(t, []int{2, 3, 4}, []int{handles[0].Generation, handles[1].Generation, handles[2].Generation})
		for _, h := range added[:2] {
			_, err := os.Stat(h.Path)
			require.True(t, os.IsNotExist(err), "%s should be deleted on eviction", h.Path)
		}
		for _, h := range handles {
			require.FileExists(t, h.Path)
		}
	})

	t.Run("restores from the store oldest first", func(t *testing.T) {
		store := FileStore{Dir: t.TempDir()}
		for _, gen := range []int{12, 3, 7, 10} {
			_, err := store.Save(gen, net)
			require.NoError(t, err)
		}
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "notes.txt"), []byte("x"), 0644))

		pool := NewPool(3, store)
		require.NoError(t, pool.Restore())
		handles := pool.Handles()
		require.Len(t, handles, 3)
		require.Equal(t, 7, handles[0].Generation)
		require.Equal(t, 12, handles[2].Generation)
		require.NoFileExists(t, store.path(3))
	})

	t.Run("sampling an empty pool reports false", func(t *testing.T) {
		pool := NewPool(2, FileStore{Dir: filepath.Join(t.TempDir(), "missing")})
		require.NoError(t, pool.Restore(), "A missing directory is an empty pool")
		_, ok := pool.Sample(rand.New(rand.NewSource(1)))
		require.False(t, ok)

		require.NoError(t, pool.Add(1, net))
		h, ok := pool.Sample(rand.New(rand.NewSource(1)))
		require.True(t, ok)
		require.Equal(t, 1, h.Generation)
	})

	t.Run("zero capacity panics", func(t *testing.T) {
		require.Panics(t, func() { NewPool(0, FileStore{}) })
	})
}
