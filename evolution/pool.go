package evolution

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"obseris/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// Handle points at one stored opponent snapshot.
type Handle struct {
	Generation int
	Path       string
}

// Store persists opponent snapshots. Stored files are never modified.
type Store interface {
	Save(generation int, n *model.Network) (Handle, error)
	Remove(h Handle) error
	List() ([]Handle, error)
}

// FileStore keeps one opponent_gen_N.json checkpoint per snapshot in Dir.
type FileStore struct {
	Dir string
}

var opponentFile = regexp.MustCompile(`^opponent_gen_(\d+)\.json$`)

func (s FileStore) path(generation int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("opponent_gen_%d.json", generation))
}

func (s FileStore) Save(generation int, n *model.Network) (Handle, error) {
	h := Handle{Generation: generation, Path: s.path(generation)}
	return h, model.SaveNetwork(h.Path, n, generation)
}

func (s FileStore) Remove(h Handle) error {
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove opponent %s", h.Path)
	}
	return nil
}

// List returns the stored snapshots, oldest generation first.
func (s FileStore) List() ([]Handle, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list opponent pool %s", s.Dir)
	}
	var handles []Handle
	for _, e := range entries {
		m := opponentFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		gen, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		handles = append(handles, Handle{Generation: gen, Path: filepath.Join(s.Dir, e.Name())})
	}
	slices.SortFunc(handles, func(a, b Handle) int { return a.Generation - b.Generation })
	return handles, nil
}

// Pool is a bounded ring of opponents: adding beyond capacity evicts the
// oldest snapshot and deletes it from the store.
type Pool struct {
	capacity int
	store    Store
	handles  []Handle
}

func NewPool(capacity int, store Store) *Pool {
	if capacity < 1 {
		panic("Pool capacity must be positive")
	}
	return &Pool{capacity: capacity, store: store}
}

// Restore loads the snapshots already in the store, evicting the oldest
// ones beyond capacity.
func (p *Pool) Restore() error {
	handles, err := p.store.List()
	if err != nil {
		return err
	}
	p.handles = handles
	if err := p.evict(); err != nil {
		return err
	}
	log.Info().Msgf("restored %d opponents", len(p.handles))
	return nil
}

// Add stores n as the opponent of the given generation.
func (p *Pool) Add(generation int, n *model.Network) error {
	h, err := p.store.Save(generation, n)
	if err != nil {
		return errors.Wrapf(err, "failed to add generation %d to the pool", generation)
	}
	p.handles = append(p.handles, h)
	return p.evict()
}

func (p *Pool) evict() error {
	for len(p.handles) > p.capacity {
		oldest := p.handles[0]
		p.handles = p.handles[1:]
		if err := p.store.Remove(oldest); err != nil {
			return err
		}
		log.Debug().Msgf("evicted opponent of generation %d", oldest.Generation)
	}
	return nil
}

func (p *Pool) Len() int {
	return len(p.handles)
}

func (p *Pool) Cap() int {
	return p.capacity
}

// Handles returns the pool contents, oldest first.
func (p *Pool) Handles() []Handle {
	return slices.Clone(p.handles)
}

// Sample picks an opponent uniformly. It reports false when the pool is empty.
func (p *Pool) Sample(rng *rand.Rand) (Handle, bool) {
	if len(p.handles) == 0 {
		return Handle{}, false
	}
	return p.handles[rng.Intn(len(p.handles))], true
}
