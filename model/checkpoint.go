package model

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// Checkpoint is the on-disk form of one weight snapshot.
type Checkpoint struct {
	Variant    string  `json:"variant"`
	Generation int     `json:"generation"`
	Weights    Weights `json:"weights"`
}

// Save writes a checkpoint atomically: readers never observe a partial file.
func Save(path string, c Checkpoint) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode checkpoint")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create checkpoint directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return errors.Wrap(err, "failed to create checkpoint file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write checkpoint %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write checkpoint %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed to publish checkpoint %s", path)
}

// SaveNetwork snapshots n under path.
func SaveNetwork(path string, n *Network, generation int) error {
	return Save(path, Checkpoint{Variant: n.Variant().Name, Generation: generation, Weights: n.Weights()})
}

func Load(path string) (Checkpoint, error) {
	var c Checkpoint
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "failed to read checkpoint %s", path)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "failed to decode checkpoint %s", path)
	}
	return c, nil
}

// LoadNetwork restores the network stored at path in its own variant.
func LoadNetwork(path string) (*Network, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	v, err := VariantByName(c.Variant)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint %s", path)
	}
	n, err := FromWeights(v, c.Weights)
	return n, errors.Wrapf(err, "checkpoint %s", path)
}

// LoadOrFresh restores a network of variant v from path. Checkpoints of an
// older variant are migrated. Any failure is logged and answered with fresh
// weights so a run never aborts on a bad file.
func LoadOrFresh(path string, v Variant, rng *rand.Rand) *Network {
	if path == "" {
		return New(v, rng)
	}
	c, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Msg("using fresh weights")
		return New(v, rng)
	}

	w := c.Weights
	if c.Variant != v.Name {
		w, err = Migrate(c.Weights, v, rng)
		if err != nil {
			log.Warn().Err(err).Msgf("cannot migrate %s checkpoint %s to %s, using fresh weights", c.Variant, path, v.Name)
			return New(v, rng)
		}
	}
	n, err := FromWeights(v, w)
	if err != nil {
		log.Warn().Err(err).Msgf("checkpoint %s does not fit %s, using fresh weights", path, v.Name)
		return New(v, rng)
	}
	log.Info().Msgf("loaded %s checkpoint %s (generation %d)", c.Variant, path, c.Generation)
	return n
}
