package config

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"time"

	"obseris/communication"
	"obseris/engine"
	"obseris/evolution"
	"obseris/meta"
	"obseris/searcher"
	"obseris/td"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Modes selectable on the command line.
const (
	ModeGA         = "ga"
	ModeTD         = "td"
	ModeHost       = "host"
	ModeArena      = "arena"
	ModeThroughput = "throughput"
)

var Modes = []string{ModeGA, ModeTD, ModeHost, ModeArena, ModeThroughput}

// Config holds one section per mode. Sections of other modes are loaded but
// not validated.
type Config struct {
	Evolution  evolution.Config `yaml:"evolution"`
	TD         td.Config        `yaml:"td"`
	Host       Host             `yaml:"host"`
	Arena      Arena            `yaml:"arena"`
	Throughput Throughput       `yaml:"throughput"`
}

// Search configures the beam used by an agent.
type Search struct {
	BeamWidth int `yaml:"beam_width"`
	Depth     int `yaml:"depth"`
	Workers   int `yaml:"workers"`
}

func (s Search) validate() error {
	if s.BeamWidth < 1 || s.Depth < 1 || s.Workers < 1 {
		return errors.Errorf("beam width, depth and workers must be positive, got %d, %d, %d", s.BeamWidth, s.Depth, s.Workers)
	}
	return nil
}

type Host struct {
	// Command launches the host, e.g. [java, -cp, game.jar, TrainingEnvironment].
	Command     []string                  `yaml:"command"`
	Granularity communication.Granularity `yaml:"granularity"`
	Timeout     time.Duration             `yaml:"timeout"`
	Games       int                       `yaml:"games"`
	MaxPieces   int                       `yaml:"max_pieces"`
	// Checkpoint is the model to play; empty plays the surface heuristic.
	Checkpoint string `yaml:"checkpoint"`
	Search     Search `yaml:"search"`
}

type Arena struct {
	// Entrants are checkpoint paths or heuristic names.
	Entrants []string `yaml:"entrants"`
	Games    int      `yaml:"games"`
	MaxSteps int      `yaml:"max_steps"`
	Seed     uint64   `yaml:"seed"`
	Dir      string   `yaml:"dir"`
	Search   Search   `yaml:"search"`
}

type Throughput struct {
	Workers    []int  `yaml:"workers"`
	Searches   int    `yaml:"searches"`
	Checkpoint string `yaml:"checkpoint"`
	Seed       uint64 `yaml:"seed"`
	Dir        string `yaml:"dir"`
	BeamWidth  int    `yaml:"beam_width"`
	Depth      int    `yaml:"depth"`
}

func Default() Config {
	search := Search{BeamWidth: searcher.BeamWidth, Depth: searcher.Depth, Workers: runtime.NumCPU()}
	return Config{
		Evolution: evolution.DefaultConfig(),
		TD:        td.DefaultConfig(),
		Host: Host{
			Granularity: communication.GranularityPath,
			Timeout:     10 * time.Second,
			Games:       1,
			MaxPieces:   meta.MaxHostPieces,
			Search:      search,
		},
		Arena: Arena{
			Entrants: []string{meta.SurfaceHeuristic, meta.AggressiveHeuristic},
			Games:    meta.ArenaGames,
			MaxSteps: engine.MaxSteps,
			Search:   search,
		},
		Throughput: Throughput{
			Workers:   []int{1, 2, 4, 8, 16},
			Searches:  100,
			BeamWidth: searcher.BeamWidth,
			Depth:     searcher.Depth,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// Validate checks the section used by mode.
func (c Config) Validate(mode string) error {
	switch mode {
	case ModeGA:
		return errors.Wrap(c.Evolution.Validate(), "evolution")
	case ModeTD:
		return errors.Wrap(c.TD.Validate(), "td")
	case ModeHost:
		return errors.Wrap(c.Host.validate(), "host")
	case ModeArena:
		return errors.Wrap(c.Arena.validate(), "arena")
	case ModeThroughput:
		return errors.Wrap(c.Throughput.validate(), "throughput")
	}
	return errors.Errorf("unknown mode %q, want one of %v", mode, Modes)
}

func (h Host) validate() error {
	switch {
	case len(h.Command) == 0:
		return errors.New("command must name the host executable")
	case !h.Granularity.Valid():
		return errors.Errorf("unknown granularity %q", h.Granularity)
	case h.Timeout < 0:
		return errors.Errorf("timeout must not be negative, got %s", h.Timeout)
	case h.Games < 1 || h.MaxPieces < 1:
		return errors.New("games and max pieces must be positive")
	}
	return h.Search.validate()
}

func (a Arena) validate() error {
	switch {
	case len(a.Entrants) < 2:
		return errors.Errorf("need at least two entrants, got %d", len(a.Entrants))
	case a.Games < 1 || a.MaxSteps < 1:
		return errors.New("games and max steps must be positive")
	}
	return a.Search.validate()
}

func (t Throughput) validate() error {
	switch {
	case len(t.Workers) == 0:
		return errors.New("need at least one worker count")
	case t.Searches < 1 || t.BeamWidth < 1 || t.Depth < 1:
		return errors.New("searches, beam width and depth must be positive")
	}
	for _, w := range t.Workers {
		if w < 1 {
			return errors.Errorf("worker counts must be positive, got %d", w)
		}
	}
	return nil
}
