package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"obseris/communication"
	"obseris/config"
	"obseris/evolution"
	"obseris/experiments"
	"obseris/gamemaster"
	"obseris/meta"
	"obseris/searcher"
	"obseris/searcher/agent"
	"obseris/td"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	mode := flag.String("mode", config.ModeGA, "One of "+strings.Join(config.Modes, ", "))
	path := flag.String("config", "", "YAML config file (default "+meta.DefaultConfigPath+" if present)")
	level := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	seed := flag.Uint64("seed", 0, "Overrides every configured seed when non-zero")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("app", meta.Name).Logger()
	lvl, err := zerolog.ParseLevel(*level)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(lvl)

	cfg, err := loadConfig(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *seed != 0 {
		cfg.Evolution.Seed = *seed
		cfg.TD.Seed = *seed
		cfg.Arena.Seed = *seed
		cfg.Throughput.Seed = *seed
	}
	if err := cfg.Validate(*mode); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *mode, cfg); err != nil {
		log.Fatal().Err(err).Msgf("%s failed", *mode)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat(meta.DefaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = meta.DefaultConfigPath
	}
	return config.Load(path)
}

func run(ctx context.Context, mode string, cfg config.Config) error {
	switch mode {
	case config.ModeGA:
		e, err := evolution.New(cfg.Evolution)
		if err != nil {
			return err
		}
		best, err := e.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().Msgf("best fitness %.2f", best.Fitness)
	case config.ModeTD:
		t, err := td.NewTrainer(cfg.TD)
		if err != nil {
			return err
		}
		return t.Run(ctx)
	case config.ModeHost:
		return playHost(ctx, cfg.Host)
	case config.ModeArena:
		a := cfg.Arena
		e := experiments.Experiment{Name: "arena", Dir: a.Dir, Games: a.Games, MaxSteps: a.MaxSteps, Seed: a.Seed}
		_, err := e.Arena(ctx, experiments.Entrants(a.Entrants, a.Search.Workers, a.Search.BeamWidth, a.Search.Depth))
		return err
	case config.ModeThroughput:
		tp := cfg.Throughput
		name := tp.Checkpoint
		if name == "" {
			name = meta.SurfaceHeuristic
		}
		scoring, err := experiments.Scoring(name)
		if err != nil {
			return err
		}
		e := experiments.Experiment{Name: "throughput", Dir: tp.Dir, Seed: tp.Seed}
		_, err = e.Throughput(ctx, scoring, tp.Workers, tp.Searches, tp.BeamWidth, tp.Depth)
		return err
	default:
		return errors.Errorf("unknown mode %q", mode)
	}
	return nil
}

// playHost plays solo games inside a host process, one process per run.
func playHost(ctx context.Context, h config.Host) error {
	name := h.Checkpoint
	if name == "" {
		name = meta.SurfaceHeuristic
	}
	scoring, err := experiments.Scoring(name)
	if err != nil {
		return err
	}
	beam := searcher.NewBeam(
		searcher.WithBeamWidth(h.Search.BeamWidth),
		searcher.WithDepth(h.Search.Depth),
		searcher.WithWorkers(h.Search.Workers),
	)
	a := agent.NewEvaluationAgent(beam, scoring)

	process := communication.NewProcess(h.Timeout, h.Command[0], h.Command[1:]...)
	defer process.Close()
	remote := gamemaster.NewRemote(process, gamemaster.WithGranularity(h.Granularity), gamemaster.WithTimeout(h.Timeout))

	for i := 0; i < h.Games; i++ {
		sum, err := gamemaster.NewSession(remote, a, h.MaxPieces).Run(ctx)
		if err != nil {
			return errors.Wrapf(err, "host game %d failed", i+1)
		}
		log.Info().Msgf("host game %d of %d: %d pieces, %d lines, %d attack, score %d, game over %t in %s",
			i+1, h.Games, sum.Pieces, sum.Lines, sum.Attack, sum.Score, sum.GameOver, sum.Duration)
	}
	return nil
}
