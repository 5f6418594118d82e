package gamemaster

import (
	"context"
	"time"

	"obseris/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Summary describes one solo game played inside a host.
type Summary struct {
	Pieces   int
	Lines    int
	Attack   int
	Holds    int
	Score    int64
	GameOver bool
	Duration time.Duration
}

// Session lets one agent play alone inside a host until the game ends or
// maxPieces pieces were placed.
type Session struct {
	remote    *Remote
	agent     agent.Agent
	maxPieces int
}

func NewSession(remote *Remote, a agent.Agent, maxPieces int) *Session {
	if maxPieces < 1 {
		panic("Must allow at least one piece")
	}
	return &Session{remote: remote, agent: a, maxPieces: maxPieces}
}

func (s *Session) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary
	finish := func() Summary {
		sum.GameOver = s.remote.Over()
		sum.Score = s.remote.Score()
		sum.Duration = time.Since(start)
		return sum
	}

	s.remote.Reset()
	if err := s.remote.Err(); err != nil {
		return finish(), err
	}
	for sum.Pieces < s.maxPieces && !s.remote.Over() {
		if err := ctx.Err(); err != nil {
			return finish(), errors.Wrapf(err, "session interrupted after %d pieces", sum.Pieces)
		}
		moves, err := s.remote.Moves()
		if err != nil {
			return finish(), err
		}
		if len(moves) == 0 {
			break
		}
		choice, err := s.agent.FindMove(ctx, agent.View{
			Self:       s.remote.Position(),
			Candidates: moves,
			Enumerator: s.remote,
		})
		if err != nil {
			return finish(), errors.Wrap(err, "failed to find move")
		}
		if choice.Index < 0 {
			break
		}
		cand := moves[choice.Index]
		if err := s.remote.Execute(cand); err != nil {
			return finish(), err
		}

		sum.Pieces++
		sum.Lines += cand.Facts.LinesCleared
		sum.Attack += cand.Facts.Attack
		if cand.Command.UseHold {
			sum.Holds++
		}
	}

	sum = finish()
	log.Info().Msgf("host session: %d pieces, %d lines, %d attack, score %d, game over %v in %s",
		sum.Pieces, sum.Lines, sum.Attack, sum.Score, sum.GameOver, sum.Duration)
	return sum, nil
}
