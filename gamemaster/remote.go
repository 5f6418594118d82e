package gamemaster

import (
	"context"
	"time"

	"obseris/communication"
	"obseris/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Host is a game process reached over the line protocol.
type Host interface {
	// Reset restarts the game and returns the initial snapshot
	Reset(ctx context.Context) (communication.Snapshot, error)
	// Step sends one command and returns the resulting snapshot
	Step(ctx context.Context, cmd communication.Command) (communication.Snapshot, error)
}

type Option func(r *Remote)

func WithGranularity(g communication.Granularity) Option {
	return func(r *Remote) {
		r.granularity = g
	}
}

// WithTimeout bounds every host call. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(r *Remote) {
		r.timeout = d
	}
}

// Remote is a simulator whose moves are executed by a host. Candidates are
// enumerated locally with the standard rules; the host's snapshot after each
// command replaces the local position. Garbage is counted locally because
// the protocol has no command for it: pending lines cancel against attack
// and are consumed up to game.MaxGarbagePerPlacement per placement, but never
// rise on the host's board.
type Remote struct {
	*game.StandardRules
	host        Host
	granularity communication.Granularity
	timeout     time.Duration

	pos   game.Position
	score int64
	err   error
}

func NewRemote(host Host, options ...Option) *Remote {
	r := &Remote{
		StandardRules: game.NewStandardRules(),
		host:          host,
		granularity:   communication.GranularityPath,
		pos:           game.NewPosition(),
	}
	for _, option := range options {
		option(r)
	}
	if !r.granularity.Valid() {
		panic("unknown command granularity " + string(r.granularity))
	}
	r.pos.Over = true
	return r
}

func (r *Remote) call() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(context.Background(), r.timeout)
	}
	return context.WithCancel(context.Background())
}

// Reset restarts the host game. A failure leaves the simulator over with Err
// set.
func (r *Remote) Reset() {
	ctx, cancel := r.call()
	defer cancel()

	r.err = nil
	r.score = 0
	snap, err := r.host.Reset(ctx)
	if err == nil {
		err = r.load(snap, 0)
	}
	if err != nil {
		r.broken(errors.Wrap(err, "failed to reset host"))
	}
}

func (r *Remote) load(snap communication.Snapshot, pending int) error {
	pos, err := snap.Position()
	if err != nil {
		return err
	}
	pos.PendingGarbage = pending
	r.pos = pos
	r.score = snap.Score
	return nil
}

func (r *Remote) broken(err error) {
	r.err = err
	r.pos.Over = true
	log.Error().Err(err).Msg("host connection lost")
}

// Err returns the host failure that ended the game, if any.
func (r *Remote) Err() error {
	return r.err
}

func (r *Remote) Moves() ([]game.Candidate, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.pos.Over || !r.pos.Current.Valid() {
		return nil, nil
	}
	moves, err := r.Enumerate(r.pos, r.pos.Current)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate current piece")
	}
	for i := range moves {
		moves[i].Result = game.Successor(r.pos, moves[i])
	}
	if !r.pos.CanHold {
		return moves, nil
	}

	piece := r.pos.Hold
	if piece == game.NoPiece {
		piece = r.pos.Queue[0]
	}
	if !piece.Valid() {
		return moves, nil
	}
	held, err := r.Enumerate(r.pos, piece)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate hold piece")
	}
	for _, c := range held {
		c = c.WithHold()
		c.Result = game.Successor(r.pos, c)
		moves = append(moves, c)
	}
	return moves, nil
}

func (r *Remote) Execute(c game.Candidate) error {
	if r.err != nil {
		return r.err
	}
	if r.pos.Over {
		return game.ErrGameOver
	}
	ctx, cancel := r.call()
	defer cancel()

	snap, err := r.host.Step(ctx, communication.NewCommand(c.Command, r.granularity))
	if err == nil {
		pending := c.Facts.PendingGarbage
		err = r.load(snap, pending-min(pending, game.MaxGarbagePerPlacement))
	}
	if err != nil {
		err = errors.Wrapf(err, "host failed to execute %s", c.Command)
		r.broken(err)
		return err
	}
	return nil
}

func (r *Remote) AddGarbage(amount int) {
	if amount > 0 {
		r.pos.PendingGarbage += amount
	}
}

func (r *Remote) Position() game.Position {
	return r.pos.Clone()
}

func (r *Remote) Over() bool {
	return r.pos.Over
}

// Score returns the host-reported score.
func (r *Remote) Score() int64 {
	return r.score
}
