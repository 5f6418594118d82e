package communication

import (
	"obseris/game"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrHostClosed is returned once the host stops answering: its output ended,
// the process exited or the connection was closed.
var ErrHostClosed = errors.New("host closed")

// Granularity selects how commands are spelled on the wire.
type Granularity string

const (
	// GranularityPath sends the full input sequence.
	GranularityPath Granularity = "path"
	// GranularityPlacement sends the final column and rotation only.
	GranularityPlacement Granularity = "placement"
)

func (g Granularity) Valid() bool {
	return g == GranularityPath || g == GranularityPlacement
}

// Command is one outbound message.
type Command struct {
	Path    []string `json:"path,omitempty"`
	X       *int     `json:"x,omitempty"`
	Rot     *int     `json:"rot,omitempty"`
	UseHold bool     `json:"useHold"`
}

// NewCommand spells c at granularity g.
func NewCommand(c game.Command, g Granularity) Command {
	if g == GranularityPlacement {
		return Command{X: lo.ToPtr(c.X), Rot: lo.ToPtr(c.Rot), UseHold: c.UseHold}
	}
	return Command{Path: c.Path, UseHold: c.UseHold}
}

// Snapshot is the full state a host reports after every command. Hosts send
// cells as 0/1 numbers, pieces by shape name and null for an empty slot.
type Snapshot struct {
	Board       [][]float64  `json:"board"`
	CurrentMino game.Piece   `json:"currentMino"`
	NextMinos   []game.Piece `json:"nextMinos"`
	HoldMino    game.Piece   `json:"holdMino"`
	// CanHold is omitted by hosts that do not track it; hold is then assumed
	// to be available.
	CanHold        *bool `json:"canHold,omitempty"`
	IsGameOver     bool  `json:"isGameOver"`
	IsB2BActive    bool  `json:"isB2BActive"`
	ComboCount     int   `json:"comboCount"`
	PendingGarbage int   `json:"pendingGarbage,omitempty"`
	Score          int64 `json:"score,omitempty"`
	LinesCleared   int   `json:"linesCleared,omitempty"`
}

// emptySnapshot is the decode target: absent pieces stay NoPiece.
func emptySnapshot() Snapshot {
	return Snapshot{CurrentMino: game.NoPiece, HoldMino: game.NoPiece}
}

// Position converts the snapshot. The queue is cut or padded to
// game.QueueLength.
func (s Snapshot) Position() (game.Position, error) {
	rows := make([][]int, len(s.Board))
	for y, row := range s.Board {
		rows[y] = lo.Map(row, func(v float64, _ int) int {
			if v != 0 {
				return 1
			}
			return 0
		})
	}
	board, err := game.BoardFromRows(rows)
	if err != nil {
		return game.Position{}, errors.Wrap(err, "invalid snapshot board")
	}

	pos := game.NewPosition()
	pos.Board = board
	pos.Current = s.CurrentMino
	copy(pos.Queue, s.NextMinos)
	pos.Hold = s.HoldMino
	pos.CanHold = s.CanHold == nil || *s.CanHold
	pos.PendingGarbage = s.PendingGarbage
	pos.Combo = s.ComboCount
	pos.B2B = s.IsB2BActive
	pos.Over = s.IsGameOver
	return pos, nil
}
