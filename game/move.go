package game

import (
	"fmt"
	"slices"
	"strings"
)

type Spin int8

const (
	SpinNone Spin = iota
	SpinMini
	SpinFull
)

func (s Spin) String() string {
	switch s {
	case SpinMini:
		return "mini"
	case SpinFull:
		return "full"
	default:
		return "none"
	}
}

// Command is the input sequence that realizes a candidate. Hosts with coarse
// action granularity use X and Rot instead of Path.
type Command struct {
	Path    []string
	X       int
	Rot     int
	UseHold bool
}

// FallbackCommand drops the current piece straight down without holding.
func FallbackCommand() Command {
	return Command{Path: []string{ActionHardDrop}}
}

func (c Command) Equal(other Command) bool {
	return c.UseHold == other.UseHold && slices.Equal(c.Path, other.Path)
}

func (c Command) String() string {
	hold := ""
	if c.UseHold {
		hold = "HOLD "
	}
	return fmt.Sprintf("%s%s (x=%d rot=%d)", hold, strings.Join(c.Path, ","), c.X, c.Rot)
}

// Facts summarizes the consequences of committing a candidate. The zero value
// means no effect.
type Facts struct {
	LinesCleared   int
	Spin           Spin
	Attack         int
	Combo          int
	PendingGarbage int
	B2B            bool
	GameOver       bool
	UsedHold       bool
	UsedSoftDrop   bool
	ScoreDelta     int64
}

// Candidate is one landing produced by an Enumerator. Candidates are values
// and are never mutated after enumeration.
type Candidate struct {
	Piece   Piece
	X, Y    int
	Rot     int
	Command Command
	Facts   Facts
	Result  Position
}

// WithHold marks a candidate as played from the hold slot.
func (c Candidate) WithHold() Candidate {
	c.Command.UseHold = true
	c.Facts.UsedHold = true
	return c
}
