package searcher

import "obseris/game"

// Origin records the first-ply move a search node descends from.
type Origin struct {
	Command game.Command
	Facts   game.Facts
}

type node struct {
	pos    game.Position
	origin *Origin // nil at the root, shared by all descendants otherwise
}

func newChild(parent *node, c game.Candidate) *node {
	origin := parent.origin
	if origin == nil {
		origin = &Origin{Command: c.Command, Facts: c.Facts}
	}
	return &node{pos: game.Successor(parent.pos, c), origin: origin}
}

// candidates enumerates the current piece and, when hold is available, the
// piece that holding would bring into play.
func (n *node) candidates(enum game.Enumerator) ([]game.Candidate, error) {
	pos := n.pos
	if pos.Over || !pos.Current.Valid() {
		return nil, nil
	}
	cands, err := enum.Enumerate(pos, pos.Current)
	if err != nil {
		return nil, err
	}
	if !pos.CanHold {
		return cands, nil
	}

	piece := pos.Hold
	if piece == game.NoPiece && len(pos.Queue) > 0 {
		piece = pos.Queue[0]
	}
	if !piece.Valid() {
		return cands, nil
	}
	held, err := enum.Enumerate(pos, piece)
	if err != nil {
		return nil, err
	}
	for _, c := range held {
		cands = append(cands, c.WithHold())
	}
	return cands, nil
}
