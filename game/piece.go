package game

import "github.com/pkg/errors"

type Piece int8

const (
	NoPiece Piece = iota - 1
	T
	Z
	S
	I
	O
	L
	J
)

// NumPieces is the size of the piece alphabet used by the encoder.
const NumPieces = 7

var AllPieces = [NumPieces]Piece{T, Z, S, I, O, L, J}

const noPieceName = "NoShape"

var pieceNames = [NumPieces]string{
	"TShape", "ZShape", "SShape", "LineShape", "SquareShape", "LShape", "MirroredLShape",
}

func (p Piece) Valid() bool {
	return p >= T && p <= J
}

func (p Piece) String() string {
	if !p.Valid() {
		return noPieceName
	}
	return pieceNames[p]
}

// ParsePiece maps a host shape name to a piece. Unknown names map to NoPiece.
func ParsePiece(name string) Piece {
	for i, n := range pieceNames {
		if n == name {
			return Piece(i)
		}
	}
	return NoPiece
}

func (p Piece) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Piece) UnmarshalText(text []byte) error {
	*p = ParsePiece(string(text))
	return nil
}

// PieceFromIndex converts an alphabet index, as used in packed queue blobs.
func PieceFromIndex(i int) Piece {
	if i < 0 || i >= NumPieces {
		return NoPiece
	}
	return Piece(i)
}

var errNoPiece = errors.New("no piece to enumerate")
