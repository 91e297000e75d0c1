package ludo

// The board is the classic cross: a 52-square shared track, one start
// square per colour, and a private 6-square home column per colour. Pieces
// are positioned by path offset relative to their own start square, so the
// geometry below is the only place absolute squares appear.

const (
	// TrackLen is the shared outer track, absolute squares 0..51.
	TrackLen = 52
	// HomeColumnStart is the first path offset inside the home column.
	HomeColumnStart = 52
	// PathEnd is the path offset that takes a piece home, exactly.
	PathEnd = 57

	PiecesPerPlayer = 4
	MaxSeats        = 4
	MinSeats        = 2
)

// Position is a piece's place on its colour's path: Yard, 0..56, or Home.
type Position int

const (
	// Yard is where pieces wait for a six.
	Yard Position = -1
	// Home is past the home column; a home piece never moves again.
	Home Position = PathEnd
)

// OnTrack reports whether the piece is on the shared track, where it can
// capture and be captured.
func (p Position) OnTrack() bool {
	return p >= 0 && p < HomeColumnStart
}

// InHomeColumn reports whether the piece is on its private final stretch.
func (p Position) InHomeColumn() bool {
	return p >= HomeColumnStart && p < PathEnd
}

// Colour identifies a seat.
type Colour string

const (
	Red    Colour = "red"
	Green  Colour = "green"
	Yellow Colour = "yellow"
	Blue   Colour = "blue"
)

// Colours is the seat assignment order, matching the clockwise board order.
var Colours = []Colour{Red, Green, Yellow, Blue}

// startSquares is where each colour enters the shared track.
var startSquares = map[Colour]int{
	Red:    0,
	Green:  13,
	Yellow: 26,
	Blue:   39,
}

// safeSquares are absolute track squares where captures cannot happen: the
// four start squares and the four star squares.
var safeSquares = map[int]bool{
	0: true, 8: true, 13: true, 21: true,
	26: true, 34: true, 39: true, 47: true,
}

// AbsSquare maps a path offset to an absolute track square. ok is false off
// the shared track (yard, home column, home), where pieces cannot meet
// other colours.
func AbsSquare(c Colour, p Position) (int, bool) {
	if !p.OnTrack() {
		return 0, false
	}
	return (startSquares[c] + int(p)) % TrackLen, true
}

// SafeSquare reports whether an absolute track square is capture-proof.
func SafeSquare(abs int) bool {
	return safeSquares[abs]
}
