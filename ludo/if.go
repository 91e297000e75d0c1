package ludo

// Phase is the lifecycle of a match.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// WinRule selects when a running match ends.
type WinRule string

const (
	// WinFirstToFinish ends the match when one colour gets all four home.
	WinFirstToFinish WinRule = "first"
	// WinLastStanding plays on until only one unfinished colour remains.
	WinLastStanding WinRule = "standing"
)

// Options configures one match.
type Options struct {
	// Seats is how many players this match allows, 2..4.
	Seats int
	// WinRule defaults to WinLastStanding.
	WinRule WinRule
	// MaxSixes is how many consecutive sixes forfeit the turn, default 3.
	MaxSixes int
	// Dice overrides the dice source, for tests. Nil means math/rand.
	Dice func() int
}

// PieceState is one piece's position, as sent to clients.
type PieceState struct {
	Colour Colour   `json:"colour"`
	Index  int      `json:"index"`
	Pos    Position `json:"pos"`
}

// PlayerState is one seat's public view.
type PlayerState struct {
	Name     string                    `json:"name"`
	Colour   Colour                    `json:"colour"`
	Pieces   [PiecesPerPlayer]Position `json:"pieces"`
	Finished bool                      `json:"finished"`
}

// Snapshot is the full canonical state, sent on join and reconnect.
type Snapshot struct {
	Phase   Phase         `json:"phase"`
	Players []PlayerState `json:"players"`
	Turn    Colour        `json:"turn,omitempty"`
	Dice    int           `json:"dice,omitempty"`
	Sixes   int           `json:"sixes,omitempty"`
	Winners []Colour      `json:"winners,omitempty"`
}

// Change is one line of news about what just happened.
type Change struct {
	Who  string `json:"who,omitempty"`
	What string `json:"what"`
}

// Delta is the unit broadcast after every accepted transition: the pieces
// that moved, anything captured, the pending dice (0 when spent), and whose
// turn it now is.
type Delta struct {
	Moved    []PieceState `json:"moved,omitempty"`
	Captured []PieceState `json:"captured,omitempty"`
	Dice     int          `json:"dice,omitempty"`
	Turn     Colour       `json:"turn,omitempty"`
	Phase    Phase        `json:"phase"`
	Winners  []Colour     `json:"winners,omitempty"`
	News     []Change     `json:"news,omitempty"`
}

// DiceResult is broadcast to every seat after a roll.
type DiceResult struct {
	Colour Colour `json:"colour"`
	Value  int    `json:"value"`
}

// MatchEnded is the terminal broadcast, colours in finishing order.
type MatchEnded struct {
	Winners []Colour `json:"winners"`
}

// Game is one Ludo match. It is not safe for concurrent use; the server
// funnels all calls through its core loop.
type Game interface {
	// seating
	AddPlayer(name string, colour Colour) (Colour, error)
	RemovePlayer(colour Colour) error
	Start() (Delta, error)

	// play
	Roll(colour Colour) (int, Delta, error)
	Move(colour Colour, piece int) (Delta, error)
	PassTurn(colour Colour, reason string) (Delta, error)

	// reads
	Phase() Phase
	Turn() Colour
	Seated(colour Colour) bool
	SeatCount() (taken, total int)
	GetSnapshot() Snapshot
}
