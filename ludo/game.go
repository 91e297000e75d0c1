package ludo

import (
	"fmt"
	"math/rand"
)

const defaultMaxSixes = 3

// seat is one player's canonical state.
type seat struct {
	name     string
	colour   Colour
	pieces   [PiecesPerPlayer]Position
	finished bool
}

type game struct {
	opts  Options
	phase Phase

	seats []seat
	turn  int
	// dice is the pending, unspent roll; 0 when the player must roll.
	dice  int
	sixes int

	winners []Colour

	roll func() int
}

// NewGame makes an empty match waiting for players.
func NewGame(opts Options) Game {
	if opts.Seats < MinSeats || opts.Seats > MaxSeats {
		opts.Seats = MinSeats
	}
	if opts.WinRule == "" {
		opts.WinRule = WinLastStanding
	}
	if opts.MaxSixes == 0 {
		opts.MaxSixes = defaultMaxSixes
	}

	roll := opts.Dice
	if roll == nil {
		roll = func() int { return rand.Intn(6) + 1 }
	}

	return &game{
		opts:  opts,
		phase: PhaseWaiting,
		turn:  -1,
		roll:  roll,
	}
}

// AddPlayer fills a seat. An empty colour means first available.
func (g *game) AddPlayer(name string, colour Colour) (Colour, error) {
	if g.phase != PhaseWaiting {
		return "", ErrAlreadyStarted
	}
	if len(g.seats) >= g.opts.Seats {
		return "", ErrMatchFull
	}

	if colour == "" {
		for _, c := range Colours {
			if !g.Seated(c) {
				colour = c
				break
			}
		}
	} else {
		if _, ok := startSquares[colour]; !ok {
			return "", ErrBadRequest
		}
		if g.Seated(colour) {
			return "", ErrSeatTaken
		}
	}

	s := seat{name: name, colour: colour}
	for i := range s.pieces {
		s.pieces[i] = Yard
	}
	g.seats = append(g.seats, s)

	return colour, nil
}

// RemovePlayer vacates a seat, only before the match starts. Once play
// begins seats survive disconnects and are never removed.
func (g *game) RemovePlayer(colour Colour) error {
	if g.phase != PhaseWaiting {
		return ErrAlreadyStarted
	}
	for i := range g.seats {
		if g.seats[i].colour == colour {
			g.seats = append(g.seats[:i], g.seats[i+1:]...)
			return nil
		}
	}
	return ErrSeatNotFound
}

// Start begins play. Turn order is the seating order, fixed from here on.
func (g *game) Start() (Delta, error) {
	if g.phase == PhasePlaying {
		return Delta{}, ErrAlreadyStarted
	}
	if g.phase == PhaseFinished {
		return Delta{}, ErrFinished
	}
	if len(g.seats) < MinSeats {
		return Delta{}, ErrNoPlayers
	}

	g.phase = PhasePlaying
	g.turn = 0
	g.dice = 0
	g.sixes = 0

	return Delta{
		Phase: g.phase,
		Turn:  g.seats[0].colour,
		News:  []Change{{What: "the match begins"}},
	}, nil
}

// Roll produces the one server-side dice value for the current turn. The
// third consecutive six forfeits the turn on the spot. A roll with no legal
// move passes the turn without touching any piece.
func (g *game) Roll(colour Colour) (int, Delta, error) {
	s, err := g.checkTurn(colour)
	if err != nil {
		return 0, Delta{}, err
	}
	if g.dice != 0 {
		return 0, Delta{}, ErrAlreadyRolled
	}

	v := g.roll()

	if v == 6 {
		g.sixes++
		if g.sixes >= g.opts.MaxSixes {
			g.toNextSeat()
			return v, Delta{
				Turn:  g.turnColour(),
				Phase: g.phase,
				News: []Change{
					{Who: s.name, What: fmt.Sprintf("rolls a %d", v)},
					{Who: s.name, What: "forfeits the turn after three sixes"},
				},
			}, nil
		}
	} else {
		g.sixes = 0
	}

	news := []Change{{Who: s.name, What: fmt.Sprintf("rolls a %d", v)}}

	if len(legalPieces(s, v)) == 0 {
		g.toNextSeat()
		news = append(news, Change{Who: s.name, What: "has no move"})
		return v, Delta{
			Turn:  g.turnColour(),
			Phase: g.phase,
			News:  news,
		}, nil
	}

	g.dice = v
	return v, Delta{
		Dice:  v,
		Turn:  s.colour,
		Phase: g.phase,
		News:  news,
	}, nil
}

// Move spends the pending roll on one piece. On a rejection nothing
// changes and the same roll stays pending.
func (g *game) Move(colour Colour, piece int) (Delta, error) {
	s, err := g.checkTurn(colour)
	if err != nil {
		return Delta{}, err
	}
	if g.dice == 0 {
		return Delta{}, ErrNotRolled
	}

	out, err := resolveMove(g.seats, g.turn, piece, g.dice)
	if err != nil {
		return Delta{}, err
	}

	dice := g.dice
	g.dice = 0

	// the only mutations: the moving piece, and captures to the yard
	s.pieces[piece] = out.to
	for _, cp := range out.captured {
		o := g.seatFor(cp.Colour)
		o.pieces[cp.Index] = Yard
	}

	delta := Delta{
		Moved: []PieceState{{Colour: s.colour, Index: piece, Pos: out.to}},
		News:  []Change{{Who: s.name, What: fmt.Sprintf("moves piece %d", piece)}},
	}
	for _, cp := range out.captured {
		o := g.seatFor(cp.Colour)
		delta.Captured = append(delta.Captured, PieceState{Colour: cp.Colour, Index: cp.Index, Pos: Yard})
		delta.News = append(delta.News, Change{Who: s.name, What: fmt.Sprintf("captures %s piece %d", o.name, cp.Index)})
	}

	if out.finished {
		delta.News = append(delta.News, Change{Who: s.name, What: "gets a piece home"})
		if g.allHome(s) {
			s.finished = true
			g.winners = append(g.winners, s.colour)
			delta.News = append(delta.News, Change{Who: s.name, What: "has finished!"})
			g.checkEnd()
		}
	}

	if g.phase == PhasePlaying {
		extra := (dice == 6 || len(out.captured) > 0) && !s.finished
		if !extra {
			g.toNextSeat()
		}
	}

	delta.Turn = g.turnColour()
	delta.Phase = g.phase
	delta.Winners = g.winnersCopy()
	if g.phase == PhaseFinished {
		delta.News = append(delta.News, Change{What: "the match is over"})
	}

	return delta, nil
}

// PassTurn skips the current turn: think-time timeouts and idle seats. Any
// pending roll is discarded.
func (g *game) PassTurn(colour Colour, reason string) (Delta, error) {
	s, err := g.checkTurn(colour)
	if err != nil {
		return Delta{}, err
	}

	g.dice = 0
	g.toNextSeat()

	return Delta{
		Turn:  g.turnColour(),
		Phase: g.phase,
		News:  []Change{{Who: s.name, What: fmt.Sprintf("turn passed (%s)", reason)}},
	}, nil
}

func (g *game) Phase() Phase {
	return g.phase
}

func (g *game) Turn() Colour {
	return g.turnColour()
}

func (g *game) Seated(colour Colour) bool {
	for i := range g.seats {
		if g.seats[i].colour == colour {
			return true
		}
	}
	return false
}

func (g *game) SeatCount() (int, int) {
	return len(g.seats), g.opts.Seats
}

func (g *game) GetSnapshot() Snapshot {
	snap := Snapshot{
		Phase:   g.phase,
		Turn:    g.turnColour(),
		Dice:    g.dice,
		Sixes:   g.sixes,
		Winners: g.winnersCopy(),
	}
	for i := range g.seats {
		s := &g.seats[i]
		snap.Players = append(snap.Players, PlayerState{
			Name:     s.name,
			Colour:   s.colour,
			Pieces:   s.pieces,
			Finished: s.finished,
		})
	}
	return snap
}

func (g *game) checkTurn(colour Colour) (*seat, error) {
	switch g.phase {
	case PhaseWaiting:
		return nil, ErrNotStarted
	case PhaseFinished:
		return nil, ErrFinished
	}
	s := &g.seats[g.turn]
	if s.colour != colour {
		if !g.Seated(colour) {
			return nil, ErrSeatNotFound
		}
		return nil, ErrNotYourTurn
	}
	return s, nil
}

func (g *game) seatFor(colour Colour) *seat {
	for i := range g.seats {
		if g.seats[i].colour == colour {
			return &g.seats[i]
		}
	}
	return nil
}

func (g *game) turnColour() Colour {
	if g.phase != PhasePlaying || g.turn < 0 {
		return ""
	}
	return g.seats[g.turn].colour
}

func (g *game) allHome(s *seat) bool {
	for _, p := range s.pieces {
		if p != Home {
			return false
		}
	}
	return true
}

// toNextSeat rotates to the next unfinished seat. Finished colours are
// permanently skipped.
func (g *game) toNextSeat() {
	g.dice = 0
	g.sixes = 0
	for i := 1; i <= len(g.seats); i++ {
		n := (g.turn + i) % len(g.seats)
		if !g.seats[n].finished {
			g.turn = n
			return
		}
	}
}

// checkEnd applies the configured win rule after a colour finishes.
func (g *game) checkEnd() {
	switch g.opts.WinRule {
	case WinFirstToFinish:
		g.phase = PhaseFinished
	default:
		var left *seat
		n := 0
		for i := range g.seats {
			if !g.seats[i].finished {
				left = &g.seats[i]
				n++
			}
		}
		if n <= 1 {
			if left != nil {
				// complete the final ordering with the loser
				g.winners = append(g.winners, left.colour)
			}
			g.phase = PhaseFinished
		}
	}
}

func (g *game) winnersCopy() []Colour {
	if len(g.winners) == 0 {
		return nil
	}
	out := make([]Colour, len(g.winners))
	copy(out, g.winners)
	return out
}
