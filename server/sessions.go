package server

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/undeconstructed/ludoist/ludo"
)

// seatSession is the liveness side of a seat, separate from the game state
// so a seat survives its connection. The token is how a player reclaims a
// seat after dropping.
type seatSession struct {
	colour ludo.Colour
	name   string
	token  string

	connID    uuid.UUID
	connected bool
	// idle means the grace period ran out; turns are auto-skipped until
	// the player reconnects. An idle seat keeps its pieces and its place
	// in the winner ordering.
	idle bool
	// graceSeq invalidates grace timers from earlier disconnects
	graceSeq int
}

// match is one game plus everything session-side: connected clients, the
// conn-to-seat table, and the turn timer sequence.
type match struct {
	id        string
	name      string
	password  string
	autoStart bool

	game ludo.Game

	seats map[ludo.Colour]*seatSession
	conns map[uuid.UUID]*clientBundle
	// bindings is the session-to-player table, checked on every command
	bindings map[uuid.UUID]ludo.Colour

	// turnSeq bumps whenever the turn could have changed, so timers from
	// dead turns are ignored
	turnSeq int

	log zerolog.Logger
}

func (m *match) info() MatchInfo {
	taken, total := m.game.SeatCount()
	return MatchInfo{
		ID:                m.id,
		Name:              m.name,
		Phase:             m.game.Phase(),
		Players:           taken,
		Seats:             total,
		PasswordProtected: m.password != "",
	}
}

// bind seats a connection. Any previous connection on the seat is kicked.
func (m *match) bind(client clientBundle, ss *seatSession) *clientBundle {
	var old *clientBundle
	if ss.connected {
		if c, ok := m.conns[ss.connID]; ok {
			old = c
		}
		delete(m.conns, ss.connID)
		delete(m.bindings, ss.connID)
	}

	c := client
	m.conns[client.id] = &c
	m.bindings[client.id] = ss.colour

	ss.connID = client.id
	ss.connected = true
	ss.idle = false
	ss.graceSeq++

	return old
}

// unbind forgets a connection. The seat session stays, disconnected.
func (m *match) unbind(connID uuid.UUID) *seatSession {
	colour, ok := m.bindings[connID]
	delete(m.conns, connID)
	delete(m.bindings, connID)
	if !ok {
		return nil
	}

	ss := m.seats[colour]
	if ss != nil && ss.connID == connID {
		ss.connected = false
		ss.graceSeq++
	}
	return ss
}

// seatFor resolves a command's connection to its seat, the validation in
// front of the rules engine.
func (m *match) seatFor(connID uuid.UUID) (*seatSession, bool) {
	colour, ok := m.bindings[connID]
	if !ok {
		return nil, false
	}
	ss, ok := m.seats[colour]
	return ss, ok
}

func (m *match) seatByToken(token string) *seatSession {
	for _, ss := range m.seats {
		if ss.token == token {
			return ss
		}
	}
	return nil
}

// send queues a message for one seat, dropping if the client lags.
func (m *match) send(connID uuid.UUID, down interface{}) {
	c, ok := m.conns[connID]
	if !ok {
		return
	}
	select {
	case c.downCh <- down:
	default:
		// client lagging
		m.log.Info().Msgf("client lagging: %s", connID)
	}
}

// broadcast queues a message for every connected seat.
func (m *match) broadcast(down interface{}) {
	for id := range m.conns {
		m.send(id, down)
	}
}
