package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/undeconstructed/ludoist/comms"
	"github.com/undeconstructed/ludoist/config"
	"github.com/undeconstructed/ludoist/ludo"
)

// server-side errors that go over the wire like rule violations do
var (
	errMatchNotFound = &ludo.GameError{Code: "MATCHNOTFOUND", Msg: "no such match"}
	errBadPassword   = &ludo.GameError{Code: "BADPASSWORD", Msg: "wrong password"}
	errNotJoined     = &ludo.GameError{Code: "NOTJOINED", Msg: "join a match first"}
	errAlreadyJoined = &ludo.GameError{Code: "ALREADYJOINED", Msg: "already in a match"}
)

// Server hosts matches and speaks the framed protocol on TCP and
// websocket, plus a small REST lobby.
type Server interface {
	Run(ctx context.Context) error
}

func NewServer(cfg config.Config) Server {
	return &server{
		cfg:     cfg,
		matches: map[string]*match{},
		coreCh:  make(chan interface{}, 100),
	}
}

type server struct {
	cfg     config.Config
	matches map[string]*match
	coreCh  chan interface{}
}

func (s *server) Run(ctx context.Context) error {
	log.Info().Msg("server running")
	defer log.Info().Msg("server stopping")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runTcpGateway(gctx, s, s.cfg.TCPAddr)
	})
	g.Go(func() error {
		return runWebGateway(gctx, s, s.cfg.WebAddr)
	})
	g.Go(func() error {
		// this is the single writer of all match state
		for {
			select {
			case in := <-s.coreCh:
				s.processMessage(in)
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	return g.Wait()
}

func (s *server) processMessage(in interface{}) {
	switch msg := in.(type) {
	case listMatchesMsg:
		list := []MatchInfo{}
		for _, m := range s.matches {
			list = append(list, m.info())
		}
		msg.Rep <- list
	case createMatchMsg:
		msg.Rep <- s.createMatch(msg.Req)
	case queryMatchMsg:
		m, ok := s.matches[msg.ID]
		if !ok {
			msg.Rep <- nil
			return
		}
		info := m.info()
		msg.Rep <- &info
	case joinMsg:
		msg.Rep <- s.handleJoin(msg)
	case startMsg:
		s.handleStart(msg)
	case rollMsg:
		s.handleRoll(msg)
	case moveMsg:
		s.handleMove(msg)
	case disconnectMsg:
		s.handleDisconnect(msg)
	case turnTimeoutMsg:
		s.handleTurnTimeout(msg)
	case graceExpiredMsg:
		s.handleGraceExpired(msg)
	default:
		log.Warn().Msgf("nonsense in core: %#v", in)
	}
}

func (s *server) createMatch(req CreateMatchInput) createMatchResult {
	seats := req.Seats
	if seats == 0 {
		seats = ludo.MinSeats
	}
	if seats < ludo.MinSeats || seats > ludo.MaxSeats {
		return createMatchResult{Err: ludo.ErrBadRequest}
	}

	id := RandomString(8)
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Ludo Match %d", 1000+rand.Intn(9000))
	}

	m := &match{
		id:        id,
		name:      name,
		password:  req.Password,
		autoStart: req.AutoStart,
		game: ludo.NewGame(ludo.Options{
			Seats:   seats,
			WinRule: req.WinRule,
		}),
		seats:    map[ludo.Colour]*seatSession{},
		conns:    map[uuid.UUID]*clientBundle{},
		bindings: map[uuid.UUID]ludo.Colour{},
		log:      log.With().Str("match", id).Logger(),
	}
	s.matches[id] = m

	m.log.Info().Msgf("match created: %s", name)

	return createMatchResult{Info: m.info()}
}

func (s *server) handleJoin(msg joinMsg) comms.JoinResponse {
	m, ok := s.matches[msg.Req.Game]
	if !ok {
		return comms.JoinResponse{Err: comms.WrapError(errMatchNotFound)}
	}

	if msg.Req.Token != "" {
		return s.handleReconnect(m, msg)
	}

	if m.password != "" && msg.Req.Password != m.password {
		return comms.JoinResponse{Err: comms.WrapError(errBadPassword)}
	}

	colour, err := m.game.AddPlayer(msg.Req.Name, ludo.Colour(msg.Req.Colour))
	if err != nil {
		return comms.JoinResponse{Err: comms.WrapError(err)}
	}

	ss := &seatSession{
		colour: colour,
		name:   msg.Req.Name,
		token:  uuid.NewString(),
	}
	m.seats[colour] = ss
	m.bind(msg.Client, ss)

	m.log.Info().Msgf("%s joins as %s", msg.Req.Name, colour)

	s.announce(m, ludo.Change{Who: msg.Req.Name, What: "joins"})

	taken, total := m.game.SeatCount()
	if m.autoStart && taken == total {
		if delta, err := m.game.Start(); err == nil {
			s.pump(m, delta)
		}
	}

	return s.welcome(m, ss)
}

func (s *server) handleReconnect(m *match, msg joinMsg) comms.JoinResponse {
	ss := m.seatByToken(msg.Req.Token)
	if ss == nil {
		// the seat was vacated, or the token was never real
		return comms.JoinResponse{Err: comms.WrapError(ludo.ErrReconnectExpired)}
	}

	wasIdle := ss.idle
	if old := m.bind(msg.Client, ss); old != nil {
		old.downCh <- kicked{reason: "session superseded"}
	}

	m.log.Info().Msgf("%s reconnects as %s", ss.name, ss.colour)

	s.announce(m, ludo.Change{Who: ss.name, What: "reconnects"})
	if wasIdle {
		// seat is live again; the timer picks the turn back up
		s.afterTurnChange(m)
	}

	return s.welcome(m, ss)
}

// welcome is the full-snapshot reply a seat gets on join or reconnect.
func (s *server) welcome(m *match, ss *seatSession) comms.JoinResponse {
	snap, err := json.Marshal(m.game.GetSnapshot())
	if err != nil {
		m.log.Error().Err(err).Msg("failed to encode snapshot")
		return comms.JoinResponse{Err: comms.WrapError(err)}
	}
	_, total := m.game.SeatCount()
	return comms.JoinResponse{
		Game:     m.id,
		Colour:   string(ss.colour),
		Token:    ss.token,
		Seats:    total,
		Snapshot: snap,
	}
}

func (s *server) handleStart(msg startMsg) {
	m, ss, ok := s.resolve(msg.MatchID, msg.ConnID)
	if !ok {
		return
	}

	delta, err := m.game.Start()
	if err != nil {
		m.send(msg.ConnID, toSend{"reject", comms.WrapError(err)})
		return
	}

	m.log.Info().Msgf("%s starts the match", ss.name)
	s.pump(m, delta)
}

func (s *server) handleRoll(msg rollMsg) {
	m, ss, ok := s.resolve(msg.MatchID, msg.ConnID)
	if !ok {
		return
	}

	value, delta, err := m.game.Roll(ss.colour)
	if err != nil {
		m.send(msg.ConnID, toSend{"reject", comms.WrapError(err)})
		return
	}

	m.broadcast(toSend{"dice", ludo.DiceResult{Colour: ss.colour, Value: value}})
	s.pump(m, delta)
}

func (s *server) handleMove(msg moveMsg) {
	m, ss, ok := s.resolve(msg.MatchID, msg.ConnID)
	if !ok {
		return
	}

	delta, err := m.game.Move(ss.colour, msg.Piece)
	if err != nil {
		m.send(msg.ConnID, toSend{"reject", comms.WrapError(err)})
		return
	}

	s.pump(m, delta)
}

func (s *server) handleDisconnect(msg disconnectMsg) {
	m, ok := s.matches[msg.MatchID]
	if !ok {
		return
	}

	ss := m.unbind(msg.ConnID)
	if ss == nil {
		return
	}

	m.log.Info().Msgf("client gone: %s (%s)", ss.name, ss.colour)

	switch m.game.Phase() {
	case ludo.PhaseWaiting:
		// before the start, a seat does not outlive its connection
		if err := m.game.RemovePlayer(ss.colour); err == nil {
			delete(m.seats, ss.colour)
		}
		s.announce(m, ludo.Change{Who: ss.name, What: "leaves"})
	case ludo.PhasePlaying:
		// the seat survives; after the grace period it turns idle
		s.announce(m, ludo.Change{Who: ss.name, What: "disconnects"})
		seq := ss.graceSeq
		colour := ss.colour
		time.AfterFunc(s.cfg.GracePeriod, func() {
			s.coreCh <- graceExpiredMsg{MatchID: m.id, Colour: colour, Seq: seq}
		})
	}
}

func (s *server) handleTurnTimeout(msg turnTimeoutMsg) {
	m, ok := s.matches[msg.MatchID]
	if !ok || msg.Seq != m.turnSeq || m.game.Phase() != ludo.PhasePlaying {
		return
	}

	cur := m.game.Turn()
	delta, err := m.game.PassTurn(cur, "took too long")
	if err != nil {
		return
	}

	m.log.Info().Msgf("turn timed out for %s", cur)
	s.pump(m, delta)
}

func (s *server) handleGraceExpired(msg graceExpiredMsg) {
	m, ok := s.matches[msg.MatchID]
	if !ok {
		return
	}
	ss, ok := m.seats[msg.Colour]
	if !ok || msg.Seq != ss.graceSeq || ss.connected {
		return
	}

	ss.idle = true
	m.log.Info().Msgf("seat idle: %s", ss.colour)
	s.announce(m, ludo.Change{Who: ss.name, What: "is away, turns will be skipped"})

	if m.game.Phase() == ludo.PhasePlaying && m.game.Turn() == ss.colour {
		if delta, err := m.game.PassTurn(ss.colour, "seat idle"); err == nil {
			s.pump(m, delta)
			return
		}
	}
	s.afterTurnChange(m)
}

// resolve maps a command back to its match and seat, refusing anything
// from a connection that never joined.
func (s *server) resolve(matchID string, connID uuid.UUID) (*match, *seatSession, bool) {
	m, ok := s.matches[matchID]
	if !ok {
		return nil, nil, false
	}
	ss, ok := m.seatFor(connID)
	if !ok {
		m.send(connID, toSend{"reject", comms.WrapError(errNotJoined)})
		return nil, nil, false
	}
	return m, ss, true
}

// announce broadcasts news that comes with no state change.
func (s *server) announce(m *match, news ...ludo.Change) {
	m.broadcast(toSend{"update", ludo.Delta{Phase: m.game.Phase(), Turn: m.game.Turn(), News: news}})
}

// pump broadcasts an accepted transition and re-arms the turn machinery.
func (s *server) pump(m *match, delta ludo.Delta) {
	m.broadcast(toSend{"update", delta})

	if delta.Phase == ludo.PhaseFinished {
		m.broadcast(toSend{"ended", ludo.MatchEnded{Winners: delta.Winners}})
		m.log.Info().Msgf("match over: %v", delta.Winners)
		return
	}

	s.afterTurnChange(m)
}

// afterTurnChange skips idle seats and arms the think-time timer for
// whoever is up. Skipping is bounded so a fully idle match just crawls at
// timer pace rather than spinning.
func (s *server) afterTurnChange(m *match) {
	m.turnSeq++

	if m.game.Phase() != ludo.PhasePlaying {
		return
	}

	taken, _ := m.game.SeatCount()
	for i := 0; i < taken; i++ {
		cur := m.game.Turn()
		ss := m.seats[cur]
		if ss == nil || !ss.idle {
			break
		}
		delta, err := m.game.PassTurn(cur, "seat idle")
		if err != nil {
			break
		}
		m.turnSeq++
		m.broadcast(toSend{"update", delta})
		if delta.Phase == ludo.PhaseFinished {
			m.broadcast(toSend{"ended", ludo.MatchEnded{Winners: delta.Winners}})
			return
		}
	}

	seq := m.turnSeq
	time.AfterFunc(s.cfg.TurnTimeout, func() {
		s.coreCh <- turnTimeoutMsg{MatchID: m.id, Seq: seq}
	})
}

// synchronous fronts for the gateways

func (s *server) ListMatches() []MatchInfo {
	resCh := make(chan []MatchInfo)
	s.coreCh <- listMatchesMsg{resCh}
	return <-resCh
}

func (s *server) CreateMatch(req CreateMatchInput) (MatchInfo, error) {
	resCh := make(chan createMatchResult)
	s.coreCh <- createMatchMsg{req, resCh}
	res := <-resCh
	return res.Info, res.Err
}

func (s *server) QueryMatch(id string) *MatchInfo {
	resCh := make(chan *MatchInfo)
	s.coreCh <- queryMatchMsg{id, resCh}
	return <-resCh
}

func (s *server) Join(req comms.JoinRequest, client clientBundle) comms.JoinResponse {
	resCh := make(chan comms.JoinResponse)
	s.coreCh <- joinMsg{req, client, resCh}
	return <-resCh
}
