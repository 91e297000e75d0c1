package server

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/undeconstructed/ludoist/comms"
)

// wire is one client connection, whatever transport it arrived on. The
// gateways build one of these and hand it to serveConn.
type wire interface {
	read() (comms.Message, error)
	send(comms.Message) error
	close()
}

// violations is the invalid-traffic budget per connection. Old strikes age
// out; blowing the budget inside the window hangs up the connection.
type violations struct {
	mu    sync.Mutex
	n     int
	first time.Time

	limit  int
	window time.Duration
}

// inc records a strike and reports whether the budget is blown.
func (v *violations) inc() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	if now.Sub(v.first) > v.window {
		v.n = 0
		v.first = now
	}
	v.n++
	return v.n > v.limit
}

func encodeDown(down interface{}) (comms.Message, bool, error) {
	switch msg := down.(type) {
	case comms.Message:
		return msg, false, nil
	case kicked:
		cmsg, _ := comms.Encode("kicked", msg.reason)
		return cmsg, true, nil
	case toSend:
		cmsg, err := comms.Encode(msg.mtype, msg.data)
		if err != nil {
			return comms.Message{}, false, err
		}
		return cmsg, false, nil
	default:
		return comms.Message{}, false, fmt.Errorf("cannot send: %#v", down)
	}
}

// serveConn drives one client: hello, heartbeat watchdog, a writer
// draining the down channel, and the read loop feeding the core. It
// returns when the connection is done.
func serveConn(s *server, w wire, log zerolog.Logger) {
	id := uuid.New()
	downCh := make(chan interface{}, 100)
	// done releases the writer; the core may still hold downCh, so the
	// channel itself is never closed
	done := make(chan struct{})
	defer close(done)

	log = log.With().Str("conn", id.String()).Logger()
	log.Info().Msg("connecting")

	v := &violations{limit: s.cfg.ViolationLimit, window: s.cfg.ViolationWindow}

	pingInterval := s.cfg.PingInterval
	// margin of error to account for network delays
	watchdog := time.AfterFunc(pingInterval+10*time.Second, func() {
		log.Info().Msg("no ping received, closing")
		w.close()
	})
	defer watchdog.Stop()

	if err := w.send(mustEncode("hello", comms.Hello{PingInterval: int(pingInterval / time.Second)})); err != nil {
		log.Info().Err(err).Msg("hello error")
		w.close()
		return
	}

	go func() {
		// read downCh, write to conn
		defer w.close()
		for {
			var down interface{}
			select {
			case down = <-downCh:
			case <-done:
				return
			}
			msg, hangup, err := encodeDown(down)
			if err != nil {
				log.Warn().Err(err).Msg("encode error")
				continue
			}
			if err := w.send(msg); err != nil {
				log.Info().Err(err).Msg("send error")
				return
			}
			if hangup {
				return
			}
			if msg.Type() == "reject" && v.inc() {
				log.Info().Msg("too many rejected requests, closing")
				return
			}
		}
	}()

	var gameID string
	joined := false

	defer func() {
		w.close()
		if joined {
			s.coreCh <- disconnectMsg{MatchID: gameID, ConnID: id}
		}
	}()

	for {
		msg, err := w.read()
		if err != nil {
			if err != io.EOF {
				log.Info().Err(err).Msg("read error")
			}
			return
		}

		f := msg.Head.Fields()
		switch f[0] {
		case "ping":
			watchdog.Reset(pingInterval + 10*time.Second)
			var ping comms.Ping
			_ = comms.Decode(msg, &ping)
			downCh <- toSend{"pong", comms.Pong{Time: ping.Time}}
		case "list":
			downCh <- toSend{"games", s.ListMatches()}
		case "create":
			var req CreateMatchInput
			if err := comms.Decode(msg, &req); err != nil {
				strike(downCh, err)
				continue
			}
			info, err := s.CreateMatch(req)
			if err != nil {
				downCh <- toSend{"reject", comms.WrapError(err)}
				continue
			}
			downCh <- toSend{"created", info}
		case "join":
			if joined {
				downCh <- toSend{"reject", comms.WrapError(errAlreadyJoined)}
				continue
			}
			var req comms.JoinRequest
			if err := comms.Decode(msg, &req); err != nil {
				strike(downCh, err)
				continue
			}
			res := s.Join(req, clientBundle{id: id, downCh: downCh})
			downCh <- toSend{"joined", res}
			if res.Err == nil {
				gameID = res.Game
				joined = true
			}
		case "start":
			if !joined {
				downCh <- toSend{"reject", comms.WrapError(errNotJoined)}
				continue
			}
			s.coreCh <- startMsg{MatchID: gameID, ConnID: id}
		case "roll":
			// dice come from the server alone; a client pushing its own
			// value is a protocol violation, not a rule violation
			if len(msg.Data) > 0 && string(msg.Data) != "null" && string(msg.Data) != "{}" {
				log.Info().Msg("client tried to supply a roll, closing")
				return
			}
			if !joined {
				downCh <- toSend{"reject", comms.WrapError(errNotJoined)}
				continue
			}
			s.coreCh <- rollMsg{MatchID: gameID, ConnID: id}
		case "move":
			var req comms.MoveRequest
			if err := comms.Decode(msg, &req); err != nil {
				strike(downCh, err)
				continue
			}
			if !joined {
				downCh <- toSend{"reject", comms.WrapError(errNotJoined)}
				continue
			}
			s.coreCh <- moveMsg{MatchID: gameID, ConnID: id, Piece: req.Piece}
		default:
			log.Info().Msgf("junk from client: %v", f)
			if v.inc() {
				return
			}
		}
	}
}

// strike rejects an undecodable body. The writer counts every reject
// against the violation budget, so no bookkeeping here.
func strike(downCh chan interface{}, err error) {
	downCh <- toSend{"reject", comms.WrapError(errors.New("bad body: " + err.Error()))}
}

func mustEncode(head string, data interface{}) comms.Message {
	msg, err := comms.Encode(head, data)
	if err != nil {
		panic("encode error: " + err.Error())
	}
	return msg
}
