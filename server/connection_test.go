package server

import (
	"errors"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/undeconstructed/ludoist/comms"
)

// fakeWire is a scripted transport for serveConn.
type fakeWire struct {
	in   chan comms.Message
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	out []comms.Message
}

func newFakeWire() *fakeWire {
	return &fakeWire{
		in:   make(chan comms.Message, 10),
		done: make(chan struct{}),
	}
}

func (w *fakeWire) read() (comms.Message, error) {
	select {
	case m := <-w.in:
		return m, nil
	case <-w.done:
		return comms.Message{}, io.EOF
	}
}

func (w *fakeWire) send(m comms.Message) error {
	select {
	case <-w.done:
		return errors.New("closed")
	default:
	}
	w.mu.Lock()
	w.out = append(w.out, m)
	w.mu.Unlock()
	return nil
}

func (w *fakeWire) close() {
	w.once.Do(func() { close(w.done) })
}

func (w *fakeWire) closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// find polls for a sent message of one type, because the writer side of
// serveConn is asynchronous.
func (w *fakeWire) find(t *testing.T, mtype string) comms.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		for _, m := range w.out {
			if m.Type() == mtype {
				w.mu.Unlock()
				return m
			}
		}
		w.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s message sent", mtype)
	return comms.Message{}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// runCore drains the core channel for the duration of a test, standing in
// for the loop in Run.
func runCore(t *testing.T, s *server) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case m := <-s.coreCh:
				s.processMessage(m)
			case <-done:
				return
			}
		}
	}()
}

func TestServeConnHelloAndPing(t *testing.T) {
	s := testServer()
	w := newFakeWire()
	defer w.close()

	go serveConn(s, w, zerolog.Nop())

	hello := w.find(t, "hello")
	var h comms.Hello
	if err := comms.Decode(hello, &h); err != nil || h.PingInterval != 40 {
		t.Errorf("bad hello: %+v %v", h, err)
	}

	w.in <- mustEncode("ping", comms.Ping{Time: 7})
	pong := w.find(t, "pong")
	var p comms.Pong
	if err := comms.Decode(pong, &p); err != nil || p.Time != 7 {
		t.Errorf("bad pong: %+v %v", p, err)
	}
}

func TestServeConnLobbyAndJoin(t *testing.T) {
	s := testServer()
	runCore(t, s)

	w := newFakeWire()
	defer w.close()
	go serveConn(s, w, zerolog.Nop())

	w.in <- mustEncode("create", CreateMatchInput{Name: "wired", Seats: 2})
	var info MatchInfo
	if err := comms.Decode(w.find(t, "created"), &info); err != nil || info.ID == "" {
		t.Fatalf("bad created: %+v %v", info, err)
	}

	w.in <- mustEncode("list", nil)
	var list []MatchInfo
	if err := comms.Decode(w.find(t, "games"), &list); err != nil || len(list) != 1 {
		t.Errorf("bad listing: %v %v", list, err)
	}

	w.in <- mustEncode("join", comms.JoinRequest{Game: info.ID, Name: "a"})
	var res comms.JoinResponse
	if err := comms.Decode(w.find(t, "joined"), &res); err != nil || res.Err != nil {
		t.Fatalf("join failed: %+v %v", res, err)
	}
	if res.Colour != "red" || res.Token == "" {
		t.Errorf("bad join: %+v", res)
	}

	// a second join on the same connection is refused
	w.in <- mustEncode("join", comms.JoinRequest{Game: info.ID, Name: "a2"})
	var rej comms.CommsError
	if err := comms.Decode(w.find(t, "reject"), &rej); err != nil || rej.Code != "ALREADYJOINED" {
		t.Errorf("double join: %+v %v", rej, err)
	}
}

func TestServeConnRefusesClientDice(t *testing.T) {
	s := testServer()
	w := newFakeWire()

	go serveConn(s, w, zerolog.Nop())
	w.find(t, "hello")

	// any body on a roll is a client trying to pick its own dice
	w.in <- mustEncode("roll", 5)

	waitFor(t, "hangup", w.closed)
}

func TestServeConnReleasesWriter(t *testing.T) {
	s := testServer()

	before := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		w := newFakeWire()
		go serveConn(s, w, zerolog.Nop())
		w.find(t, "hello")
		w.close()
	}

	// both the reader and its writer must be gone once the wire drops
	waitFor(t, "connection goroutines to drain", func() bool {
		return runtime.NumGoroutine() <= before+1
	})
}

func TestServeConnJunkBudget(t *testing.T) {
	s := testServer()
	s.cfg.ViolationLimit = 2
	w := newFakeWire()

	go serveConn(s, w, zerolog.Nop())
	w.find(t, "hello")

	for i := 0; i < 3; i++ {
		w.in <- mustEncode("gibberish", nil)
	}

	waitFor(t, "hangup", w.closed)
}
