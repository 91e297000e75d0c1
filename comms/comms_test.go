package comms

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"reflect"
	"testing"
	"testing/iotest"

	"github.com/undeconstructed/ludoist/ludo"
)

func TestEncDec(t *testing.T) {
	var network bytes.Buffer
	enc := NewEncoder(&network)
	dec := NewDecoder(&network)

	err := enc.Encode("test", "data")
	if err != nil {
		t.Errorf("enc error: %v", err)
	}

	msg, err := dec.Decode()
	if err != nil {
		t.Errorf("dec error: %v", err)
	}
	if t0 := msg.Type(); t0 != "test" {
		t.Errorf("bad decode: %v", t0)
	}
	if string(msg.Data) != "\"data\"" {
		t.Errorf("bad decode: %v", msg.Data)
	}
}

func TestRoundTrips(t *testing.T) {
	msgs := []struct {
		head string
		body interface{}
		out  interface{}
	}{
		{"hello", Hello{PingInterval: 40}, &Hello{}},
		{"join", JoinRequest{Game: "abc", Name: "phil", Colour: "red", Password: "pw"}, &JoinRequest{}},
		{"join", JoinRequest{Game: "abc", Name: "phil", Token: "tok"}, &JoinRequest{}},
		{"joined", JoinResponse{Game: "abc", Colour: "red", Token: "tok", Seats: 4, Snapshot: json.RawMessage(`{"phase":"waiting"}`)}, &JoinResponse{}},
		{"joined", JoinResponse{Err: &CommsError{Code: "MATCHFULL", Msg: "match is full"}}, &JoinResponse{}},
		{"move", MoveRequest{Piece: 2}, &MoveRequest{}},
		{"reject", CommsError{Code: "NOTYOURTURN", Msg: "it's not your turn"}, &CommsError{}},
		{"ping", Ping{Time: 1234567}, &Ping{}},
		{"pong", Pong{Time: 1234567}, &Pong{}},
		{"dice", ludo.DiceResult{Colour: ludo.Red, Value: 6}, &ludo.DiceResult{}},
		{"update", ludo.Delta{
			Moved:    []ludo.PieceState{{Colour: ludo.Green, Index: 1, Pos: 42}},
			Captured: []ludo.PieceState{{Colour: ludo.Red, Index: 0, Pos: ludo.Yard}},
			Dice:     4,
			Turn:     ludo.Green,
			Phase:    ludo.PhasePlaying,
			Winners:  []ludo.Colour{ludo.Blue},
			News:     []ludo.Change{{Who: "a", What: "captures b piece 0"}, {What: "the match begins"}},
		}, &ludo.Delta{}},
		// the sparse case, where omitempty could eat a field
		{"update", ludo.Delta{Phase: ludo.PhaseFinished}, &ludo.Delta{}},
		{"ended", ludo.MatchEnded{Winners: []ludo.Colour{ludo.Red, ludo.Green}}, &ludo.MatchEnded{}},
		{"joined", ludo.Snapshot{
			Phase: ludo.PhasePlaying,
			Players: []ludo.PlayerState{
				{Name: "a", Colour: ludo.Red, Pieces: [ludo.PiecesPerPlayer]ludo.Position{ludo.Yard, 0, 54, ludo.Home}},
				{Name: "b", Colour: ludo.Green, Finished: true},
			},
			Turn:  ludo.Red,
			Dice:  6,
			Sixes: 2,
		}, &ludo.Snapshot{}},
	}

	for _, m := range msgs {
		var network bytes.Buffer
		enc := NewEncoder(&network)
		dec := NewDecoder(&network)

		if err := enc.Encode(m.head, m.body); err != nil {
			t.Fatalf("enc %s: %v", m.head, err)
		}

		got, err := dec.Decode()
		if err != nil {
			t.Fatalf("dec %s: %v", m.head, err)
		}
		if got.Type() != m.head {
			t.Errorf("%s: wrong head %s", m.head, got.Head)
		}
		if err := Decode(got, m.out); err != nil {
			t.Fatalf("unmarshal %s: %v", m.head, err)
		}
		if !reflect.DeepEqual(reflect.ValueOf(m.out).Elem().Interface(), m.body) {
			t.Errorf("%s: round trip changed: %#v != %#v", m.head, m.out, m.body)
		}
	}
}

func TestPartialFrames(t *testing.T) {
	var network bytes.Buffer
	enc := NewEncoder(&network)

	if err := enc.Encode("roll", nil); err != nil {
		t.Fatalf("enc: %v", err)
	}
	if err := enc.Encode("move", MoveRequest{Piece: 3}); err != nil {
		t.Fatalf("enc: %v", err)
	}

	// the transport is a byte stream, one byte at a time is legal
	dec := NewDecoder(iotest.OneByteReader(&network))

	m1, err := dec.Decode()
	if err != nil || m1.Type() != "roll" {
		t.Errorf("bad first frame: %v %v", m1, err)
	}
	m2, err := dec.Decode()
	if err != nil || m2.Type() != "move" {
		t.Errorf("bad second frame: %v %v", m2, err)
	}
}

func TestFrameTooBig(t *testing.T) {
	var network bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize+1)
	network.Write(prefix[:])

	dec := NewDecoder(&network)
	if _, err := dec.Decode(); err != ErrFrameTooBig {
		t.Errorf("wanted ErrFrameTooBig, got %v", err)
	}
}

func TestBadFrames(t *testing.T) {
	// zero length frame
	var network bytes.Buffer
	network.Write([]byte{0, 0, 0, 0})
	dec := NewDecoder(&network)
	if _, err := dec.Decode(); err != ErrBadFrame {
		t.Errorf("wanted ErrBadFrame, got %v", err)
	}

	// payload with no head separator
	network.Reset()
	payload := []byte("nonewline")
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	network.Write(prefix[:])
	network.Write(payload)
	if _, err := dec.Decode(); err != ErrBadFrame {
		t.Errorf("wanted ErrBadFrame, got %v", err)
	}
}

func TestTruncatedFrame(t *testing.T) {
	var network bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 100)
	network.Write(prefix[:])
	network.Write([]byte("only a bit"))

	dec := NewDecoder(&network)
	if _, err := dec.Decode(); err != io.ErrUnexpectedEOF {
		t.Errorf("wanted ErrUnexpectedEOF, got %v", err)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil) != nil {
		t.Errorf("nil should stay nil")
	}

	ce := WrapError(io.EOF)
	if ce.Code != "ERROR" {
		t.Errorf("plain errors get the generic code: %v", ce.Code)
	}

	again := WrapError(ce)
	if again != ce {
		t.Errorf("wrapping a CommsError should be a no-op")
	}
}
