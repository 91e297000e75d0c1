package server

import (
	"github.com/google/uuid"

	"github.com/undeconstructed/ludoist/comms"
	"github.com/undeconstructed/ludoist/ludo"
)

// MatchInfo is the lobby view of one match.
type MatchInfo struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Phase             ludo.Phase `json:"phase"`
	Players           int        `json:"players"`
	Seats             int        `json:"seats"`
	PasswordProtected bool       `json:"passwordProtected"`
}

// CreateMatchInput is what a lobby client supplies to make a match.
type CreateMatchInput struct {
	Name      string       `json:"name"`
	Password  string       `json:"password,omitempty"`
	Seats     int          `json:"seats,omitempty"`
	AutoStart bool         `json:"autoStart,omitempty"`
	WinRule   ludo.WinRule `json:"winRule,omitempty"`
}

// toSend is anything for a client, head plus body.
type toSend struct {
	mtype string
	data  interface{}
}

// kicked tells a connection's writer to hang up.
type kicked struct {
	reason string
}

// clientBundle is the core's handle on one connection: its identity and
// the buffered channel its writer drains. The core never does I/O on it.
type clientBundle struct {
	id     uuid.UUID
	downCh chan interface{}
}

// messages into the core channel

type listMatchesMsg struct {
	Rep chan []MatchInfo
}

type createMatchMsg struct {
	Req CreateMatchInput
	Rep chan createMatchResult
}

type createMatchResult struct {
	Info MatchInfo
	Err  error
}

type queryMatchMsg struct {
	ID  string
	Rep chan *MatchInfo
}

type joinMsg struct {
	Req    comms.JoinRequest
	Client clientBundle
	Rep    chan comms.JoinResponse
}

type startMsg struct {
	MatchID string
	ConnID  uuid.UUID
}

type rollMsg struct {
	MatchID string
	ConnID  uuid.UUID
}

type moveMsg struct {
	MatchID string
	ConnID  uuid.UUID
	Piece   int
}

type disconnectMsg struct {
	MatchID string
	ConnID  uuid.UUID
}

// turnTimeoutMsg fires when the current player sat too long. Seq guards
// against timers from turns that already ended.
type turnTimeoutMsg struct {
	MatchID string
	Seq     int
}

// graceExpiredMsg fires when a disconnected seat ran out its grace period.
type graceExpiredMsg struct {
	MatchID string
	Colour  ludo.Colour
	Seq     int
}
