package comms

import "encoding/json"

// Session-level message bodies. Game-level bodies (updates, turn state)
// live in the ludo package and travel as raw JSON.

// Hello is the first thing a server says on any connection.
type Hello struct {
	PingInterval int `json:"pingInterval"` // seconds
}

// JoinRequest asks for a seat in a match. Colour is a preference and may be
// empty. Token reclaims a seat after a disconnect.
type JoinRequest struct {
	Game     string `json:"game"`
	Name     string `json:"name"`
	Colour   string `json:"colour,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// JoinResponse confirms or refuses a seat. On success Snapshot holds a full
// ludo.Snapshot; deltas take over from there.
type JoinResponse struct {
	Game     string          `json:"game,omitempty"`
	Colour   string          `json:"colour,omitempty"`
	Token    string          `json:"token,omitempty"`
	Seats    int             `json:"seats,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Err      *CommsError     `json:"error,omitempty"`
}

// MoveRequest spends the pending roll on one piece.
type MoveRequest struct {
	Piece int `json:"piece"`
}

// Ping and Pong carry the sender's clock for liveness checks.
type Ping struct {
	Time int64 `json:"time"`
}

type Pong struct {
	Time int64 `json:"time"`
}
