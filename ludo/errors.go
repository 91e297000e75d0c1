package ludo

type GameError struct {
	Code string
	Msg  string
}

func (e *GameError) ErrorCode() string { return e.Code }
func (e *GameError) Error() string     { return e.Msg }

var (
	// ErrSeatTaken means the requested colour already has a player
	ErrSeatTaken = &GameError{"SEATTAKEN", "seat is taken"}
	// ErrMatchFull means every seat is occupied
	ErrMatchFull = &GameError{"MATCHFULL", "match is full"}
	// ErrNoPlayers means can't start a match with too few players
	ErrNoPlayers = &GameError{"NOPLAYERS", "not enough players"}
	// ErrAlreadyStarted is only when calling Start() too much
	ErrAlreadyStarted = &GameError{"ALREADYSTARTED", "match has already started"}
	// ErrNotStarted means the match has not started
	ErrNotStarted = &GameError{"NOTSTARTED", "match has not started"}
	// ErrFinished means the match is over
	ErrFinished = &GameError{"FINISHED", "match has finished"}

	// ErrNotYourTurn means acting while it's not your turn
	ErrNotYourTurn = &GameError{"NOTYOURTURN", "it's not your turn"}
	// ErrAlreadyRolled means rolling while a roll is still unspent
	ErrAlreadyRolled = &GameError{"ALREADYROLLED", "roll already pending"}
	// ErrNotRolled means moving before rolling
	ErrNotRolled = &GameError{"NOTROLLED", "no roll pending"}
	// ErrNoValidMove means the rolled value allows no legal move
	ErrNoValidMove = &GameError{"NOVALIDMOVE", "no valid move for that roll"}
	// ErrOvershoot means the move would run past the end of the home column
	ErrOvershoot = &GameError{"OVERSHOOT", "move overshoots the home column"}
	// ErrBadPiece means the piece index is out of range or the piece is home
	ErrBadPiece = &GameError{"BADPIECE", "no such piece to move"}

	// ErrSeatNotFound means no seat matches the claim
	ErrSeatNotFound = &GameError{"SEATNOTFOUND", "seat not found"}
	// ErrReconnectExpired means the claimed seat no longer exists
	ErrReconnectExpired = &GameError{"RECONNECTEXPIRED", "seat is gone, cannot reconnect"}
	// ErrBadRequest is for bad requests
	ErrBadRequest = &GameError{"BADREQUEST", "bad request"}
)
