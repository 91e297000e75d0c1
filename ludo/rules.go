package ludo

// The rules engine is pure: it inspects seats and describes what a move
// would do, but never mutates anything. The match state machine in game.go
// is the only place outcomes are applied.

// moveOutcome is what one legal move would do.
type moveOutcome struct {
	from Position
	to   Position
	// captured is every opposing piece on the landing square, when that
	// square is on the shared track and not safe.
	captured []PieceState
	// finished means the moving piece reaches home.
	finished bool
}

// pieceTarget computes where a piece would land. A yard piece only leaves
// on a six, onto its own start square. A landing past the end of the home
// column is an overshoot and the move is illegal.
func pieceTarget(p Position, dice int) (Position, error) {
	if p == Home {
		return 0, ErrBadPiece
	}
	if p == Yard {
		if dice != 6 {
			return 0, ErrNoValidMove
		}
		return 0, nil
	}
	t := p + Position(dice)
	if t > PathEnd {
		return 0, ErrOvershoot
	}
	return t, nil
}

// legalPieces lists which of a seat's pieces may move with this roll.
func legalPieces(s *seat, dice int) []int {
	var out []int
	for i, p := range s.pieces {
		if _, err := pieceTarget(p, dice); err == nil {
			out = append(out, i)
		}
	}
	return out
}

// resolveMove validates one chosen move against the rules and describes its
// outcome. seats is read only.
func resolveMove(seats []seat, mover, piece, dice int) (moveOutcome, error) {
	if piece < 0 || piece >= PiecesPerPlayer {
		return moveOutcome{}, ErrBadPiece
	}

	s := &seats[mover]
	from := s.pieces[piece]

	to, err := pieceTarget(from, dice)
	if err != nil {
		return moveOutcome{}, err
	}

	out := moveOutcome{from: from, to: to}

	if to == PathEnd {
		out.finished = true
	}

	// captures happen only on the shared track, never on a safe square
	abs, onTrack := AbsSquare(s.colour, to)
	if onTrack && !SafeSquare(abs) {
		for si := range seats {
			if si == mover {
				// unlimited same-colour stacking
				continue
			}
			o := &seats[si]
			for pi, op := range o.pieces {
				oabs, ok := AbsSquare(o.colour, op)
				if ok && oabs == abs {
					out.captured = append(out.captured, PieceState{
						Colour: o.colour,
						Index:  pi,
						Pos:    op,
					})
				}
			}
		}
	}

	return out, nil
}
