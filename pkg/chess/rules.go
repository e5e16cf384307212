/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chess

import "fmt"

// Move is the wire-level move contract: the mover names the piece being
// moved, its source and destination, and - when capturing - the exact kind of
// the captured piece. The explicit capture declaration is deliberate: a move
// that misstates what sits on the destination square is rejected rather than
// silently corrected.
type Move struct {
	Piece   PieceKind
	From    Square
	To      Square
	Capture PieceKind // NoPiece when the move declares no capture
}

func (m Move) String() string {
	if m.Capture != NoPiece {
		return fmt.Sprintf("%s %s x%s %s", m.Piece, m.From, m.Capture, m.To)
	}
	return fmt.Sprintf("%s %s-%s", m.Piece, m.From, m.To)
}

// RuleViolation is the rejection signal from move validation. It is always
// recoverable: the move (or the block carrying it) is discarded and committed
// state is untouched.
type RuleViolation struct {
	Reason string
}

func (e *RuleViolation) Error() string {
	return "rule violation: " + e.Reason
}

// Violationf builds a RuleViolation. Exported so the chain replay layer can
// report transaction-level failures (bad signature, wrong turn, unknown game)
// in the same taxonomy as illegal moves.
func Violationf(format string, args ...any) *RuleViolation {
	return &RuleViolation{Reason: fmt.Sprintf(format, args...)}
}

// Apply validates m for the side whose turn it is and returns the resulting
// board. The input board is never modified. Identical inputs always produce
// identical results.
//
// Unsupported special moves (castling, en passant, promotion) are rejected
// explicitly rather than mis-applied.
func Apply(b Board, turn Color, m Move) (Board, error) {
	if m.From == m.To {
		return b, Violationf("move from %s to itself", m.From)
	}
	p := b[m.From]
	if p.IsEmpty() {
		return b, Violationf("no piece on %s", m.From)
	}
	if p.Color != turn {
		return b, Violationf("piece on %s belongs to %s, but it is %s's turn", m.From, p.Color, turn)
	}
	if p.Kind != m.Piece {
		return b, Violationf("piece on %s is a %s, move declares %s", m.From, p.Kind, m.Piece)
	}

	dest := b[m.To]
	if !dest.IsEmpty() && dest.Color == turn {
		return b, Violationf("%s is occupied by own %s", m.To, dest.Kind)
	}
	if m.Capture != NoPiece {
		if dest.IsEmpty() {
			return b, Violationf("move declares capture of %s but %s is empty", m.Capture, m.To)
		}
		if dest.Kind != m.Capture {
			return b, Violationf("move declares capture of %s but %s holds %s", m.Capture, m.To, dest.Kind)
		}
	} else if !dest.IsEmpty() {
		return b, Violationf("%s holds %s but the move declares no capture", m.To, dest.Kind)
	}

	if err := checkGeometry(b, turn, m, !dest.IsEmpty()); err != nil {
		return b, err
	}

	next := b
	next[m.To] = p
	next[m.From] = Piece{}
	if InCheck(next, turn) {
		return b, Violationf("move leaves own king in check")
	}
	return next, nil
}

// checkGeometry validates the movement pattern of the piece, including path
// clearance for sliding pieces. capture reports whether the destination is
// occupied by an enemy piece.
func checkGeometry(b Board, turn Color, m Move, capture bool) error {
	df := m.To.File() - m.From.File()
	dr := m.To.Rank() - m.From.Rank()

	switch m.Piece {
	case Pawn:
		return checkPawn(b, turn, m, capture, df, dr)
	case Knight:
		if (abs(df) == 1 && abs(dr) == 2) || (abs(df) == 2 && abs(dr) == 1) {
			return nil
		}
		return Violationf("knight cannot move %s-%s", m.From, m.To)
	case Bishop:
		if abs(df) != abs(dr) {
			return Violationf("bishop cannot move %s-%s", m.From, m.To)
		}
		return checkPathClear(b, m)
	case Rook:
		if df != 0 && dr != 0 {
			return Violationf("rook cannot move %s-%s", m.From, m.To)
		}
		return checkPathClear(b, m)
	case Queen:
		if df != 0 && dr != 0 && abs(df) != abs(dr) {
			return Violationf("queen cannot move %s-%s", m.From, m.To)
		}
		return checkPathClear(b, m)
	case King:
		if abs(df) == 2 && dr == 0 {
			return Violationf("castling is not supported")
		}
		if abs(df) <= 1 && abs(dr) <= 1 {
			return nil
		}
		return Violationf("king cannot move %s-%s", m.From, m.To)
	}
	return Violationf("unknown piece kind %d", m.Piece)
}

func checkPawn(b Board, turn Color, m Move, capture bool, df, dr int) error {
	dir, startRank, lastRank := 1, 1, 7
	if turn == Black {
		dir, startRank, lastRank = -1, 6, 0
	}

	// Promotion is not implemented; a pawn may never reach the final rank.
	if m.To.Rank() == lastRank {
		return Violationf("pawn promotion is not supported")
	}

	switch {
	case df == 0 && dr == dir:
		if capture {
			return Violationf("pawn cannot capture straight ahead")
		}
		return nil
	case df == 0 && dr == 2*dir:
		if m.From.Rank() != startRank {
			return Violationf("pawn double-step only from its starting rank")
		}
		if !b[Sq(m.From.File(), m.From.Rank()+dir)].IsEmpty() {
			return Violationf("pawn double-step is blocked")
		}
		if capture {
			return Violationf("pawn cannot capture straight ahead")
		}
		return nil
	case abs(df) == 1 && dr == dir:
		if !capture {
			return Violationf("pawn moves diagonally only when capturing (en passant is not supported)")
		}
		return nil
	}
	return Violationf("pawn cannot move %s-%s", m.From, m.To)
}

// checkPathClear verifies every square strictly between From and To is empty.
// Callers guarantee the move lies on a rank, file or diagonal.
func checkPathClear(b Board, m Move) error {
	df := sign(m.To.File() - m.From.File())
	dr := sign(m.To.Rank() - m.From.Rank())
	f, r := m.From.File()+df, m.From.Rank()+dr
	for f != m.To.File() || r != m.To.Rank() {
		if !b[Sq(f, r)].IsEmpty() {
			return Violationf("path %s-%s is blocked at %s", m.From, m.To, Sq(f, r))
		}
		f += df
		r += dr
	}
	return nil
}

// InCheck reports whether c's king is attacked. Boards without a king (only
// reachable in hand-built positions) are never in check.
func InCheck(b Board, c Color) bool {
	king, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	enemy := c.Other()
	for s := Square(0); s < 64; s++ {
		p := b[s]
		if p.IsEmpty() || p.Color != enemy {
			continue
		}
		if attacks(b, s, king) {
			return true
		}
	}
	return false
}

// attacks reports whether the piece on from attacks the square to, ignoring
// whose turn it is.
func attacks(b Board, from, to Square) bool {
	p := b[from]
	df := to.File() - from.File()
	dr := to.Rank() - from.Rank()

	switch p.Kind {
	case Pawn:
		dir := 1
		if p.Color == Black {
			dir = -1
		}
		return abs(df) == 1 && dr == dir
	case Knight:
		return (abs(df) == 1 && abs(dr) == 2) || (abs(df) == 2 && abs(dr) == 1)
	case Bishop:
		return abs(df) == abs(dr) && df != 0 && pathClear(b, from, to)
	case Rook:
		return (df == 0) != (dr == 0) && pathClear(b, from, to)
	case Queen:
		if df == 0 && dr == 0 {
			return false
		}
		return (df == 0 || dr == 0 || abs(df) == abs(dr)) && pathClear(b, from, to)
	case King:
		return (df != 0 || dr != 0) && abs(df) <= 1 && abs(dr) <= 1
	}
	return false
}

func pathClear(b Board, from, to Square) bool {
	return checkPathClear(b, Move{From: from, To: to}) == nil
}

// HasLegalMove reports whether c has at least one legal move on b. Used for
// checkmate and stalemate detection: a side to move with no legal move is
// checkmated if in check, stalemated otherwise.
func HasLegalMove(b Board, c Color) bool {
	for from := Square(0); from < 64; from++ {
		p := b[from]
		if p.IsEmpty() || p.Color != c {
			continue
		}
		for to := Square(0); to < 64; to++ {
			if to == from {
				continue
			}
			m := Move{Piece: p.Kind, From: from, To: to}
			if dest := b[to]; !dest.IsEmpty() && dest.Color != c {
				m.Capture = dest.Kind
			}
			if _, err := Apply(b, c, m); err == nil {
				return true
			}
		}
	}
	return false
}

// IsCheckmate reports whether c, to move, is checkmated on b.
func IsCheckmate(b Board, c Color) bool {
	return InCheck(b, c) && !HasLegalMove(b, c)
}

// IsStalemate reports whether c, to move, is stalemated on b.
func IsStalemate(b Board, c Color) bool {
	return !InCheck(b, c) && !HasLegalMove(b, c)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
