/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package chess implements the deterministic move validation core: board
// representation, FEN encoding and the legality rules applied during block
// replay. It has no dependencies outside the standard library and no sources
// of nondeterminism.
package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side. White moves first.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceKind identifies a chessman. The zero value means "no piece".
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{0, 'P', 'N', 'B', 'R', 'Q', 'K'}

// Letter returns the upper-case FEN letter for the kind, or 0 for NoPiece.
func (k PieceKind) Letter() byte {
	if k == NoPiece || int(k) >= len(kindLetters) {
		return 0
	}
	return kindLetters[k]
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

// ParsePieceKind accepts a single FEN-style letter ("P", "n", ...) in either
// case and returns the kind it names.
func ParsePieceKind(s string) (PieceKind, error) {
	if len(s) != 1 {
		return NoPiece, fmt.Errorf("invalid piece %q", s)
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	for k, l := range kindLetters {
		if l != 0 && l == c {
			return PieceKind(k), nil
		}
	}
	return NoPiece, fmt.Errorf("invalid piece %q", s)
}

// Piece is an occupant of a square. The zero value is an empty square.
type Piece struct {
	Kind  PieceKind
	Color Color
}

// IsEmpty reports whether the square holds no piece.
func (p Piece) IsEmpty() bool { return p.Kind == NoPiece }

func (p Piece) letter() byte {
	l := p.Kind.Letter()
	if l == 0 {
		return 0
	}
	if p.Color == Black {
		l += 'a' - 'A'
	}
	return l
}

// Square indexes the board: 0 = a1, 7 = h1, 56 = a8, 63 = h8.
type Square uint8

// Sq builds a square from zero-based file (a=0) and rank (1st=0).
func Sq(file, rank int) Square { return Square(rank*8 + file) }

// File returns the zero-based file of the square.
func (s Square) File() int { return int(s) % 8 }

// Rank returns the zero-based rank of the square.
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) String() string {
	return fmt.Sprintf("%c%d", 'a'+s.File(), s.Rank()+1)
}

// ParseSquare parses algebraic notation such as "e2".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("invalid square %q", s)
	}
	return Sq(int(s[0]-'a'), int(s[1]-'1')), nil
}

// Board is an 8x8 grid of optional pieces, indexed by Square. It is a value
// type: copying the board copies the position.
type Board [64]Piece

// StartingBoard returns the standard initial position.
func StartingBoard() Board {
	var b Board
	back := [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f := 0; f < 8; f++ {
		b[Sq(f, 0)] = Piece{Kind: back[f], Color: White}
		b[Sq(f, 1)] = Piece{Kind: Pawn, Color: White}
		b[Sq(f, 6)] = Piece{Kind: Pawn, Color: Black}
		b[Sq(f, 7)] = Piece{Kind: back[f], Color: Black}
	}
	return b
}

// FEN returns the piece-placement field of Forsyth-Edwards Notation,
// e.g. "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" for the start position.
func (b Board) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b[Sq(file, rank)]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte('0' + byte(empty))
				empty = 0
			}
			sb.WriteByte(p.letter())
		}
		if empty > 0 {
			sb.WriteByte('0' + byte(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// ParseFEN parses the piece-placement field of a FEN string. Fields after the
// placement (side to move, castling, ...) are ignored if present; the ledger
// tracks side-to-move and move counts outside the board.
func ParseFEN(s string) (Board, error) {
	var b Board
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	ranks := strings.Split(s, "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("fen: expected 8 ranks, got %d", len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			if file > 7 {
				return b, fmt.Errorf("fen: rank %d overflows", rank+1)
			}
			color := White
			if c >= 'a' && c <= 'z' {
				color = Black
			}
			kind, err := ParsePieceKind(string(c))
			if err != nil {
				return b, fmt.Errorf("fen: %w", err)
			}
			b[Sq(file, rank)] = Piece{Kind: kind, Color: color}
			file++
		}
		if file != 8 {
			return b, fmt.Errorf("fen: rank %d has %d files", rank+1, file)
		}
	}
	return b, nil
}

// KingSquare returns the square of c's king. ok is false when the board holds
// no such king, which only occurs in hand-built test positions.
func (b Board) KingSquare(c Color) (Square, bool) {
	for s := Square(0); s < 64; s++ {
		p := b[s]
		if p.Kind == King && p.Color == c {
			return s, true
		}
	}
	return 0, false
}
