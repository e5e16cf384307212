/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chess"
)

// GameStatus is the terminal state of a game.
type GameStatus uint8

const (
	StatusOngoing GameStatus = iota
	StatusCheckmate
	StatusStalemate
	StatusResigned
)

func (s GameStatus) String() string {
	switch s {
	case StatusOngoing:
		return "ongoing"
	case StatusCheckmate:
		return "checkmate"
	case StatusStalemate:
		return "stalemate"
	case StatusResigned:
		return "resigned"
	}
	return "unknown"
}

// Terminal reports whether no further moves are accepted.
func (s GameStatus) Terminal() bool { return s != StatusOngoing }

// Game is the committed state of one chess game. It is owned by the store
// and mutated only through accepted Move and EndGame transactions.
type Game struct {
	ID        uint64      `json:"id"`
	White     Identity    `json:"white"`
	Black     Identity    `json:"black"`
	Board     chess.Board `json:"-"`
	Turn      chess.Color `json:"turn"`
	MoveCount uint64      `json:"move_count"`
	Status    GameStatus  `json:"status"`
}

// GameID derives the game identifier from the CreateGame content: the first
// eight bytes of sha256(white || black || nonce). Reproducible on every node
// and collision-resistant across distinct player/nonce combinations.
func GameID(white, black Identity, nonce uint64) uint64 {
	h := sha256.New()
	h.Write(white[:])
	h.Write(black[:])
	h.Write(uint64ToBytes(nonce))
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

// NewGame returns a fresh game at the standard starting position, white to
// move.
func NewGame(id uint64, white, black Identity) *Game {
	return &Game{
		ID:    id,
		White: white,
		Black: black,
		Board: chess.StartingBoard(),
		Turn:  chess.White,
	}
}

// FEN returns the piece-placement field of the current position.
func (g *Game) FEN() string { return g.Board.FEN() }

// PlayerToMove returns the identity whose turn it is.
func (g *Game) PlayerToMove() Identity {
	if g.Turn == chess.White {
		return g.White
	}
	return g.Black
}

// IsPlayer reports whether id is one of the two players.
func (g *Game) IsPlayer(id Identity) bool {
	return id == g.White || id == g.Black
}

// Clone returns an independent copy. Board is a value type, so the copy
// shares nothing with the original.
func (g *Game) Clone() *Game {
	c := *g
	return &c
}
