/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chess"
)

// TxKind tags the transaction payload variant.
type TxKind uint8

const (
	TxCreateGame TxKind = iota + 1
	TxMove
	TxEndGame
)

func (k TxKind) String() string {
	switch k {
	case TxCreateGame:
		return "create_game"
	case TxMove:
		return "move"
	case TxEndGame:
		return "end_game"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Transaction is an immutable, signed ledger entry. Its ID is the sha256 of
// its canonical bytes (signing bytes plus signature), so identical content
// always yields the identical ID and an ID never repeats across the chain.
//
// CreateGame uses White, Black and Nonce. Move uses GameID plus the move
// fields, with Sender as the mover. EndGame (resignation) uses GameID with
// Sender as the resigning player.
type Transaction struct {
	Kind   TxKind   `json:"kind"`
	Sender Identity `json:"sender"`

	White Identity `json:"white"`
	Black Identity `json:"black"`
	Nonce uint64   `json:"nonce"`

	GameID  uint64          `json:"game_id"`
	Piece   chess.PieceKind `json:"piece"`
	From    chess.Square    `json:"from"`
	To      chess.Square    `json:"to"`
	Capture chess.PieceKind `json:"capture"`

	Signature Signature `json:"signature"`
}

// SigningBytes returns the canonical digest a sender signs: a sha256 over
// every payload field in fixed order. Deterministic by construction.
func (tx *Transaction) SigningBytes() []byte {
	h := sha256.New()
	h.Write([]byte{byte(tx.Kind)})
	h.Write(tx.Sender[:])
	h.Write(tx.White[:])
	h.Write(tx.Black[:])
	h.Write(uint64ToBytes(tx.Nonce))
	h.Write(uint64ToBytes(tx.GameID))
	h.Write([]byte{byte(tx.Piece), byte(tx.From), byte(tx.To), byte(tx.Capture)})
	return h.Sum(nil)
}

// ID returns the transaction's content address.
func (tx *Transaction) ID() ID {
	h := sha256.New()
	h.Write(tx.SigningBytes())
	h.Write(tx.Signature[:])
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}

// Sign signs the transaction with the given private key and stores the
// signature. The key must correspond to tx.Sender.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, tx.SigningBytes())
	copy(tx.Signature[:], sig)
}

// VerifySignature reports whether the signature is valid for the sender over
// the transaction's signing bytes.
func (tx *Transaction) VerifySignature() bool {
	return ed25519.Verify(tx.Sender[:], tx.SigningBytes(), tx.Signature[:])
}

// WellFormed validates structural invariants that hold independently of any
// chain state. Chess legality is not checked here; that happens against
// committed state at block build and verify time.
func (tx *Transaction) WellFormed() error {
	switch tx.Kind {
	case TxCreateGame:
		// Any identity may create a game between any two players.
		return nil
	case TxMove:
		if tx.Piece == chess.NoPiece {
			return errors.New("move transaction names no piece")
		}
		if tx.From > 63 || tx.To > 63 {
			return errors.New("move transaction square out of range")
		}
		if tx.From == tx.To {
			return errors.New("move transaction from and to are equal")
		}
		return nil
	case TxEndGame:
		return nil
	}
	return fmt.Errorf("unknown transaction kind %d", uint8(tx.Kind))
}

// Move returns the chess move carried by a TxMove transaction.
func (tx *Transaction) Move() chess.Move {
	return chess.Move{Piece: tx.Piece, From: tx.From, To: tx.To, Capture: tx.Capture}
}

// NewCreateGame builds an unsigned CreateGame transaction.
func NewCreateGame(sender, white, black Identity, nonce uint64) *Transaction {
	return &Transaction{Kind: TxCreateGame, Sender: sender, White: white, Black: black, Nonce: nonce}
}

// NewMove builds an unsigned Move transaction for the given game.
func NewMove(sender Identity, gameID uint64, m chess.Move) *Transaction {
	return &Transaction{
		Kind: TxMove, Sender: sender, GameID: gameID,
		Piece: m.Piece, From: m.From, To: m.To, Capture: m.Capture,
	}
}

// NewEndGame builds an unsigned EndGame (resignation) transaction.
func NewEndGame(sender Identity, gameID uint64) *Transaction {
	return &Transaction{Kind: TxEndGame, Sender: sender, GameID: gameID}
}
