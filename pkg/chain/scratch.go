/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"context"
	"fmt"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chess"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/store"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

// scratch is a copy-on-write overlay over committed game state. Block
// building, verification and acceptance all replay transactions through the
// same scratch logic, so validity decisions are identical on every path.
// Nothing in a scratch ever leaks into committed state except through
// Store.CommitBlock.
type scratch struct {
	st    store.Store
	games map[uint64]*types.Game
	seen  map[types.ID]struct{}
}

func (e *Engine) newScratch() *scratch {
	return &scratch{
		st:    e.st,
		games: make(map[uint64]*types.Game),
		seen:  make(map[types.ID]struct{}),
	}
}

// game returns the overlay copy of a game, loading and cloning it from
// committed state on first touch.
func (s *scratch) game(ctx context.Context, id uint64) (*types.Game, error) {
	if g, ok := s.games[id]; ok {
		return g, nil
	}
	g, err := s.st.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	s.games[id] = g
	return g, nil
}

// apply validates tx against the overlay and folds in its effect. Any error
// means the transaction is invalid at this point in the replay order; the
// overlay may retain loaded clones but committed state is untouched.
func (s *scratch) apply(ctx context.Context, tx *types.Transaction) error {
	if err := tx.WellFormed(); err != nil {
		return chess.Violationf("malformed transaction: %v", err)
	}

	id := tx.ID()
	if _, ok := s.seen[id]; ok {
		return chess.Violationf("duplicate transaction %s in block", id)
	}
	onChain, err := s.st.HasTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check tx index: %w", err)
	}
	if onChain {
		return chess.Violationf("transaction %s already accepted on chain", id)
	}

	if !tx.VerifySignature() {
		return chess.Violationf("invalid signature on transaction %s", id)
	}

	switch tx.Kind {
	case types.TxCreateGame:
		if err := s.applyCreateGame(ctx, tx); err != nil {
			return err
		}
	case types.TxMove:
		if err := s.applyMove(ctx, tx); err != nil {
			return err
		}
	case types.TxEndGame:
		if err := s.applyEndGame(ctx, tx); err != nil {
			return err
		}
	default:
		return chess.Violationf("unknown transaction kind %d", uint8(tx.Kind))
	}

	s.seen[id] = struct{}{}
	return nil
}

func (s *scratch) applyCreateGame(ctx context.Context, tx *types.Transaction) error {
	gameID := types.GameID(tx.White, tx.Black, tx.Nonce)
	if _, ok := s.games[gameID]; ok {
		return store.ErrDuplicateGame
	}
	exists, err := s.st.GameExists(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to check game existence: %w", err)
	}
	if exists {
		return store.ErrDuplicateGame
	}
	s.games[gameID] = types.NewGame(gameID, tx.White, tx.Black)
	return nil
}

func (s *scratch) applyMove(ctx context.Context, tx *types.Transaction) error {
	g, err := s.game(ctx, tx.GameID)
	if err != nil {
		return err
	}
	if g.Status.Terminal() {
		return chess.Violationf("game %d is %s", g.ID, g.Status)
	}
	if tx.Sender != g.PlayerToMove() {
		return chess.Violationf("it is not %s's turn in game %d", tx.Sender, g.ID)
	}

	board, err := chess.Apply(g.Board, g.Turn, tx.Move())
	if err != nil {
		return err
	}

	g.Board = board
	g.Turn = g.Turn.Other()
	g.MoveCount++
	switch {
	case chess.IsCheckmate(board, g.Turn):
		g.Status = types.StatusCheckmate
	case chess.IsStalemate(board, g.Turn):
		g.Status = types.StatusStalemate
	}
	return nil
}

func (s *scratch) applyEndGame(ctx context.Context, tx *types.Transaction) error {
	g, err := s.game(ctx, tx.GameID)
	if err != nil {
		return err
	}
	if g.Status.Terminal() {
		return chess.Violationf("game %d is already %s", g.ID, g.Status)
	}
	if !g.IsPlayer(tx.Sender) {
		return chess.Violationf("%s is not a player in game %d", tx.Sender, g.ID)
	}
	g.Status = types.StatusResigned
	return nil
}
