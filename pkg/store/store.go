/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package store persists accepted chain state: blocks indexed by identifier
// and height, the last-accepted pointer, the game table and the accepted
// transaction index.
package store

import (
	"context"
	"errors"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

var (
	// ErrNotFound is returned for absent blocks, games and an uninitialized
	// last-accepted pointer.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateGame is returned when a game identifier already exists.
	ErrDuplicateGame = errors.New("game already exists")
)

// Store is the single source of truth for committed state. CommitBlock is
// atomic: either the block, its transaction index entries, every game update
// and the pointer advance become visible together, or none do. Only accepted
// blocks reach the store; rejected blocks are never persisted.
type Store interface {
	// CommitBlock durably applies an accepted block: the block record, its
	// transactions in the accepted index, the updated games and the
	// last-accepted pointer, all-or-nothing.
	CommitBlock(ctx context.Context, b *types.Block, games []*types.Game) error

	// GetBlock returns the accepted block with the given identifier.
	GetBlock(ctx context.Context, id types.ID) (*types.Block, error)
	// GetBlockByHeight returns the accepted block at the given height.
	GetBlockByHeight(ctx context.Context, height uint64) (*types.Block, error)
	// LastAccepted returns the current chain tip. ErrNotFound before genesis
	// has been committed.
	LastAccepted(ctx context.Context) (types.ID, uint64, error)

	// HasTransaction reports whether a transaction was included in any
	// accepted block (chain-wide replay protection).
	HasTransaction(ctx context.Context, id types.ID) (bool, error)

	// GetGame returns the committed state of a game. Implementations must
	// return an independent copy: callers mutate the result during block
	// replay, and a shared pointer would leak uncommitted changes into
	// committed state.
	GetGame(ctx context.Context, id uint64) (*types.Game, error)
	// GameExists reports whether a game identifier is present.
	GameExists(ctx context.Context, id uint64) (bool, error)

	// Close releases underlying resources.
	Close()
}
