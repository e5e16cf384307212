/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package chain implements the block state machine driven by the host
// consensus layer: build, parse, verify, accept, reject. Verification only
// ever touches scratch copies of committed state; acceptance commits
// atomically through the store.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/logging"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/mempool"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/store"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

var logger = logging.New("chain")

var (
	// ErrParentMismatch marks a verify request whose parent is not the
	// current last-accepted block. Stale or out-of-order, not fatal.
	ErrParentMismatch = errors.New("block parent is not the last-accepted block")
	// ErrEmptyBlock is returned by BuildBlock when no transaction survives
	// validation and empty blocks are not allowed.
	ErrEmptyBlock = errors.New("no valid transactions for block")
	// ErrInvalidTimestamp marks a block whose timestamp precedes its
	// parent's or sits too far ahead of local time.
	ErrInvalidTimestamp = errors.New("invalid block timestamp")
	// ErrHalted is returned once a storage failure during accept has made
	// further acceptance unsafe.
	ErrHalted = errors.New("chain halted after storage failure")
)

// maxClockSkew bounds how far ahead of local time a proposed block timestamp
// may sit before verification rejects it.
const maxClockSkew = time.Hour

// Config controls engine policy.
type Config struct {
	// MaxBlockTxs caps how many transactions one block drains from the
	// mempool. Zero means no cap.
	MaxBlockTxs int
	// AllowEmptyBlocks lets BuildBlock produce a block with no transactions
	// instead of returning ErrEmptyBlock.
	AllowEmptyBlocks bool
}

// Engine is the chain state machine. One consensus driver calls BuildBlock,
// Verify, Accept and Reject for the active tip; queries may run concurrently
// and observe only fully committed state.
type Engine struct {
	cfg  Config
	st   store.Store
	pool *mempool.Pool

	// mu guards the tip pointer, the verified-block cache and the halted
	// flag. Held exclusively for the whole of Accept so readers never see a
	// half-applied block.
	mu         sync.RWMutex
	lastID     types.ID
	lastHeight uint64
	verified   map[types.ID]*types.Block
	halted     bool
}

// New opens the engine over a store, committing the deterministic genesis
// block if the store is empty.
func New(ctx context.Context, st store.Store, pool *mempool.Pool, cfg Config) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		st:       st,
		pool:     pool,
		verified: make(map[types.ID]*types.Block),
	}

	id, height, err := st.LastAccepted(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		genesis := types.NewGenesisBlock()
		if err := st.CommitBlock(ctx, genesis, nil); err != nil {
			return nil, fmt.Errorf("failed to commit genesis block: %w", err)
		}
		e.lastID, e.lastHeight = genesis.ID, 0
		logger.Infof("initialized chain at genesis %s", genesis.ID)
	case err != nil:
		return nil, fmt.Errorf("failed to load last-accepted pointer: %w", err)
	default:
		e.lastID, e.lastHeight = id, height
		logger.Infof("resumed chain at height %d (%s)", height, id)
	}
	return e, nil
}

// BuildBlock drains the mempool and assembles the next block on top of the
// last-accepted tip. Each drained transaction is replayed in admission order
// against a scratch copy of committed state; transactions that fail are
// dropped from the block and not retried.
func (e *Engine) BuildBlock(ctx context.Context) (*types.Block, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	drained := e.pool.Drain(e.cfg.MaxBlockTxs)
	s := e.newScratch()
	valid := make([]types.Transaction, 0, len(drained))
	for _, tx := range drained {
		if err := s.apply(ctx, tx); err != nil {
			logger.Warnf("dropping %s tx %s from block: %v", tx.Kind, tx.ID(), err)
			continue
		}
		valid = append(valid, *tx)
	}

	if len(valid) == 0 && !e.cfg.AllowEmptyBlocks {
		return nil, ErrEmptyBlock
	}

	blk := types.NewBlock(e.lastID, e.lastHeight+1, time.Now().Unix(), valid)
	logger.Infof("built block %d (%s) with %d txs", blk.Height, blk.ID, len(valid))
	return blk, nil
}

// ParseBlock deserializes a content-addressed block, verifying that the
// embedded identifier matches the contents.
func (e *Engine) ParseBlock(data []byte) (*types.Block, error) {
	return types.DecodeBlock(data)
}

// Verify replays the block against a scratch copy of committed state. It
// never mutates committed state, so an abandoned verification has no side
// effects. The whole block stands or falls together: one invalid transaction
// fails the block.
func (e *Engine) Verify(ctx context.Context, blk *types.Block) error {
	e.mu.RLock()
	// Already accepted or already verified blocks pass trivially.
	if _, err := e.st.GetBlock(ctx, blk.ID); err == nil {
		e.mu.RUnlock()
		return nil
	}
	if _, ok := e.verified[blk.ID]; ok {
		e.mu.RUnlock()
		return nil
	}

	if blk.ParentID != e.lastID {
		e.mu.RUnlock()
		return fmt.Errorf("%w: parent %s, tip %s", ErrParentMismatch, blk.ParentID, e.lastID)
	}
	if blk.Height != e.lastHeight+1 {
		e.mu.RUnlock()
		return fmt.Errorf("%w: height %d does not extend tip height %d",
			ErrParentMismatch, blk.Height, e.lastHeight)
	}

	parent, err := e.st.GetBlock(ctx, blk.ParentID)
	if err != nil {
		e.mu.RUnlock()
		return fmt.Errorf("failed to load parent block: %w", err)
	}
	if blk.Timestamp < parent.Timestamp {
		e.mu.RUnlock()
		return fmt.Errorf("%w: block timestamp %d precedes parent timestamp %d",
			ErrInvalidTimestamp, blk.Timestamp, parent.Timestamp)
	}
	if blk.Timestamp > time.Now().Add(maxClockSkew).Unix() {
		e.mu.RUnlock()
		return fmt.Errorf("%w: block timestamp %d too far in the future",
			ErrInvalidTimestamp, blk.Timestamp)
	}

	s := e.newScratch()
	for i := range blk.Txs {
		if err := s.apply(ctx, &blk.Txs[i]); err != nil {
			e.mu.RUnlock()
			return fmt.Errorf("tx %d invalid: %w", i, err)
		}
	}
	e.mu.RUnlock()

	e.mu.Lock()
	e.verified[blk.ID] = blk
	e.mu.Unlock()
	logger.Debugf("verified block %d (%s)", blk.Height, blk.ID)
	return nil
}

// Accept commits the block: every transaction effect, the block record and
// the last-accepted pointer become durably visible together. Included
// transactions are evicted from the mempool. A storage failure here halts
// all further accepts - a partially committed accept would break the single
// source of truth.
func (e *Engine) Accept(ctx context.Context, blk *types.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted {
		return ErrHalted
	}
	if blk.ParentID != e.lastID {
		return fmt.Errorf("%w: cannot accept %s onto tip %s", ErrParentMismatch, blk.ID, e.lastID)
	}

	s := e.newScratch()
	for i := range blk.Txs {
		if err := s.apply(ctx, &blk.Txs[i]); err != nil {
			return fmt.Errorf("accept of unverified block %s: tx %d invalid: %w", blk.ID, i, err)
		}
	}

	if err := e.st.CommitBlock(ctx, blk, s.dirtyGames()); err != nil {
		e.halted = true
		logger.Errorf("storage failure committing block %s, halting accepts: %v", blk.ID, err)
		return fmt.Errorf("failed to commit block %s: %w", blk.ID, err)
	}

	e.lastID = blk.ID
	e.lastHeight = blk.Height
	delete(e.verified, blk.ID)
	e.pool.Evict(blk.TxIDs())
	logger.Infof("accepted block %d (%s) with %d txs", blk.Height, blk.ID, len(blk.Txs))
	return nil
}

// Reject discards the block. Its transactions go back to the mempool for
// reconsideration; committed state is untouched.
func (e *Engine) Reject(_ context.Context, blk *types.Block) error {
	e.mu.Lock()
	delete(e.verified, blk.ID)
	e.mu.Unlock()

	txs := make([]*types.Transaction, len(blk.Txs))
	for i := range blk.Txs {
		txs[i] = &blk.Txs[i]
	}
	e.pool.Return(txs)
	logger.Infof("rejected block %d (%s), returned %d txs", blk.Height, blk.ID, len(txs))
	return nil
}

// GetBlock returns a block by identifier, serving verified-but-undecided
// blocks from the in-memory cache before consulting the store.
func (e *Engine) GetBlock(ctx context.Context, id types.ID) (*types.Block, error) {
	e.mu.RLock()
	if b, ok := e.verified[id]; ok {
		e.mu.RUnlock()
		return b, nil
	}
	e.mu.RUnlock()
	return e.st.GetBlock(ctx, id)
}

// GetBlockByHeight returns an accepted block by height.
func (e *Engine) GetBlockByHeight(ctx context.Context, height uint64) (*types.Block, error) {
	return e.st.GetBlockByHeight(ctx, height)
}

// LastAccepted returns the current chain tip.
func (e *Engine) LastAccepted() (types.ID, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastID, e.lastHeight
}

// Ping reports liveness.
func (e *Engine) Ping() bool { return true }

// DoesGameExist reports whether a game is present in committed state.
func (e *Engine) DoesGameExist(ctx context.Context, id uint64) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.GameExists(ctx, id)
}

// GetGame returns the committed state of a game.
func (e *Engine) GetGame(ctx context.Context, id uint64) (*types.Game, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.GetGame(ctx, id)
}

// SubmitTransaction admits a transaction to the mempool. Success means
// "accepted into the mempool", not on-chain acceptance.
func (e *Engine) SubmitTransaction(tx *types.Transaction) error {
	return e.pool.Submit(tx)
}

// dirtyGames returns the scratch state's touched games in deterministic
// (ascending ID) order for the commit.
func (s *scratch) dirtyGames() []*types.Game {
	ids := make([]uint64, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*types.Game, len(ids))
	for i, id := range ids {
		out[i] = s.games[id]
	}
	return out
}
