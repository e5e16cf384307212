/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"sync"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

// MemoryStore is the in-process Store used for tests and single-node runs
// without a database. A single mutex makes CommitBlock atomic with respect
// to concurrent readers.
type MemoryStore struct {
	mu         sync.RWMutex
	blocks     map[types.ID]*types.Block
	byHeight   map[uint64]types.ID
	games      map[uint64]*types.Game
	txs        map[types.ID]struct{}
	lastID     types.ID
	lastHeight uint64
	hasTip     bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocks:   make(map[types.ID]*types.Block),
		byHeight: make(map[uint64]types.ID),
		games:    make(map[uint64]*types.Game),
		txs:      make(map[types.ID]struct{}),
	}
}

// CommitBlock implements Store.
func (m *MemoryStore) CommitBlock(_ context.Context, b *types.Block, games []*types.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[b.ID] = b
	m.byHeight[b.Height] = b.ID
	for _, id := range b.TxIDs() {
		m.txs[id] = struct{}{}
	}
	for _, g := range games {
		m.games[g.ID] = g.Clone()
	}
	m.lastID = b.ID
	m.lastHeight = b.Height
	m.hasTip = true
	return nil
}

// GetBlock implements Store.
func (m *MemoryStore) GetBlock(_ context.Context, id types.ID) (*types.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blocks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// GetBlockByHeight implements Store.
func (m *MemoryStore) GetBlockByHeight(_ context.Context, height uint64) (*types.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byHeight[height]
	if !ok {
		return nil, ErrNotFound
	}
	return m.blocks[id], nil
}

// LastAccepted implements Store.
func (m *MemoryStore) LastAccepted(_ context.Context) (types.ID, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasTip {
		return types.ZeroID, 0, ErrNotFound
	}
	return m.lastID, m.lastHeight, nil
}

// HasTransaction implements Store.
func (m *MemoryStore) HasTransaction(_ context.Context, id types.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.txs[id]
	return ok, nil
}

// GetGame implements Store.
func (m *MemoryStore) GetGame(_ context.Context, id uint64) (*types.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

// GameExists implements Store.
func (m *MemoryStore) GameExists(_ context.Context, id uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.games[id]
	return ok, nil
}

// Close implements Store.
func (m *MemoryStore) Close() {}
