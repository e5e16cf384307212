/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mempool holds verified-but-unconfirmed transactions until block
// building drains them.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/logging"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

var logger = logging.New("mempool")

var (
	// ErrDuplicate is returned when the pool already holds the transaction.
	ErrDuplicate = errors.New("transaction already in mempool")
	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("invalid transaction signature")
	// ErrPoolFull is returned when the pool is at capacity.
	ErrPoolFull = errors.New("mempool is full")
)

// Config controls pool limits.
type Config struct {
	Capacity int
}

// Pool is a deduplicated, admission-ordered holding area for transactions.
// Submit is safe for concurrent use by many callers; Drain, Return and Evict
// are called by the chain engine. Admission checks signatures and structure
// only - chess legality depends on chain state and is validated lazily at
// block build and verify time.
type Pool struct {
	mu       sync.Mutex
	capacity int
	txs      map[types.ID]*types.Transaction
	order    []types.ID
}

// New constructs a Pool.
func New(cfg Config) *Pool {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 4096
	}
	return &Pool{
		capacity: cfg.Capacity,
		txs:      make(map[types.ID]*types.Transaction),
	}
}

// Submit admits a transaction after verifying structure and signature.
// Duplicate submissions (same transaction bytes, hence same ID) return
// ErrDuplicate and leave the pool unchanged.
func (p *Pool) Submit(tx *types.Transaction) error {
	if err := tx.WellFormed(); err != nil {
		return fmt.Errorf("malformed transaction: %w", err)
	}
	if !tx.VerifySignature() {
		return ErrInvalidSignature
	}

	id := tx.ID()
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.txs[id]; ok {
		return ErrDuplicate
	}
	if len(p.txs) >= p.capacity {
		return ErrPoolFull
	}
	p.txs[id] = tx
	p.order = append(p.order, id)
	logger.Debugf("admitted %s tx %s", tx.Kind, id)
	return nil
}

// Drain removes and returns up to max transactions in admission order.
func (p *Pool) Drain(max int) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	if max <= 0 || max > len(p.order) {
		max = len(p.order)
	}
	out := make([]*types.Transaction, 0, max)
	for _, id := range p.order[:max] {
		if tx, ok := p.txs[id]; ok {
			out = append(out, tx)
			delete(p.txs, id)
		}
	}
	p.order = append([]types.ID{}, p.order[max:]...)
	return out
}

// Return re-admits transactions from a rejected block, ahead of anything
// admitted since, so their relative order is preserved on the next drain.
// Signatures were verified on first admission and are not re-checked. Returned
// transactions are exempt from the capacity bound: they were already admitted
// once and dropping them here would lose them silently, so the pool may exceed
// Capacity until the next drain.
func (p *Pool) Return(txs []*types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	front := make([]types.ID, 0, len(txs))
	for _, tx := range txs {
		id := tx.ID()
		if _, ok := p.txs[id]; ok {
			continue
		}
		p.txs[id] = tx
		front = append(front, id)
	}
	p.order = append(front, p.order...)
	if len(front) > 0 {
		logger.Debugf("returned %d txs to pool", len(front))
	}
}

// Evict drops the given transaction IDs from the pool. Evicting an absent ID
// is a no-op.
func (p *Pool) Evict(ids []types.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		if _, ok := p.txs[id]; !ok {
			continue
		}
		delete(p.txs, id)
	}
	if len(p.order) > 0 {
		keep := p.order[:0]
		for _, id := range p.order {
			if _, ok := p.txs[id]; ok {
				keep = append(keep, id)
			}
		}
		p.order = keep
	}
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}
