/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedBlock marks bytes that do not decode into a block.
	ErrMalformedBlock = errors.New("malformed block")
	// ErrIdentifierMismatch marks a decoded block whose embedded identifier
	// does not match the identifier recomputed from its contents.
	ErrIdentifierMismatch = errors.New("block identifier mismatch")
)

// Block is an ordered, content-addressed batch of transactions extending the
// chain. The genesis block has height 0 and a zero parent. A block's ID is
// the sha256 of its canonical payload encoding, so rebuilding a block from
// the same parent and transactions yields the same ID.
type Block struct {
	ID        ID            `json:"id"`
	ParentID  ID            `json:"parent"`
	Height    uint64        `json:"height"`
	Timestamp int64         `json:"timestamp"`
	Txs       []Transaction `json:"txs"`
}

// blockPayload is the canonical encoding the ID is computed over: every
// field except the ID itself.
type blockPayload struct {
	ParentID  ID            `json:"parent"`
	Height    uint64        `json:"height"`
	Timestamp int64         `json:"timestamp"`
	Txs       []Transaction `json:"txs"`
}

// NewBlock assembles a block and computes its identifier.
func NewBlock(parent ID, height uint64, timestamp int64, txs []Transaction) *Block {
	b := &Block{ParentID: parent, Height: height, Timestamp: timestamp, Txs: txs}
	b.ID = b.ComputeID()
	return b
}

// NewGenesisBlock returns the deterministic height-0 block every instance
// agrees on: zero parent, zero timestamp, no transactions.
func NewGenesisBlock() *Block {
	return NewBlock(ZeroID, 0, 0, nil)
}

// ComputeID recomputes the content address from the block's payload.
func (b *Block) ComputeID() ID {
	payload, err := json.Marshal(blockPayload{
		ParentID:  b.ParentID,
		Height:    b.Height,
		Timestamp: b.Timestamp,
		Txs:       b.Txs,
	})
	if err != nil {
		// Marshalling fixed-shape structs cannot fail.
		panic(fmt.Sprintf("block payload encoding: %v", err))
	}
	return ID(sha256.Sum256(payload))
}

// Encode serializes the block, embedded identifier included.
func (b *Block) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBlock deserializes a block and verifies its content address. Returns
// ErrMalformedBlock for undecodable bytes and ErrIdentifierMismatch when the
// embedded identifier disagrees with the recomputed one.
func DecodeBlock(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
	}
	if b.Height == 0 && !b.ParentID.IsZero() {
		return nil, fmt.Errorf("%w: genesis block with non-zero parent", ErrMalformedBlock)
	}
	if b.Height > 0 && b.ParentID.IsZero() {
		return nil, fmt.Errorf("%w: block at height %d with zero parent", ErrMalformedBlock, b.Height)
	}
	if got := b.ComputeID(); got != b.ID {
		return nil, fmt.Errorf("%w: embedded %s, computed %s", ErrIdentifierMismatch, b.ID, got)
	}
	return &b, nil
}

// TxIDs returns the identifiers of the block's transactions in order.
func (b *Block) TxIDs() []ID {
	ids := make([]ID, len(b.Txs))
	for i := range b.Txs {
		ids[i] = b.Txs[i].ID()
	}
	return ids
}
