/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package types defines the ledger data model: identities, content-addressed
// identifiers, transactions, blocks and per-game state.
package types

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ID is a content address: the sha256 of a canonical byte encoding. Blocks
// and transactions are keyed by ID everywhere; an ID is a pure function of
// content, never of memory identity.
type ID [32]byte

// ZeroID is the parent of the genesis block.
var ZeroID ID

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool { return id == ZeroID }

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// MarshalJSON encodes the ID as a hex string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a hex string into the ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return decodeFixedHex(s, id[:], "id")
}

// ParseID parses a 64-character hex string.
func ParseID(s string) (ID, error) {
	var id ID
	err := decodeFixedHex(s, id[:], "id")
	return id, err
}

// Identity is an acting party: an ed25519 public key. Game players and
// transaction senders are identities.
type Identity [ed25519.PublicKeySize]byte

func (i Identity) String() string { return hex.EncodeToString(i[:]) }

// MarshalJSON encodes the identity as a hex string.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON decodes a hex string into the identity.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return decodeFixedHex(s, i[:], "identity")
}

// ParseIdentity parses a 64-character hex string.
func ParseIdentity(s string) (Identity, error) {
	var i Identity
	err := decodeFixedHex(s, i[:], "identity")
	return i, err
}

// Signature is an ed25519 signature over a transaction's signing bytes.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a hex string into the signature.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	return decodeFixedHex(str, s[:], "signature")
}

// ParseSignature parses a 128-character hex string.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	err := decodeFixedHex(s, sig[:], "signature")
	return sig, err
}

func decodeFixedHex(s string, dst []byte, what string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid %s hex: %w", what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("invalid %s length: got %d bytes, want %d", what, len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}

func uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
