/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chain"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chess"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/mempool"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/store"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

type player struct {
	id   types.Identity
	priv ed25519.PrivateKey
}

func newPlayer(t *testing.T) player {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var id types.Identity
	copy(id[:], pub)
	return player{id: id, priv: priv}
}

type fixture struct {
	engine *chain.Engine
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool := mempool.New(mempool.Config{})
	engine, err := chain.New(context.Background(), store.NewMemoryStore(), pool, chain.Config{})
	require.NoError(t, err)

	srv := httptest.NewServer(NewAPI(engine).Router())
	t.Cleanup(srv.Close)
	return &fixture{engine: engine, server: srv}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) post(t *testing.T, path string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// accept runs one build-verify-accept round so submitted transactions reach
// committed state.
func (f *fixture) accept(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	blk, err := f.engine.BuildBlock(ctx)
	require.NoError(t, err)
	require.NoError(t, f.engine.Verify(ctx, blk))
	require.NoError(t, f.engine.Accept(ctx, blk))
}

func mustMove(t *testing.T, piece, from, to, capture string) chess.Move {
	t.Helper()
	mv, err := parseMove(MoveRequest{Piece: piece, From: from, To: to, Capture: capture})
	require.NoError(t, err)
	return mv
}

func signedCreate(white, black player, nonce uint64) CreateGameRequest {
	tx := types.NewCreateGame(white.id, white.id, black.id, nonce)
	tx.Sign(white.priv)
	return CreateGameRequest{
		Sender:    white.id,
		White:     white.id,
		Black:     black.id,
		Nonce:     nonce,
		Signature: tx.Signature,
	}
}

// TestPing verifies the liveness endpoint.
func TestPing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var out map[string]bool
	code := f.get(t, "/ping", &out)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out["success"])
}

// TestLastAcceptedEndpoint verifies the tip endpoint reports genesis on a
// fresh chain.
func TestLastAcceptedEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var out struct {
		ID     string `json:"id"`
		Height uint64 `json:"height"`
	}
	code := f.get(t, "/chain/lastaccepted", &out)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, types.NewGenesisBlock().ID.String(), out.ID)
	assert.Equal(t, uint64(0), out.Height)
}

// TestCreateGameFlow drives a game from HTTP submission through acceptance
// and reads it back as FEN.
func TestCreateGameFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	white, black := newPlayer(t), newPlayer(t)
	gameID := types.GameID(white.id, black.id, 7)

	// The game does not exist before any block is accepted.
	var existsOut map[string]bool
	code := f.get(t, fmt.Sprintf("/games/%d/exists", gameID), &existsOut)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, existsOut["exists"])

	code = f.get(t, fmt.Sprintf("/games/%d", gameID), nil)
	assert.Equal(t, http.StatusNotFound, code)

	var submitOut SubmitResponse
	code = f.post(t, "/games", signedCreate(white, black, 7), &submitOut)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, submitOut.Accepted)
	assert.Equal(t, gameID, submitOut.GameID)
	assert.NotEmpty(t, submitOut.TxID)

	f.accept(t)

	code = f.get(t, fmt.Sprintf("/games/%d/exists", gameID), &existsOut)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, existsOut["exists"])

	var game GameResponse
	code = f.get(t, fmt.Sprintf("/games/%d", gameID), &game)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, gameID, game.GameID)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", game.FEN)
	assert.Equal(t, "white", game.Turn)
	assert.Equal(t, "ongoing", game.Status)
}

// TestSubmitMoveFlow verifies move submission and the committed position
// after acceptance.
func TestSubmitMoveFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	white, black := newPlayer(t), newPlayer(t)
	gameID := types.GameID(white.id, black.id, 1)

	code := f.post(t, "/games", signedCreate(white, black, 1), nil)
	require.Equal(t, http.StatusOK, code)
	f.accept(t)

	moveTx := types.NewMove(white.id, gameID, mustMove(t, "P", "e2", "e4", ""))
	moveTx.Sign(white.priv)
	var out SubmitResponse
	code = f.post(t, fmt.Sprintf("/games/%d/moves", gameID), MoveRequest{
		Sender:    white.id,
		Piece:     "P",
		From:      "e2",
		To:        "e4",
		Signature: moveTx.Signature,
	}, &out)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out.Accepted)
	f.accept(t)

	var game GameResponse
	code = f.get(t, fmt.Sprintf("/games/%d", gameID), &game)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR", game.FEN)
	assert.Equal(t, "black", game.Turn)
	assert.Equal(t, uint64(1), game.MoveCount)
}

// TestSubmitEndGameFlow verifies resignation over HTTP.
func TestSubmitEndGameFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	white, black := newPlayer(t), newPlayer(t)
	gameID := types.GameID(white.id, black.id, 1)

	code := f.post(t, "/games", signedCreate(white, black, 1), nil)
	require.Equal(t, http.StatusOK, code)
	f.accept(t)

	endTx := types.NewEndGame(black.id, gameID)
	endTx.Sign(black.priv)
	var out SubmitResponse
	code = f.post(t, fmt.Sprintf("/games/%d/end", gameID), EndGameRequest{
		Sender:    black.id,
		Signature: endTx.Signature,
	}, &out)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out.Accepted)
	f.accept(t)

	var game GameResponse
	code = f.get(t, fmt.Sprintf("/games/%d", gameID), &game)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "resigned", game.Status)
}

// TestSubmitRejections covers bad signatures, duplicates and malformed
// requests.
func TestSubmitRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	white, black := newPlayer(t), newPlayer(t)

	t.Run("invalid signature", func(t *testing.T) {
		req := signedCreate(white, black, 1)
		req.Nonce = 2
		var out SubmitResponse
		code := f.post(t, "/games", req, &out)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, out.Accepted)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("duplicate submission", func(t *testing.T) {
		req := signedCreate(white, black, 3)
		code := f.post(t, "/games", req, nil)
		require.Equal(t, http.StatusOK, code)

		var out SubmitResponse
		code = f.post(t, "/games", req, &out)
		assert.Equal(t, http.StatusConflict, code)
		assert.False(t, out.Accepted)
	})

	t.Run("bad move fields", func(t *testing.T) {
		code := f.post(t, "/games/1/moves", MoveRequest{
			Sender: white.id,
			Piece:  "pawn",
			From:   "e2",
			To:     "e4",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, code)

		code = f.post(t, "/games/1/moves", MoveRequest{
			Sender: white.id,
			Piece:  "P",
			From:   "e9",
			To:     "e4",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("non-numeric game id", func(t *testing.T) {
		code := f.get(t, "/games/not-a-number", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

// TestGetBlockEndpoints verifies block retrieval by ID and height.
func TestGetBlockEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	white, black := newPlayer(t), newPlayer(t)

	code := f.post(t, "/games", signedCreate(white, black, 1), nil)
	require.Equal(t, http.StatusOK, code)
	f.accept(t)

	var byHeight types.Block
	code = f.get(t, "/blocks/height/1", &byHeight)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(1), byHeight.Height)
	require.Len(t, byHeight.Txs, 1)

	var byID types.Block
	code = f.get(t, "/blocks/"+byHeight.ID.String(), &byID)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, byHeight.ID, byID.ID)

	code = f.get(t, "/blocks/height/99", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = f.get(t, "/blocks/"+types.ID{0xde, 0xad}.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = f.get(t, "/blocks/zzzz", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
