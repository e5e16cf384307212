/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api exposes the query facade and transaction submission over HTTP.
// All reads come from committed state; a submission response means "accepted
// into the mempool", never on-chain confirmation.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chain"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chess"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/logging"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/mempool"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/store"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

var logger = logging.New("api")

// API serves the ledger's HTTP surface.
type API struct {
	engine *chain.Engine
}

// NewAPI constructs the API over a chain engine.
func NewAPI(engine *chain.Engine) *API {
	return &API{engine: engine}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, code int) {
	http.Error(w, msg, code)
}

// Ping reports liveness.
func (a *API) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]bool{"success": a.engine.Ping()})
}

// LastAccepted returns the chain tip.
func (a *API) LastAccepted(w http.ResponseWriter, _ *http.Request) {
	id, height := a.engine.LastAccepted()
	writeJSON(w, map[string]any{"id": id.String(), "height": height})
}

// GetBlock returns a block by hex identifier.
func (a *API) GetBlock(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(r.PathValue("block_id"))
	if err != nil {
		writeError(w, "invalid block id", http.StatusBadRequest)
		return
	}
	blk, err := a.engine.GetBlock(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "block not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("failed to get block %s: %v", id, err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, blk)
}

// GetBlockByHeight returns an accepted block by height.
func (a *API) GetBlockByHeight(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.PathValue("height"), 10, 64)
	if err != nil {
		writeError(w, "invalid height", http.StatusBadRequest)
		return
	}
	blk, err := a.engine.GetBlockByHeight(r.Context(), height)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "block not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("failed to get block at height %d: %v", height, err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, blk)
}

// GameResponse is the committed view of one game.
type GameResponse struct {
	GameID    uint64 `json:"game_id"`
	FEN       string `json:"fen"`
	Turn      string `json:"turn"`
	MoveCount uint64 `json:"move_count"`
	Status    string `json:"status"`
}

// GetGame returns the committed board of a game as FEN.
func (a *API) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("game_id"), 10, 64)
	if err != nil {
		writeError(w, "invalid game id", http.StatusBadRequest)
		return
	}
	g, err := a.engine.GetGame(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("failed to get game %d: %v", id, err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, GameResponse{
		GameID:    g.ID,
		FEN:       g.FEN(),
		Turn:      g.Turn.String(),
		MoveCount: g.MoveCount,
		Status:    g.Status.String(),
	})
}

// GameExists reports whether a game is present in committed state.
func (a *API) GameExists(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("game_id"), 10, 64)
	if err != nil {
		writeError(w, "invalid game id", http.StatusBadRequest)
		return
	}
	exists, err := a.engine.DoesGameExist(r.Context(), id)
	if err != nil {
		logger.Errorf("failed to check game %d: %v", id, err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"exists": exists})
}

// CreateGameRequest submits a signed CreateGame transaction.
type CreateGameRequest struct {
	Sender    types.Identity  `json:"sender"`
	White     types.Identity  `json:"white"`
	Black     types.Identity  `json:"black"`
	Nonce     uint64          `json:"nonce"`
	Signature types.Signature `json:"signature"`
}

// SubmitResponse reports mempool admission, not chain acceptance.
type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	TxID     string `json:"tx_id,omitempty"`
	GameID   uint64 `json:"game_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SubmitCreateGame admits a CreateGame transaction to the mempool and echoes
// the deterministic game identifier it will create.
func (a *API) SubmitCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	tx := types.NewCreateGame(req.Sender, req.White, req.Black, req.Nonce)
	tx.Signature = req.Signature
	a.submit(w, tx, types.GameID(req.White, req.Black, req.Nonce))
}

// MoveRequest submits a signed Move transaction. Piece and capture use FEN
// letters ("P", "n", ...), squares use algebraic notation ("e2").
type MoveRequest struct {
	Sender    types.Identity  `json:"sender"`
	Piece     string          `json:"piece"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Capture   string          `json:"capture,omitempty"`
	Signature types.Signature `json:"signature"`
}

// SubmitMove admits a Move transaction to the mempool.
func (a *API) SubmitMove(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseUint(r.PathValue("game_id"), 10, 64)
	if err != nil {
		writeError(w, "invalid game id", http.StatusBadRequest)
		return
	}
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mv, err := parseMove(req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx := types.NewMove(req.Sender, gameID, mv)
	tx.Signature = req.Signature
	a.submit(w, tx, gameID)
}

// EndGameRequest submits a signed EndGame (resignation) transaction.
type EndGameRequest struct {
	Sender    types.Identity  `json:"sender"`
	Signature types.Signature `json:"signature"`
}

// SubmitEndGame admits an EndGame transaction to the mempool.
func (a *API) SubmitEndGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseUint(r.PathValue("game_id"), 10, 64)
	if err != nil {
		writeError(w, "invalid game id", http.StatusBadRequest)
		return
	}
	var req EndGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	tx := types.NewEndGame(req.Sender, gameID)
	tx.Signature = req.Signature
	a.submit(w, tx, gameID)
}

func (a *API) submit(w http.ResponseWriter, tx *types.Transaction, gameID uint64) {
	if err := a.engine.SubmitTransaction(tx); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, mempool.ErrDuplicate) {
			status = http.StatusConflict
		}
		logger.Warnf("rejected %s submission: %v", tx.Kind, err)
		w.WriteHeader(status)
		writeJSON(w, SubmitResponse{Accepted: false, Error: err.Error()})
		return
	}
	writeJSON(w, SubmitResponse{Accepted: true, TxID: tx.ID().String(), GameID: gameID})
}

func parseMove(req MoveRequest) (chess.Move, error) {
	piece, err := chess.ParsePieceKind(req.Piece)
	if err != nil {
		return chess.Move{}, err
	}
	from, err := chess.ParseSquare(req.From)
	if err != nil {
		return chess.Move{}, err
	}
	to, err := chess.ParseSquare(req.To)
	if err != nil {
		return chess.Move{}, err
	}
	mv := chess.Move{Piece: piece, From: from, To: to}
	if req.Capture != "" {
		capture, err := chess.ParsePieceKind(req.Capture)
		if err != nil {
			return chess.Move{}, err
		}
		mv.Capture = capture
	}
	return mv, nil
}
