/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"net/http"
)

// Router returns the HTTP handler for the API.
func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	// -------------------------
	// Query facade
	// -------------------------
	mux.HandleFunc("GET /ping", a.Ping)
	mux.HandleFunc("GET /chain/lastaccepted", a.LastAccepted)
	mux.HandleFunc("GET /blocks/{block_id}", a.GetBlock)
	mux.HandleFunc("GET /blocks/height/{height}", a.GetBlockByHeight)
	mux.HandleFunc("GET /games/{game_id}", a.GetGame)
	mux.HandleFunc("GET /games/{game_id}/exists", a.GameExists)

	// -------------------------
	// Transaction submission
	// -------------------------
	mux.HandleFunc("POST /games", a.SubmitCreateGame)
	mux.HandleFunc("POST /games/{game_id}/moves", a.SubmitMove)
	mux.HandleFunc("POST /games/{game_id}/end", a.SubmitEndGame)

	return mux
}
