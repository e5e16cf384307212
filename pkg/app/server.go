/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package app assembles the ledger node: store, mempool, chain engine and
// the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/api"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chain"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/config"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/logging"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/mempool"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/store"
)

var logger = logging.New("app")

// Server manages the ledger node components.
type Server struct {
	config     *config.Config
	st         store.Store
	pool       *mempool.Pool
	engine     *chain.Engine
	httpServer *http.Server
}

// New creates a Server: opens the configured store (Postgres when enabled,
// in-memory otherwise), initializes the chain at genesis if needed and wires
// the HTTP API.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	var (
		st  store.Store
		err error
	)
	if cfg.DB.Enabled {
		st, err = store.NewPostgres(ctx, store.Config{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DBName:   cfg.DB.DBName,
			SSLMode:  cfg.DB.SSLMode,
		})
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("database disabled, using in-memory store")
		st = store.NewMemoryStore()
	}

	pool := mempool.New(mempool.Config{Capacity: cfg.Mempool.Capacity})

	engine, err := chain.New(ctx, st, pool, chain.Config{
		MaxBlockTxs:      cfg.Chain.MaxBlockTxs,
		AllowEmptyBlocks: cfg.Chain.AllowEmptyBlocks,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	apiServer := api.NewAPI(engine)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: apiServer.Router(),
	}

	return &Server{
		config:     cfg,
		st:         st,
		pool:       pool,
		engine:     engine,
		httpServer: httpServer,
	}, nil
}

// Engine exposes the chain state machine to the host consensus driver.
func (s *Server) Engine() *chain.Engine { return s.engine }

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("HTTP API running on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown requested")
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the HTTP server and closes the store.
func (s *Server) Shutdown() error {
	shutdownTimeout := time.Duration(s.config.Server.ShutdownTimeoutSec) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown error: %v", err)
	} else {
		logger.Info("http server shutdown complete")
	}

	s.st.Close()
	return nil
}
