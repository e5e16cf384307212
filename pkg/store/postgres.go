/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/chess"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/logging"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/types"
)

var logger = logging.New("store")

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

const schema = `
CREATE TABLE IF NOT EXISTS blocks (
	id        BYTEA PRIMARY KEY,
	height    BIGINT NOT NULL UNIQUE,
	parent_id BYTEA NOT NULL,
	payload   BYTEA NOT NULL
);
CREATE TABLE IF NOT EXISTS chain_state (
	k        TEXT PRIMARY KEY,
	block_id BYTEA NOT NULL,
	height   BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS games (
	id         BIGINT PRIMARY KEY,
	white      BYTEA NOT NULL,
	black      BYTEA NOT NULL,
	fen        TEXT NOT NULL,
	turn       SMALLINT NOT NULL,
	move_count BIGINT NOT NULL,
	status     SMALLINT NOT NULL
);
CREATE TABLE IF NOT EXISTS accepted_txs (
	id       BYTEA PRIMARY KEY,
	block_id BYTEA NOT NULL
);
`

const lastAcceptedKey = "last_accepted"

// PostgresStore is the durable Store backed by Postgres via pgx. CommitBlock
// runs in a single SQL transaction, which gives acceptance its all-or-nothing
// guarantee.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to Postgres, retrying with exponential backoff until
// the context expires, and initializes the schema.
func NewPostgres(ctx context.Context, cfg Config) (*PostgresStore, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 10 * time.Second
	eb.MaxElapsedTime = 2 * time.Minute

	err = backoff.Retry(func() error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warnf("postgres not reachable yet: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Infof("connected to postgres %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &PostgresStore{pool: pool}, nil
}

// CommitBlock implements Store.
func (s *PostgresStore) CommitBlock(ctx context.Context, b *types.Block, games []*types.Game) error {
	payload, err := b.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode block %s: %w", b.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx,
		`INSERT INTO blocks (id, height, parent_id, payload) VALUES ($1, $2, $3, $4)`,
		b.ID[:], int64(b.Height), b.ParentID[:], payload,
	); err != nil {
		return fmt.Errorf("failed to insert block %s: %w", b.ID, err)
	}

	for _, txID := range b.TxIDs() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accepted_txs (id, block_id) VALUES ($1, $2)`,
			txID[:], b.ID[:],
		); err != nil {
			return fmt.Errorf("failed to index tx %s: %w", txID, err)
		}
	}

	for _, g := range games {
		if _, err := tx.Exec(ctx,
			`INSERT INTO games (id, white, black, fen, turn, move_count, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET
			   fen = EXCLUDED.fen, turn = EXCLUDED.turn,
			   move_count = EXCLUDED.move_count, status = EXCLUDED.status`,
			int64(g.ID), g.White[:], g.Black[:], g.FEN(),
			int16(g.Turn), int64(g.MoveCount), int16(g.Status),
		); err != nil {
			return fmt.Errorf("failed to upsert game %d: %w", g.ID, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO chain_state (k, block_id, height) VALUES ($1, $2, $3)
		 ON CONFLICT (k) DO UPDATE SET block_id = EXCLUDED.block_id, height = EXCLUDED.height`,
		lastAcceptedKey, b.ID[:], int64(b.Height),
	); err != nil {
		return fmt.Errorf("failed to advance last-accepted pointer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true

	logger.Debugf("stored block %d (%s) with %d txs, %d game updates",
		b.Height, b.ID, len(b.Txs), len(games))
	return nil
}

// GetBlock implements Store.
func (s *PostgresStore) GetBlock(ctx context.Context, id types.ID) (*types.Block, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM blocks WHERE id = $1`, id[:]).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return types.DecodeBlock(payload)
}

// GetBlockByHeight implements Store.
func (s *PostgresStore) GetBlockByHeight(ctx context.Context, height uint64) (*types.Block, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM blocks WHERE height = $1`, int64(height)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return types.DecodeBlock(payload)
}

// LastAccepted implements Store.
func (s *PostgresStore) LastAccepted(ctx context.Context) (types.ID, uint64, error) {
	var (
		raw    []byte
		height int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT block_id, height FROM chain_state WHERE k = $1`, lastAcceptedKey,
	).Scan(&raw, &height)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ZeroID, 0, ErrNotFound
	}
	if err != nil {
		return types.ZeroID, 0, err
	}
	var id types.ID
	copy(id[:], raw)
	return id, uint64(height), nil
}

// HasTransaction implements Store.
func (s *PostgresStore) HasTransaction(ctx context.Context, id types.ID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accepted_txs WHERE id = $1)`, id[:],
	).Scan(&exists)
	return exists, err
}

// GetGame implements Store.
func (s *PostgresStore) GetGame(ctx context.Context, id uint64) (*types.Game, error) {
	var (
		white, black []byte
		fen          string
		turn, status int16
		moveCount    int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT white, black, fen, turn, move_count, status FROM games WHERE id = $1`,
		int64(id),
	).Scan(&white, &black, &fen, &turn, &moveCount, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	board, err := chess.ParseFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("corrupt game %d: %w", id, err)
	}
	g := &types.Game{
		ID:        id,
		Board:     board,
		Turn:      chess.Color(turn),
		MoveCount: uint64(moveCount),
		Status:    types.GameStatus(status),
	}
	copy(g.White[:], white)
	copy(g.Black[:], black)
	return g, nil
}

// GameExists implements Store.
func (s *PostgresStore) GameExists(ctx context.Context, id uint64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, int64(id),
	).Scan(&exists)
	return exists, err
}

// Close implements Store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
