/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/store/dbtest"
)

// PostgresTestEnv provides a PostgresStore backed by a provisioned test
// database.
type PostgresTestEnv struct {
	Store *PostgresStore
	Pool  *pgxpool.Pool
	tc    *dbtest.TestContainer
}

// NewPostgresTestEnv creates a test environment with a PostgreSQL instance.
// The schema is initialized and cleanup is registered with t.Cleanup().
func NewPostgresTestEnv(t *testing.T) *PostgresTestEnv {
	t.Helper()

	tc := dbtest.PrepareTestEnv(t)

	ctx := context.Background()
	_, err := tc.Pool.Exec(ctx, schema)
	require.NoError(t, err, "failed to initialize database schema")

	env := &PostgresTestEnv{
		Store: &PostgresStore{pool: tc.Pool},
		Pool:  tc.Pool,
		tc:    tc,
	}

	t.Cleanup(func() {
		tc.Close(t)
	})

	return env
}

// BlockCount returns the number of persisted blocks.
func (env *PostgresTestEnv) BlockCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	err := env.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM blocks").Scan(&count)
	require.NoError(t, err, "failed to count blocks")
	return count
}

// AcceptedTxCount returns the number of indexed accepted transactions.
func (env *PostgresTestEnv) AcceptedTxCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	err := env.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM accepted_txs").Scan(&count)
	require.NoError(t, err, "failed to count accepted transactions")
	return count
}
