/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dbtest provisions PostgreSQL instances for store tests.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDBName     = "chessledger_test"
	testDBUser     = "postgres"
	testDBPassword = "postgres"
)

// TestContainer holds the PostgreSQL instance backing one test.
type TestContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	DSN       string
}

// PrepareTestEnv sets up a PostgreSQL instance for testing. It checks the
// DB_DEPLOYMENT environment variable:
// - If set to "local", it connects to a local PostgreSQL instance
// - Otherwise, it spins up a new testcontainer
//
// Tests are skipped when neither a container runtime nor a local database is
// available.
func PrepareTestEnv(t *testing.T) *TestContainer {
	t.Helper()

	ctx := context.Background()

	if os.Getenv("DB_DEPLOYMENT") == "local" {
		return prepareLocalDB(t, ctx)
	}

	return prepareTestContainer(t, ctx)
}

// prepareLocalDB connects to a local PostgreSQL instance.
func prepareLocalDB(t *testing.T, ctx context.Context) *TestContainer {
	t.Helper()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@localhost:5432/%s?sslmode=disable",
		testDBUser,
		testDBPassword,
		testDBName,
	)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to connect to local database")

	err = pool.Ping(ctx)
	require.NoError(t, err, "failed to ping local database")

	// Drop all tables so every test starts from a clean state.
	cleanDatabase(t, ctx, pool)

	return &TestContainer{
		Container: nil, // no container when using local
		Pool:      pool,
		DSN:       dsn,
	}
}

// cleanDatabase drops the ledger tables to ensure a clean state for each test.
func cleanDatabase(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, `
		DROP TABLE IF EXISTS accepted_txs CASCADE;
		DROP TABLE IF EXISTS games CASCADE;
		DROP TABLE IF EXISTS chain_state CASCADE;
		DROP TABLE IF EXISTS blocks CASCADE;
	`)
	require.NoError(t, err, "failed to clean database")
}

// prepareTestContainer spins up a PostgreSQL testcontainer.
func prepareTestContainer(t *testing.T, ctx context.Context) *TestContainer {
	t.Helper()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:14-alpine",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: no container runtime available: %v", err)
	}

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to create connection pool")

	err = pool.Ping(ctx)
	require.NoError(t, err, "failed to ping database")

	return &TestContainer{
		Container: postgresContainer,
		Pool:      pool,
		DSN:       dsn,
	}
}

// Close cleans up the test database resources.
func (tc *TestContainer) Close(t *testing.T) {
	t.Helper()

	if tc.Pool != nil {
		tc.Pool.Close()
	}

	if tc.Container != nil {
		ctx := context.Background()
		err := tc.Container.Terminate(ctx)
		require.NoError(t, err, "failed to terminate container")
	}
}
