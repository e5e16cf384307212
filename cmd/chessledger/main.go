/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/app"
	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	server, err := app.New(rootCtx, cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := server.Run(rootCtx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
