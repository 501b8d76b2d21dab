package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankbot/internal/clock"
	"bankbot/internal/config"
	"bankbot/internal/db"
	"bankbot/internal/handlers"
	"bankbot/internal/services"
	"bankbot/internal/store"
	"bankbot/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	clk, err := clock.NewSystem(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	accounts := store.NewAccountStore(database)
	pool := store.NewPoolStore(database)
	transactions := store.NewTransactionStore(database)
	transfers := store.NewTransferStore(database)
	loans := store.NewLoanStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	engine := services.NewEngine(txRunner, accounts, pool, transactions, transfers, loans,
		hub, clk, services.SystemRand(), policyFromConfig(cfg))

	handler := handlers.New(cfg, engine, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("bankbot API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func policyFromConfig(cfg config.Config) services.Policy {
	policy := services.DefaultPolicy()
	policy.TransferTTL = cfg.TransferTTL
	policy.GiftMinMinor = cfg.GiftMinMinor
	policy.GiftMaxMinor = cfg.GiftMaxMinor
	policy.WagerMinMinor = cfg.WagerMinMinor
	policy.WagerMaxMinor = cfg.WagerMaxMinor
	policy.WagerWinPercent = cfg.WagerWinPercent
	return policy
}
