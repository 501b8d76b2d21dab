package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bankbot/internal/bot"
	"bankbot/internal/clock"
	"bankbot/internal/config"
	"bankbot/internal/db"
	"bankbot/internal/services"
	"bankbot/internal/store"
	"bankbot/internal/websocket"
)

func main() {
	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	clk, err := clock.NewSystem(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("bot init: %v", err)
	}
	botAPI.Debug = false

	accounts := store.NewAccountStore(database)
	pool := store.NewPoolStore(database)
	transactions := store.NewTransactionStore(database)
	transfers := store.NewTransferStore(database)
	loans := store.NewLoanStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	engine := services.NewEngine(txRunner, accounts, pool, transactions, transfers, loans,
		hub, clk, services.SystemRand(), policyFromConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	handler := bot.NewHandler(botAPI, engine)
	log.Printf("bankbot started as @%s", botAPI.Self.UserName)
	handler.Run(ctx)
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
