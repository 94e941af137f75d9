package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rdyatmika/go-storefront-api/internal/catalog"
	"github.com/rdyatmika/go-storefront-api/internal/config"
	kafkax "github.com/rdyatmika/go-storefront-api/internal/kafka"
	"github.com/rdyatmika/go-storefront-api/internal/notifier"
	"github.com/rdyatmika/go-storefront-api/internal/orders"
	"github.com/rdyatmika/go-storefront-api/internal/postgres"
	"github.com/rdyatmika/go-storefront-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pLow := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockLow, 1024)
	pLow.Start(ctx)

	svc := &notifier.Service{
		Catalog:     &catalog.Repo{DB: db},
		Redis:       rdb,
		Producer:    pLow,
		ServiceName: cfg.ServiceName + "-notifier",
		Threshold:   cfg.LowStockThreshold,
	}

	group := getenv("NOTIFIER_GROUP", "stock-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers)

	go func() {
		log.Info().Str("group", group).Str("topic", orders.TopicOrderCreated).Int("workers", workers).
			Msg("notifier consumer started")
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pLow.Close()
	pLow.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
