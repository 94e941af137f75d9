package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rdyatmika/go-storefront-api/internal/account"
	"github.com/rdyatmika/go-storefront-api/internal/catalog"
	"github.com/rdyatmika/go-storefront-api/internal/config"
	"github.com/rdyatmika/go-storefront-api/internal/httpx"
	kafkax "github.com/rdyatmika/go-storefront-api/internal/kafka"
	"github.com/rdyatmika/go-storefront-api/internal/orders"
	"github.com/rdyatmika/go-storefront-api/internal/postgres"
	"github.com/rdyatmika/go-storefront-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)

	// Stores & service
	catalogRepo := &catalog.Repo{DB: db}
	svc := &orders.Service{
		Accounts: &account.Repo{DB: db},
		Catalog:  catalogRepo,
		Orders:   &orders.Repo{DB: db},
	}

	// Router & handlers
	router := httpx.NewRouter()
	auth := &httpx.Auth{Redis: rdb}
	oh := &httpx.OrdersHandler{
		Service:         svc,
		CreatedProducer: pCreated,
		StatusProducer:  pStatus,
		ServiceName:     cfg.ServiceName,
	}
	oh.Register(router, auth)
	ph := &httpx.ProductsHandler{Catalog: catalogRepo, Redis: rdb}
	ph.Register(router, auth)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close()
	pStatus.Close()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
