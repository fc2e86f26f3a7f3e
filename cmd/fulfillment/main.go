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

	"github.com/chronoshop/storefront/internal/config"
	"github.com/chronoshop/storefront/internal/fulfillment"
	kafkax "github.com/chronoshop/storefront/internal/kafka"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &fulfillment.Service{
		Receipts:    &fulfillment.RedisReceipts{Client: rdb},
		Notifier:    fulfillment.LogNotifier{},
		ServiceName: cfg.ServiceName + "-fulfillment",
	}

	group := getenv("FULFILLMENT_GROUP", "fulfillment-svc")
	workers := atoiDefault(os.Getenv("FULFILLMENT_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderPaid, workers)

	go func() {
		log.Info().
			Str("group", group).
			Str("topic", orders.TopicOrderPaid).
			Int("workers", workers).
			Msg("fulfillment consumer started")
		if err := cons.Start(ctx, svc.HandleOrderPaid); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
