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

	"github.com/chronoshop/storefront/internal/catalog"
	"github.com/chronoshop/storefront/internal/checkout"
	"github.com/chronoshop/storefront/internal/config"
	"github.com/chronoshop/storefront/internal/httpx"
	kafkax "github.com/chronoshop/storefront/internal/kafka"
	"github.com/chronoshop/storefront/internal/metrics"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/payment"
	"github.com/chronoshop/storefront/internal/postgres"
	"github.com/chronoshop/storefront/internal/reconcile"
	"github.com/chronoshop/storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg := config.Load()
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
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	gateway := payment.NewClient(cfg.GatewayURL, cfg.GatewaySecret)

	checkoutSvc := &checkout.Service{
		Catalog:  catalogRepo,
		Orders:   orderRepo,
		Gateway:  gateway,
		Producer: pCreated,
		Service:  cfg.ServiceName,
	}
	reconcileSvc := &reconcile.Service{
		Orders:            orderRepo,
		Cache:             &reconcile.RedisCache{Client: rdb},
		ProducerPaid:      pPaid,
		ProducerCancelled: pCancelled,
		ServiceName:       cfg.ServiceName,
	}

	// Router
	m := metrics.NewServerMetrics("api")
	router := httpx.NewRouter(httpx.Instrument(m))
	router.Handle("/metrics", metrics.Handler())

	ch := &httpx.CheckoutHandler{Checkout: checkoutSvc, Orders: orderRepo, Redis: rdb}
	ch.Register(router)
	wh := &httpx.WebhookHandler{Reconciler: reconcileSvc, Secret: cfg.WebhookSecret}
	wh.Register(router)
	cth := &httpx.CatalogHandler{Catalog: catalogRepo, Redis: rdb}
	cth.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pCreated.Close()
	pPaid.Close()
	pCancelled.Close()
	cancel()
	pCreated.WaitClosed()
	pPaid.WaitClosed()
	pCancelled.WaitClosed()
}
