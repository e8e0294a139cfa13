package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/catalog"
	"github.com/sondv/phone-orders/internal/config"
	"github.com/sondv/phone-orders/internal/gateway"
	"github.com/sondv/phone-orders/internal/httpx"
	kafkax "github.com/sondv/phone-orders/internal/kafka"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/payments"
	"github.com/sondv/phone-orders/internal/postgres"
	"github.com/sondv/phone-orders/internal/reconcile"
	"github.com/sondv/phone-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers (satu per topic)
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024, log)
	pConfirmed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderConfirmed, 1024, log)
	pPayment := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentStatus, 1024, log)
	producers := []*kafkax.Producer{pCreated, pCancelled, pConfirmed, pPayment}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Repos & services
	orderRepo := &orders.Repo{DB: db}
	paymentRepo := &payments.Repo{DB: db}
	catalogStore := &catalog.Store{DB: db, Redis: rdb}

	adapters := gateway.NewRegistry(
		gateway.NewVNPay(cfg.VNPay.TmnCode, cfg.VNPay.HashSecret, cfg.VNPay.PayURL, cfg.VNPay.ReturnURL),
		gateway.NewMomo(cfg.Momo.PartnerCode, cfg.Momo.AccessKey, cfg.Momo.SecretKey, cfg.Momo.PayURL, cfg.Momo.ReturnURL),
	)

	dispatcher := &reconcile.Dispatcher{
		Adapters:          adapters,
		Payments:          paymentRepo,
		Orders:            orderRepo,
		Dedup:             reconcile.RedisDedup{C: rdb},
		ProducerConfirmed: pConfirmed,
		ProducerPayment:   pPayment,
		Log:               log,
		Service:           cfg.ServiceName,
	}

	// Sweeper promo kedaluwarsa
	sweeper := &catalog.Sweeper{Store: catalogStore, Log: log, Interval: cfg.SweepInterval}
	go sweeper.Run(ctx)

	// Router & handlers
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Repo:              orderRepo,
		ProducerCreated:   pCreated,
		ProducerCancelled: pCancelled,
		Redis:             rdb,
		Log:               log,
		Service:           cfg.ServiceName,
	}
	oh.Register(router)
	ph := &httpx.PaymentsHandler{
		Payments:        paymentRepo,
		Orders:          orderRepo,
		Adapters:        adapters,
		Dispatcher:      dispatcher,
		ProducerPayment: pPayment,
		Log:             log,
		Service:         cfg.ServiceName,
	}
	ph.Register(router)
	ch := &httpx.CatalogHandler{Products: catalogStore, Log: log}
	ch.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	cancel() // stop loop producer & sweeper
	for _, p := range producers {
		p.WaitClosed() // drain
	}
}
