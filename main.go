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

	"kusina-order-service/internal/auth"
	"kusina-order-service/internal/config"
	"kusina-order-service/internal/db"
	"kusina-order-service/internal/delivery"
	httpapi "kusina-order-service/internal/http"
	"kusina-order-service/internal/http/handlers"
	"kusina-order-service/internal/inventory"
	"kusina-order-service/internal/logger"
	"kusina-order-service/internal/menu"
	"kusina-order-service/internal/notify"
	"kusina-order-service/internal/order"
	"kusina-order-service/internal/queue"
	"kusina-order-service/internal/session"
	"kusina-order-service/internal/storage"
	"kusina-order-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	queueClient := setupQueue(ctx, cfg, log)
	if queueClient != nil {
		defer queueClient.Close()
		if cfg.RabbitMQWorkerMode == "daemon" {
			log.Info("event translator enabled", zap.String("mode", "daemon"))
			go func() {
				err := queueClient.ConsumeWithRetry(queue.EventsQueue, func(ctx context.Context, body []byte) error {
					return queue.ProcessEventToJobs(ctx, pool, queueClient, body)
				}, 5, 5*time.Second)
				if err != nil {
					log.Error("consumer stopped", zap.Error(err))
				}
			}()
		} else {
			log.Info("event translator disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	}

	var objects *storage.ObjectStore
	if cfg.ObjectStoreEndpoint != "" {
		objects, err = storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
		})
		if err != nil {
			log.Fatal("object store init failed", zap.Error(err))
		}
	} else {
		log.Warn("object store disabled (OBJECT_STORE_ENDPOINT is empty); uploads will fail")
	}

	h := &handlers.Handler{
		DB:     pool,
		Logger: log,
		Config: cfg,
		Queue:  queueClient,

		Orders:        order.NewStore(pool),
		Menus:         menu.NewStore(pool, log),
		Ledger:        inventory.NewLedger(pool, log),
		Notifications: notify.NewStore(pool),
		Sessions:      session.NewStore(pool),
		Users:         auth.NewUserStore(pool),
		Delivery: delivery.NewClient(cfg.DeliveryBaseURL, cfg.DeliveryAPIKey,
			cfg.DeliveryQuoteTimeout, cfg.DeliveryFallbackFee, log),
		Objects: objects,
	}

	wsServer := ws.New(pool, log, cfg.JWTSecret, cfg.WSBadgePollInterval)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, log, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("order api ready", zap.String("base", "/api"))
		log.Info("order ws ready", zap.String("base", "/ws"))
		log.Info("order service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}

// setupQueue connects to RabbitMQ and declares the full topology. Outside
// production, a broken broker degrades to nil rather than aborting startup.
func setupQueue(ctx context.Context, cfg config.Config, log *zap.Logger) *queue.Client {
	if cfg.RabbitMQURL == "" {
		log.Info("order worker disabled (RABBITMQ_URL is empty)")
		return nil
	}

	qc, err := queue.New(cfg.RabbitMQURL)
	if err != nil {
		if cfg.Env == "production" {
			log.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		log.Warn("rabbitmq connection failed; continuing without worker", zap.Error(err))
		return nil
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"events topology", func() error { return queue.EnsureEventsTopology(ctx, qc) }},
		{"admin alert topology", func() error { return queue.EnsureAdminAlertTopology(ctx, qc) }},
		{"customer sms topology", func() error { return queue.EnsureCustomerSMSTopology(ctx, qc) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq topology failed", zap.String("step", step.name), zap.Error(err))
			}
			log.Warn("rabbitmq topology failed; continuing without worker",
				zap.String("step", step.name), zap.Error(err))
			_ = qc.Close()
			return nil
		}
	}
	return qc
}
