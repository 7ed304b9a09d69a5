package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongoadapter "github.com/Unify-India/ekaant-sub000/internal/adapters/mongo"
	"github.com/Unify-India/ekaant-sub000/internal/adapters/rabbit"
	"github.com/Unify-India/ekaant-sub000/internal/config"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	store := mongoadapter.NewWaitlistRepository(mongoClient.Database(cfg.MongoDB), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(store, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown offer expiry worker")
}

// ExpiryWorker reclaims waiting-list offers whose window has closed. It does
// not touch availability; an expired offer simply stops blocking the queue
// head.
type ExpiryWorker struct {
	store  *mongoadapter.WaitlistRepository
	pub    *rabbit.Publisher
	logger observability.Logger
}

func NewExpiryWorker(store *mongoadapter.WaitlistRepository, pub *rabbit.Publisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{store: store, pub: pub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ids, err := w.store.ExpireOverdue(ctx, now.UTC())
			if err != nil {
				w.logger.WithError(err).Error("failed to expire waitlist offers")
				continue
			}
			for _, id := range ids {
				observability.WaitlistOffersExpired.Inc()
				if err := w.pub.PublishJSON(ctx, "waitlist.expired", map[string]interface{}{
					"entry_id": id,
				}); err != nil {
					w.logger.WithError(err).WithField("entry_id", id).Warn("waitlist expiry event publish failed")
				}
			}
		}
	}
}
