package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	mongoadapter "github.com/Unify-India/ekaant-sub000/internal/adapters/mongo"
	"github.com/Unify-India/ekaant-sub000/internal/adapters/rabbit"
	"github.com/Unify-India/ekaant-sub000/internal/config"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/Unify-India/ekaant-sub000/internal/waitlist"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	checkoutQueue      = "ekaant.attendance.q"
	checkoutRoutingKey = "attendance.checkout"
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
	consumer, err := rabbit.NewConsumer(conn, checkoutQueue, checkoutRoutingKey)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	dispatcher := waitlist.NewDispatcher(store, pub, logger, cfg.OfferTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		for d := range deliveries {
			var ev waitlist.CheckoutEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				logger.WithError(err).Error("malformed checkout event")
				d.Nack(false, false)
				continue
			}
			if err := dispatcher.HandleCheckout(ctx, ev); err != nil {
				logger.WithError(err).Error("checkout dispatch failed")
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown checkout consumer")
}
