package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/adapters/crdb"
	mongoadapter "github.com/Unify-India/ekaant-sub000/internal/adapters/mongo"
	"github.com/Unify-India/ekaant-sub000/internal/adapters/rabbit"
	redisadapter "github.com/Unify-India/ekaant-sub000/internal/adapters/redis"
	"github.com/Unify-India/ekaant-sub000/internal/allocation"
	"github.com/Unify-India/ekaant-sub000/internal/config"
	httphandler "github.com/Unify-India/ekaant-sub000/internal/http"
	"github.com/Unify-India/ekaant-sub000/internal/idempotency"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/Unify-India/ekaant-sub000/internal/rateLimit"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	availStore := crdb.NewStore(pool)
	if err := availStore.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure availability schema: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	ledger := mongoadapter.NewLedgerRepository(mongoDB, logger)
	apps := mongoadapter.NewApplicationRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)
	cachedCatalog := redisadapter.NewCatalogCache(redisCache, catalog, cfg.ConfigTTL, logger)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	engine := allocation.NewEngine(cachedCatalog, availStore, ledger, apps, rabbitPub, audit, logger)
	handlers := httphandler.NewHandlers(cfg, engine, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
