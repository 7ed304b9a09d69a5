package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	CRDBDSN      string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	RabbitURL    string
	JWTSecret    string
	OfferTTL     time.Duration
	ConfigTTL    time.Duration
	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	offerTTL, _ := time.ParseDuration(os.Getenv("OFFER_TTL"))
	if offerTTL == 0 {
		offerTTL = 30 * time.Minute
	}
	configTTL, _ := time.ParseDuration(os.Getenv("LIBRARY_CONFIG_TTL"))
	if configTTL == 0 {
		configTTL = 5 * time.Minute
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "ekaant"
	}

	return &Config{
		Port:         port,
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      mongoDB,
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		OfferTTL:     offerTTL,
		ConfigTTL:    configTTL,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
