package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_shop/internal/cache"
	shophttp "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/publisher"
	"github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/internal/store"
)

type Config struct {
	HTTPPort        string
	StoreBackend    string
	SQLitePath      string
	MigrationsPath  string
	RedisAddr       string
	KafkaBrokers    string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Postgres store.Credentials
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		StoreBackend:    getEnv("STORE_BACKEND", "memory"),
		SQLitePath:      getEnv("SQLITE_PATH", "shop.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Postgres: store.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "shop"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

// openStore selects the storage backend explicitly from config. An
// unreachable backend is fatal at startup; there is no silent fallback.
func openStore(cfg *Config) store.Store {
	switch cfg.StoreBackend {
	case "postgres":
		st, err := store.NewPostgresStore(&cfg.Postgres)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		if err := st.RunMigrations(cfg.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		return st
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite database: %v", err)
		}
		if err := st.RunMigrations(cfg.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		return st
	case "memory":
		st := store.NewMemoryStore()
		st.SeedDemoCatalog()
		return st
	default:
		log.Fatalf("unknown STORE_BACKEND %q (want postgres, sqlite or memory)", cfg.StoreBackend)
		return nil
	}
}

func main() {
	cfg := loadConfig()

	st := openStore(cfg)
	if closer, ok := st.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var cartCache cache.CartCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		cartCache = cache.NewRedisCache(redisClient)
		log.Printf("cart cache enabled on %s", cfg.RedisAddr)
	}

	catalogService := service.NewCatalogService(st)
	cartService := service.NewCartService(st, st, cartCache)
	orderService := service.NewOrderService(st, st, st, cartCache)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	if cfg.KafkaBrokers != "" {
		writer := publisher.NewKafkaWriter(strings.Split(cfg.KafkaBrokers, ",")...)
		defer writer.Close()
		poller := publisher.NewOutboxPoller(st, writer)
		go poller.Run(pollerCtx)
		log.Printf("outbox publisher started for brokers %s", cfg.KafkaBrokers)
	}

	router := shophttp.NewRouter(catalogService, cartService, orderService, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("shop server starting on :%s (backend=%s)", cfg.HTTPPort, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
