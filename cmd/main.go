package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/logger"

	"github.com/Farmer96/LuckGen/internal/config"
	"github.com/Farmer96/LuckGen/internal/events"
	"github.com/Farmer96/LuckGen/internal/handlers"
	"github.com/Farmer96/LuckGen/internal/lock"
	"github.com/Farmer96/LuckGen/internal/metrics"
	"github.com/Farmer96/LuckGen/internal/services"
	"github.com/Farmer96/LuckGen/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logOut, closeLog, err := openLogFile(cfg.Log.File)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer closeLog()
	defer logger.Init("LuckGen", cfg.Log.Verbose, false, logOut).Close()

	// 3. Connect the configuration store and the write lock
	var redisClient *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Lock.Driver == "redis" {
		redisClient, err = store.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	backend, err := newStore(cfg, redisClient)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	configStore := store.NewCached(backend, cfg.Store.CacheTTL)

	var locker lock.Locker = lock.NewLocal()
	if cfg.Lock.Driver == "redis" {
		locker = lock.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.RetryInterval, cfg.Lock.MaxRetries)
	}

	// 4. Draw events
	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Fatalf("Failed to connect to Kafka: %v", err)
		}
		kafka := events.NewKafka(producer, cfg.Kafka.Topic)
		defer kafka.Close()
		publisher = kafka
	}

	// 5. Initialize the Lottery Service
	lotteryService := services.NewLotteryService(configStore,
		services.WithLocker(locker),
		services.WithLockKey("lottery:"+cfg.Store.Key),
		services.WithPublisher(publisher),
		services.WithPublicDefaultChances(cfg.Lottery.PublicDefaultChances),
		services.WithNoPrizeText(cfg.Lottery.NoPrizeText),
	)

	// 6. Set up the Gin router
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(), metrics.Middleware())
	handlers.NewHTTPHandler(lotteryService, cfg.Admin.PasswordHash).RegisterRoutes(r)
	if cfg.Admin.PasswordHash == "" {
		logger.Warningf("admin.password_hash is empty; admin routes are unprotected")
	}

	// 7. Run the server until interrupted
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Server starting on http://localhost:%d (store=%s, lock=%s)", cfg.Server.Port, cfg.Store.Driver, cfg.Lock.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
	logger.Infof("Server stopped")
}

func newStore(cfg *config.Config, redisClient *redis.Client) (store.ConfigStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		return store.NewFile(cfg.Store.FilePath), nil
	case "redis":
		return store.NewRedis(redisClient, cfg.Store.Key), nil
	case "mysql":
		db, err := store.OpenMySQL(&cfg.MySQL)
		if err != nil {
			return nil, err
		}
		return store.NewMySQL(db, cfg.Store.Key), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openLogFile opens the optional log file. Console output is controlled by
// log.verbose.
func openLogFile(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
