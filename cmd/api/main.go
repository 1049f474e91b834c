package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"axie-market-cache/internal/config"
	"axie-market-cache/internal/gene"
	"axie-market-cache/internal/handler"
	"axie-market-cache/internal/lock"
	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/middleware"
	"axie-market-cache/internal/repository"
	"axie-market-cache/internal/router"
	"axie-market-cache/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting axie-market-cache...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	store, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Type, err)
	}
	defer store.Close()
	log.Printf("%s store initialized", cfg.Store.Type)

	// Initialize sync locker
	var locker lock.Locker
	checks := map[string]handler.Pinger{"store": store}
	switch cfg.Lock.Type {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.RedisAddress(),
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}

		locker = lock.NewRedisLocker(redisClient, lock.RedisLockerConfig{
			KeyPrefix:     cfg.Lock.KeyPrefix,
			TTL:           cfg.Lock.TTL,
			RetryInterval: cfg.Lock.RetryInterval,
		})
		checks["redis"] = redisPinger{redisClient}
		log.Println("Redis sync locker initialized")
	default:
		locker = lock.NewMemoryLocker()
		log.Println("In-process sync locker initialized")
	}

	// Initialize services
	client := marketplace.NewClient(&http.Client{}, marketplace.ClientConfig{
		Endpoint:  cfg.Marketplace.URL,
		UserAgent: cfg.Marketplace.UserAgent,
		Timeout:   cfg.Marketplace.Timeout,
	})
	unitService := service.NewUnitService(client, gene.NewDecoder(), store, locker, service.UnitServiceConfig{
		PersistDecoded: cfg.Sync.PersistDecoded,
	})

	scheduler := service.NewSyncScheduler(unitService, service.SchedulerConfig{
		Interval:     cfg.Sync.Interval,
		InitialDelay: cfg.Sync.InitialDelay,
		RunTimeout:   cfg.Sync.RunTimeout,
		Listings:     cfg.Sync.ListingsParams(),
		SoldFrom:     cfg.Sync.SoldFrom,
		SoldSize:     cfg.Sync.SoldSize,
	})
	if cfg.Sync.Enabled {
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version, checks)
	unitHandler := handler.NewUnitHandler(unitService, cfg.Sync.ListingsParams(), cfg.Sync.SoldSize)
	adminHandler := handler.NewAdminHandler(store, unitService, scheduler, cfg.Store.Type, cfg.Lock.Type)

	if len(cfg.App.APIKeys) == 0 {
		log.Println("Warning: API_KEYS not set, sync and admin routes will reject every request")
	}
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: cfg.App.APIKeys,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		UnitHandler:    unitHandler,
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// openStore opens the cache store selected by STORE_TYPE.
func openStore(cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Type {
	case "memory":
		return repository.NewMemoryStore(), nil
	case "postgres":
		return repository.NewPostgresStore(cfg.PostgresDSN())
	case "mysql":
		return repository.NewMySQLStore(cfg.MySQLDSN())
	case "mongodb":
		return repository.NewMongoDBStore(cfg.MongoURI, cfg.MongoDatabase)
	default: // sqlite
		return repository.NewSQLiteStore(cfg.Path)
	}
}

// redisPinger adapts a Redis client to the readiness check.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
