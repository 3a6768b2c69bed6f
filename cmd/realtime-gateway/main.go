package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"

	"github.com/galvin1912/auction-web-app/internal/config"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/mysql"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/redis"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/websocket"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

// The realtime gateway holds the websocket connections, consumes published
// auction events, and pushes notifications to connected clients. It runs
// separately from the HTTP API so slow sockets never back-pressure admissions.
func main() {
	configPath := flag.String("config", "", "path to a config file (defaults and env vars apply otherwise)")
	flag.Parse()

	log := logger.New()
	log.Info("Starting realtime gateway")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.GetConfigString())

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to open MySQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}

	// Stores
	auctionStore := mysql.NewAuctionStore(db)
	watchlistStore := mysql.NewWatchlistStore(db)
	notificationStore := mysql.NewNotificationStore(db)

	eventPublisher := redis.NewEventPublisher(rdb)
	eventSubscriber := redis.NewEventSubscriber(rdb, log)

	biddingService := services.NewBiddingService(
		auctionStore,
		services.SystemClock{},
		eventPublisher,
		services.Policy{
			MaxRetries:     cfg.Bidding.MaxRetries,
			EnforceReserve: cfg.Bidding.EnforceReserve,
		},
		log,
	)

	// Websocket fan-out
	connManager := websocket.NewConnectionManager(log)
	wsNotifier := websocket.NewWebSocketNotifier(connManager)
	wsHandler := websocket.NewWebSocketHandler(biddingService, connManager, log)

	eventListener := services.NewEventListener(
		auctionStore,
		watchlistStore,
		notificationStore,
		wsNotifier,
		wsNotifier,
		connManager,
		log,
	)

	listenerCtx, listenerCancel := context.WithCancel(context.Background())
	defer listenerCancel()
	go func() {
		if err := eventListener.Start(listenerCtx, eventSubscriber); err != nil &&
			!errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	// Router
	router := mux.NewRouter()
	router.HandleFunc("/ws/auctions/{auctionID}", wsHandler.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "realtime-gateway",
		})
	})

	// The gateway listens one port above the API by convention.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	log.Info("Starting realtime gateway server", "address", serverAddr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down realtime gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	listenerCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Realtime gateway stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
