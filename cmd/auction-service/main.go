package main

import (
	"context"
	"database/sql"
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
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/galvin1912/auction-web-app/internal/api/handlers"
	"github.com/galvin1912/auction-web-app/internal/config"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/leader"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/mysql"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/redis"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (defaults and env vars apply otherwise)")
	flag.Parse()

	log := logger.New()
	log.Info("Starting auction service")

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
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to open MySQL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Stores
	auctionStore := mysql.NewAuctionStore(db)
	watchlistStore := mysql.NewWatchlistStore(db)
	notificationStore := mysql.NewNotificationStore(db)

	// Event publishing and leader election
	eventPublisher := redis.NewEventPublisher(rdb)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	clock := services.SystemClock{}

	biddingService := services.NewBiddingService(
		auctionStore,
		clock,
		eventPublisher,
		services.Policy{
			MaxRetries:     cfg.Bidding.MaxRetries,
			EnforceReserve: cfg.Bidding.EnforceReserve,
		},
		log,
	)

	watchlistService := services.NewWatchlistService(watchlistStore, biddingService, clock)
	notificationService := services.NewNotificationService(notificationStore)

	sweeper := services.NewSettlementSweeper(
		biddingService, leaderElection, cfg.Instance.ID, cfg.Bidding.SweepInterval, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(biddingService, log)
	bidHandler := handlers.NewBidHandler(biddingService, log)
	profileHandler := handlers.NewProfileHandler(watchlistService, notificationService, log)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.CreateAuction)
	api.GET("/auctions", auctionHandler.ListAuctions)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.POST("/auctions/:id/cancel", auctionHandler.CancelAuction)
	api.POST("/auctions/:id/bids", bidHandler.PlaceBid)
	api.GET("/auctions/:id/bids", bidHandler.ListAuctionBids)
	api.GET("/users/:id/bids", bidHandler.ListBidderBids)
	api.GET("/users/:id/watchlist", profileHandler.ListWatchlist)
	api.POST("/users/:id/watchlist/:auctionID", profileHandler.AddToWatchlist)
	api.DELETE("/users/:id/watchlist/:auctionID", profileHandler.RemoveFromWatchlist)
	api.GET("/users/:id/notifications", profileHandler.ListNotifications)
	api.GET("/users/:id/notifications/unread", profileHandler.UnreadCount)
	api.POST("/users/:id/notifications/:notificationID/read", profileHandler.MarkNotificationRead)
	api.POST("/users/:id/notifications/read-all", profileHandler.MarkAllNotificationsRead)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Start the settlement sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	if err := sweeper.Start(sweepCtx); err != nil {
		log.Error("Failed to start settlement sweeper", "error", err)
		os.Exit(1)
	}

	// Keep trying to become the sweep leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became sweep leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting auction service server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction service stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
