package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/dominionbank/backend/docs"
	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/database"
	"github.com/dominionbank/backend/internal/handlers"
	mW "github.com/dominionbank/backend/internal/middleware"
	"github.com/dominionbank/backend/internal/services"
)

// @title Community Economy API
// @version 1.0
// @description Virtual-currency ledger and auction service for chat communities
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Community Economy API"
	docs.SwaggerInfo.Description = "Virtual-currency ledger and auction service for chat communities"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	econCfg := config.LoadEconomyConfig()

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	accounts := services.NewAccountStore(db, econCfg)
	cooldowns := services.NewCooldownGate(db)
	journal := services.NewJournal(db)
	events := services.NewEventPublisher(redisClient)
	offers := services.NewPendingOfferStore(db)

	ledger := services.NewLedgerService(db, econCfg, accounts, cooldowns, journal, events)
	auctions := services.NewAuctionEngine(db, econCfg, accounts, journal, events)

	economyHandler := handlers.NewEconomyHandler(ledger, econCfg)
	auctionHandler := handlers.NewAuctionHandler(auctions)
	offerHandler := handlers.NewOfferHandler(offers, ledger, econCfg)

	// Background expiry sweeping
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := services.NewExpirySweeper(auctions, cooldowns, offers, econCfg.SweepInterval)
	go sweeper.Run(sweepCtx)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/accounts", economyHandler.RegisterAccount)
			r.Get("/accounts/ranking", economyHandler.GetRanking)
			r.Get("/accounts/{identity}/balance", economyHandler.GetBalance)
			r.Get("/accounts/{identity}/history", economyHandler.GetHistory)
			r.Get("/accounts/{identity}/auctions", auctionHandler.ListSellerAuctions)
			r.Get("/accounts/{identity}/offers", offerHandler.GetPendingOffer)

			r.Post("/transfers", economyHandler.Transfer)

			r.Post("/offers", offerHandler.CreateOffer)
			r.Delete("/offers/{id}", offerHandler.DeleteOffer)

			r.Get("/config", economyHandler.GetConfig)
			r.Post("/admin/adjustments", economyHandler.AdminAdjust)

			r.Post("/auctions", auctionHandler.CreateAuction)
			r.Get("/auctions", auctionHandler.ListAuctions)
			r.Get("/auctions/{id}", auctionHandler.GetAuction)
			r.Post("/auctions/{id}/bids", auctionHandler.PlaceBid)
			r.Post("/auctions/{id}/cancel", auctionHandler.CancelAuction)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopSweeper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
