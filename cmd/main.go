package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"zkpredict/internal/auth"
	"zkpredict/internal/chain"
	"zkpredict/internal/config"
	"zkpredict/internal/database"
	"zkpredict/internal/handlers"
	"zkpredict/internal/jobs"
	"zkpredict/internal/repository"
	"zkpredict/internal/services"
	"zkpredict/internal/stakekey"
	"zkpredict/internal/wallet"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize chain components
	reader := chain.NewReader(cfg.Aleo.ExplorerURL, cfg.Aleo.ProgramID)
	deriver := stakekey.NewDeriver(stakekey.NewRemoteHasher(cfg.Aleo.HasherURL), cfg.Aleo.Network)
	submitter := wallet.NewBridgeSubmitter(cfg.Aleo.WalletBridgeURL)

	// Initialize coordinator
	coordinator := services.NewCoordinator(
		repo,
		reader,
		deriver,
		submitter,
		cfg.Aleo.ProgramID,
		cfg.Aleo.Network,
		cfg.Aleo.FeeMicrocredits,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler()
	eventHandler := handlers.NewEventHandler(repo, coordinator)
	stakeHandler := handlers.NewStakeHandler(repo, coordinator)
	claimHandler := handlers.NewClaimHandler(coordinator)

	// Start reconciler sweep (runs every 2 minutes)
	reconciler := jobs.NewReconcilerJob(repo, reader)
	reconciler.Start(2 * time.Minute)
	log.Println("Reconciler job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Public read routes
	router.GET("/api/events", eventHandler.ListEvents)
	router.GET("/api/event", eventHandler.GetEvent)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Mirror confirmation endpoints, used when the wallet flow runs on
		// the client and only reports back the transaction id.
		api.PATCH("/events", eventHandler.ConfirmEvent)
		api.PATCH("/stake", stakeHandler.ConfirmStake)

		// Stake endpoints
		api.GET("/stake", stakeHandler.ListStakes)
		api.GET("/stake/detail", stakeHandler.GetStakeDetail)
		api.POST("/stake", stakeHandler.PlaceStake)

		// Claim endpoints (gated on chain state only)
		api.GET("/claim/:eventId", claimHandler.CheckClaim)
		api.POST("/claim/:eventId", claimHandler.Claim)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware(cfg.App.AdminAddress))
	{
		admin.POST("/events", eventHandler.CreateEvent)
		admin.PATCH("/events/resolve", eventHandler.ResolveEvent)
		admin.POST("/events/unpause", eventHandler.Unpause)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
