package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plantPalAPI/handlers"
	"plantPalAPI/internal/notification"
	"plantPalAPI/internal/workers"
	"plantPalAPI/middleware"
	"plantPalAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	achievementService  *services.AchievementService
	storefrontService   *services.StorefrontService
	leaderboardService  *services.LeaderboardService
	plantService        *services.PlantService
	scanService         *services.ScanService
	dashboardService    *services.DashboardService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	notificationService = services.NewNotificationService(dbPool)
	achievementService = services.NewAchievementService(dbPool, notificationService)
	userService = services.NewUserService(dbPool, achievementService)
	storefrontService = services.NewStorefrontService(dbPool, achievementService)
	leaderboardService = services.NewLeaderboardService(dbPool)
	plantService = services.NewPlantService(dbPool, achievementService)
	scanService = services.NewScanService(dbPool, achievementService)
	dashboardService = services.NewDashboardService(dbPool, userService, achievementService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	storefrontHandler := handlers.NewStorefrontHandler(storefrontService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	plantHandler := handlers.NewPlantHandler(plantService)
	scanHandler := handlers.NewScanHandler(scanService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()
	workers.StartNotificationCleanupWorker(dbPool)
	workers.StartCouponExpiryWorker(dbPool)

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "plantPal-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// The catalogue is public so the store/achievement screens can render
	// before sign-in completes.
	api.HandleFunc("/achievements", achievementHandler.GetAllAchievements).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/dashboard", dashboardHandler.GetDashboard).Methods("GET")

	protected.HandleFunc("/achievements/user", achievementHandler.GetUserAchievements).Methods("GET")
	protected.HandleFunc("/achievements/user/completed", achievementHandler.GetCompletedAchievements).Methods("GET")
	protected.HandleFunc("/achievements/user/stats", achievementHandler.GetStats).Methods("GET")
	protected.HandleFunc("/achievements/user/streak", achievementHandler.GetStreak).Methods("GET")
	protected.HandleFunc("/achievements/user/check-streaks", achievementHandler.CheckStreaks).Methods("POST")
	protected.HandleFunc("/achievements/progress", achievementHandler.UpdateProgress).Methods("POST")

	protected.HandleFunc("/plants", plantHandler.GetPlants).Methods("GET")
	protected.HandleFunc("/plants", plantHandler.AddPlant).Methods("POST")
	protected.HandleFunc("/plants/{id}", plantHandler.GetPlant).Methods("GET")
	protected.HandleFunc("/plants/{id}", plantHandler.UpdatePlant).Methods("PUT")
	protected.HandleFunc("/plants/{id}", plantHandler.DeletePlant).Methods("DELETE")

	protected.HandleFunc("/scans", scanHandler.GetScans).Methods("GET")
	protected.HandleFunc("/scans", scanHandler.RecordScan).Methods("POST")

	protected.HandleFunc("/storefront/balance", storefrontHandler.GetBalance).Methods("GET")
	protected.HandleFunc("/storefront/coupons", storefrontHandler.GetCoupons).Methods("GET")
	protected.HandleFunc("/storefront/purchase", storefrontHandler.PurchaseCoupon).Methods("POST")

	protected.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
