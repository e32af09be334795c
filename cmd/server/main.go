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

	"github.com/fieldforce/backend/docs"
	"github.com/fieldforce/backend/internal/audit"
	"github.com/fieldforce/backend/internal/config"
	"github.com/fieldforce/backend/internal/database"
	"github.com/fieldforce/backend/internal/handlers"
	"github.com/fieldforce/backend/internal/logger"
	mW "github.com/fieldforce/backend/internal/middleware"
	"github.com/fieldforce/backend/internal/models"
	"github.com/fieldforce/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Field Operations Backend API
// @version 1.0
// @description Visit confirmation, expense claims, monthly payouts and app version policy for field teams
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

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
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output_path", "LOG_OUTPUT_PATH")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	zlog, err := logger.New(logger.GetConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if viper.GetString("jwt.secret_key") == "" {
		zlog.Fatal("JWT_SECRET_KEY is required")
	}

	// Amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Field Operations Backend API"
	docs.SwaggerInfo.Description = "Visit confirmation, expense claims, monthly payouts and app version policy for field teams"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	db, err := database.InitDB(startupCtx, database.GetConfig(), zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Bootstrap(startupCtx, db, zlog); err != nil {
		zlog.Fatal("Failed to bootstrap schema", zap.Error(err))
	}

	redisClient := database.InitRedis(startupCtx, zlog)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	auditLogger := audit.NewLogger(zlog)
	receiptConfig := config.LoadReceiptConfig()

	authService := services.NewAuthService(db, redisClient, zlog)
	if err := authService.SeedAdmin(startupCtx, config.LoadAdminSeed()); err != nil {
		zlog.Fatal("Failed to seed admin", zap.Error(err))
	}
	rateService := services.NewRateSettingsService(db, redisClient, config.LoadRateDefaults(), auditLogger, zlog)
	visitService := services.NewVisitService(db, auditLogger, zlog, config.LoadGeofenceConfig())
	expenseService := services.NewExpenseService(db, rateService, auditLogger, zlog)
	paymentService := services.NewPaymentService(db, auditLogger, zlog)
	iso20022Service := services.NewISO20022Service(paymentService, receiptConfig, zlog)
	versionService := services.NewVersionService(db, redisClient, auditLogger, zlog)
	qrHandler := handlers.NewQRHandler(paymentService, services.NewQRService(redisClient, receiptConfig), zlog)
	exportHandler := handlers.NewExportHandler(paymentService, zlog)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(mW.Metrics)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/payments/receipts/{code}", qrHandler.VerifyReceipt)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)

			// Visits
			r.Post("/visits/{kind}", visitService.Schedule)
			r.Get("/visits/{kind}", visitService.List)
			r.Get("/visits/{kind}/{visitId}", visitService.Get)
			r.Post("/visits/{kind}/{visitId}/confirm", visitService.Confirm)

			// Expenses
			r.Post("/expenses", expenseService.Create)
			r.Post("/expenses/quick-add", expenseService.QuickAdd)
			r.Get("/expenses", expenseService.List)
			r.Get("/expenses/{expenseId}", expenseService.Get)
			r.Put("/expenses/{expenseId}", expenseService.Edit)

			// Payments
			r.Get("/payments/summary", paymentService.Summary)
			r.Get("/payments/summary/export", exportHandler.ExportSummary)
			r.Post("/payments/batches/{batchId}/receipt", qrHandler.GenerateReceipt)

			r.Get("/settings/rates", rateService.GetRates)
			r.Get("/app-version/latest", versionService.GetLatest)
			r.Post("/app-version/check", versionService.Check)

			// Reviewers
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleManager, models.RoleAdmin))

				r.Post("/expenses/{expenseId}/review", expenseService.Review)
				r.Post("/targets/{kind}", visitService.AddTarget)
				r.Put("/targets/{kind}/{targetId}/location", visitService.UpdateTargetLocation)
			})

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleAdmin))

				r.Post("/users", authService.AddUser)
				r.Put("/settings/rates", rateService.UpdateRates)
				r.Post("/payments/finalize", paymentService.Finalize)
				r.Get("/payments/batches/{batchId}/instruction", iso20022Service.GetInstruction)
				r.Post("/app-version", versionService.PublishVersion)
			})
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
		zlog.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server stopped")
}
