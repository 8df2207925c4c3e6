package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/authz"
	"github.com/roadworthy/inspection-platform/pkg/config"
	"github.com/roadworthy/inspection-platform/pkg/database"
	"github.com/roadworthy/inspection-platform/pkg/events"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	mw "github.com/roadworthy/inspection-platform/pkg/middleware"
	"github.com/roadworthy/inspection-platform/pkg/notifier"
	"github.com/roadworthy/inspection-platform/services/auth/internal/handlers"
	"github.com/roadworthy/inspection-platform/services/auth/internal/repository"
	"github.com/roadworthy/inspection-platform/services/auth/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	authority := auth.NewAuthority(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	audit := notifier.New(cfg.Audit)

	accountRepo := repository.NewAccountRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(redisClient)

	authService := service.NewAuthService(accountRepo, authority, eventBus, audit)
	h := handlers.New(authService, authority, rateLimitRepo)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Health("auth-service"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(h.CredentialRateLimit(10, time.Minute))
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Post("/validate-token", h.ValidateToken)
	r.Post("/verify-email", h.VerifyEmail)

	r.Route("/admin", func(r chi.Router) {
		r.Use(authz.Require(authority, auth.RoleAdmin))
		r.Get("/users", h.ListAccounts)
		r.Post("/users/technician", h.CreateTechnician)
		r.Put("/users/{id}/role", h.UpdateRole)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down auth service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Auth service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting auth service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}
