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

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/authz"
	"github.com/roadworthy/inspection-platform/pkg/config"
	"github.com/roadworthy/inspection-platform/pkg/database"
	"github.com/roadworthy/inspection-platform/pkg/events"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	mw "github.com/roadworthy/inspection-platform/pkg/middleware"
	"github.com/roadworthy/inspection-platform/pkg/notifier"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/client"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/handlers"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/repository"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/service"
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

	authority := auth.NewAuthority(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	audit := notifier.New(cfg.Audit)
	appointments := client.NewAppointmentClient(cfg.Services.AppointmentURL, cfg.Services.ClientTimeout)

	inspectionRepo := repository.NewInspectionRepository(pool)
	inspectionService := service.NewInspectionService(inspectionRepo, appointments, eventBus, audit, cfg.Services.ClientTimeout)
	h := handlers.New(inspectionService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("inspection"))
	r.Use(mw.Logging)
	r.Use(mw.Health("inspection-service"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/inspections", func(r chi.Router) {
		r.With(authz.Require(authority, auth.RoleTechnician, auth.RoleAdmin)).
			Get("/vehicles-for-inspection", h.VehiclesForInspection)
		r.With(authz.Require(authority, auth.RoleTechnician)).
			Post("/submit", h.Submit)
		r.With(authz.Require(authority, auth.RoleTechnician)).
			Get("/assigned/{technicianID}", h.AssignedInspections)
		r.With(authz.Require(authority, auth.RoleCustomer, auth.RoleTechnician, auth.RoleAdmin)).
			Get("/by-appointment/{appointmentID}", h.ByAppointment)
		// Older clients fetch reports from /result; same read.
		r.With(authz.Require(authority, auth.RoleCustomer, auth.RoleTechnician, auth.RoleAdmin)).
			Get("/result/{appointmentID}", h.ByAppointment)
	})

	r.Route("/admin/inspections", func(r chi.Router) {
		r.Use(authz.Require(authority, auth.RoleAdmin))
		r.Get("/", h.ListInspections)
		r.Get("/stats", h.Stats)
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

		logger.Info("Shutting down inspection service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Inspection service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting inspection service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Inspection service error", "error", err)
		os.Exit(1)
	}
}
