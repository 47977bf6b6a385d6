// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/database"
	"github.com/needus/ecommerce-backend/internal/i18n"
	"github.com/needus/ecommerce-backend/internal/middleware"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/router"
	"github.com/needus/ecommerce-backend/internal/services"
)

// auditQueueSize bounds the audit rows waiting to be written.
const auditQueueSize = 1024

func main() {
	envFile := pflag.String("env-file", ".env", "environment file to load before reading the environment")
	migrate := pflag.Bool("migrate", true, "run database migrations on startup")
	seed := pflag.Bool("seed", true, "create the default admin account and lookups when missing")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg.Log)

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}
	logrus.WithField("languages", i18n.GetSupportedLanguages()).Info("Translations loaded")

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if *migrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
	}

	store := repository.NewGormStore(db)

	if *seed {
		users := services.NewUserService(store, services.NewNotificationService(cfg), cfg)
		if err := database.SeedInitialData(context.Background(), store, users, cfg); err != nil {
			logrus.WithError(err).Fatal("Failed to seed initial data")
		}
	}

	attachments, err := services.NewAttachmentStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize attachment storage")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	audits := middleware.NewAuditRecorder(store, auditQueueSize)

	// Initialize router
	r := router.Initialize(store, attachments, audits, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	if err := audits.Close(ctx); err != nil {
		logrus.WithError(err).Error("Pending audit logs were not written")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
