package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/craysiii/SSHttp/internal/audit"
	"github.com/craysiii/SSHttp/internal/broker"
	"github.com/craysiii/SSHttp/internal/config"
	"github.com/craysiii/SSHttp/internal/database"
	"github.com/craysiii/SSHttp/internal/handlers"
	"github.com/craysiii/SSHttp/internal/middleware"
	"github.com/craysiii/SSHttp/internal/sshclient"
)

func main() {
	config.Load()

	var recorder broker.Recorder
	var scheduler *cron.Cron
	if config.Cfg.AuditEnabled {
		if err := database.Init(config.Cfg.DatabasePath); err != nil {
			log.Fatalf("Database init: %v", err)
		}
		defer database.Close()

		auditRec := audit.NewRecorder(database.DB)
		recorder = auditRec

		scheduler = cron.New()
		scheduler.AddFunc("@hourly", func() {
			if _, err := auditRec.PurgeOlderThan(config.Cfg.AuditRetentionDays); err != nil {
				log.Printf("Audit retention purge: %v", err)
			}
		})
		scheduler.Start()
		log.Printf("Audit trail enabled (db=%s, retention=%d days)",
			config.Cfg.DatabasePath, config.Cfg.AuditRetentionDays)
	}

	dialer := &sshclient.Dialer{
		Timeout: config.ParseDuration(config.Cfg.ConnectTimeout, sshclient.DefaultConnectTimeout),
	}

	sessions := broker.New(dialer, broker.Options{
		CertificateRoot: config.Cfg.CertificateRoot,
		ReapInterval:    config.ParseDuration(config.Cfg.ReapInterval, broker.DefaultReapInterval),
		BannerDelay:     config.ParseDuration(config.Cfg.BannerDelay, broker.DefaultBannerDelay),
		Recorder:        recorder,
	})
	sessions.Start()
	handlers.Sessions = sessions

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no auth)
	r.Get("/health", handlers.HealthCheck)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(config.Cfg.APIKey))

		r.Post("/sessions", handlers.CreateSession)
		r.Get("/sessions", handlers.ListSessions)
		r.Delete("/sessions/{sessionID}", handlers.RemoveSession)
		r.Post("/sessions/{sessionID}/execute", handlers.ExecuteCommand)
		r.Post("/sessions/{sessionID}/interactive", handlers.ExecuteInteractive)
		r.Get("/sessions/{sessionID}/attach", handlers.AttachTerminal)
		r.Get("/sessions/{sessionID}/files/download", handlers.DownloadFile)
		r.Post("/sessions/{sessionID}/files/upload", handlers.UploadFile)
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	sessions.Shutdown()
	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
