package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/warden-panel/warden/internal/api"
	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/backup"
	"github.com/warden-panel/warden/internal/config"
	"github.com/warden-panel/warden/internal/daemon"
	"github.com/warden-panel/warden/internal/database"
	"github.com/warden-panel/warden/internal/logging"
	"github.com/warden-panel/warden/internal/models"
	"github.com/warden-panel/warden/internal/schedule"
	"github.com/warden-panel/warden/internal/server"
	"github.com/warden-panel/warden/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	if err := setupLogging(cfg); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logging.Close()

	// Check if running migrations
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(cfg)
		return
	}

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations automatically
	log.Println("Running database migrations...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Initialize daemon client
	daemonClient := daemon.NewGRPCClient(cfg.Daemon, cfg.DaemonDialTimeout())
	defer daemonClient.Close()

	// Initialize object storage for off-box backups
	var storage backup.ObjectStorage
	if cfg.Backups.Adapter == models.BackupAdapterS3 {
		storage, err = backup.NewS3Storage(cfg.Backups.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
	}

	// Initialize stores and lifecycle services
	auditor := audit.NewLogger(db)
	serverStore := server.NewStore(db.DB)
	backupStore := backup.NewStore(db.DB)
	scheduleStore := schedule.NewStore(db.DB)

	links := backup.NewDownloadLinkIssuer(storage, cfg.PresignExpiry())
	initiator := backup.NewInitiator(backupStore, daemonClient, auditor, cfg.Backups.Adapter)
	deleter := backup.NewDeleter(backupStore, storage, daemonClient, auditor)
	restorer := backup.NewRestorer(serverStore, links, daemonClient, auditor)

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	log.Println("All panel components initialized successfully")

	// Set up HTTP server
	router := api.SetupRouter(cfg, db, api.Services{
		Servers:   serverStore,
		Backups:   backupStore,
		Schedules: scheduleStore,
		Initiator: initiator,
		Deleter:   deleter,
		Restorer:  restorer,
		Links:     links,
		Auditor:   auditor,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting panel on %s", srv.Addr)

		if cfg.Server.TLS.Enabled {
			if err := srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start HTTPS server: %v", err)
			}
		} else {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start HTTP server: %v", err)
			}
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down panel...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Panel exited")
}

func setupLogging(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Logging.File) == "" {
		cfg.Logging.File = cfg.LogFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
		return err
	}
	_, err := logging.Init(cfg.Logging)
	return err
}

func runMigrations(cfg *config.Config) {
	log.Println("Running database migrations...")

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}
