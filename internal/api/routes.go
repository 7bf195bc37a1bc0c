package api

import (
	"github.com/gin-gonic/gin"

	"github.com/warden-panel/warden/internal/api/handlers"
	"github.com/warden-panel/warden/internal/api/middleware"
	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/auth"
	"github.com/warden-panel/warden/internal/backup"
	"github.com/warden-panel/warden/internal/config"
	"github.com/warden-panel/warden/internal/database"
	"github.com/warden-panel/warden/internal/schedule"
	"github.com/warden-panel/warden/internal/server"
	"github.com/warden-panel/warden/internal/websocket"
)

// Services bundles the lifecycle components the router wires handlers to.
type Services struct {
	Servers   *server.Store
	Backups   *backup.Store
	Schedules *schedule.Store
	Initiator *backup.Initiator
	Deleter   *backup.Deleter
	Restorer  *backup.Restorer
	Links     *backup.DownloadLinkIssuer
	Auditor   *audit.Logger
	Hub       *websocket.Hub
}

// SetupRouter configures and returns the HTTP router
func SetupRouter(cfg *config.Config, db *database.DB, svc Services) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.AccessTokenTTL())

	passwords := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	authHandler := handlers.NewAuthHandler(db.DB, jwtManager, passwords)
	serverHandler := handlers.NewServerHandler(svc.Servers, svc.Auditor)
	backupHandler := handlers.NewBackupHandler(svc.Servers, svc.Backups, svc.Initiator, svc.Deleter, svc.Restorer, svc.Links, svc.Hub)
	scheduleHandler := handlers.NewScheduleHandler(svc.Schedules)
	remoteHandler := handlers.NewRemoteHandler(svc.Servers, svc.Backups, svc.Auditor, svc.Hub)
	wsHandler := handlers.NewWebSocketHandler(svc.Hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	public := router.Group("/api/client")
	{
		public.POST("/auth/login", authHandler.Login)
	}

	// Client routes, JWT-authenticated
	client := router.Group("/api/client")
	client.Use(middleware.Auth(jwtManager))
	{
		client.GET("/auth/me", authHandler.GetCurrentUser)

		servers := client.Group("/servers")
		{
			servers.GET("", serverHandler.ListServers)
			servers.GET("/:server", serverHandler.GetServer)
			servers.GET("/:server/activity", serverHandler.GetServerActivity)
			servers.GET("/:server/ws", wsHandler.Subscribe)

			servers.GET("/:server/backups", backupHandler.ListBackups)
			servers.POST("/:server/backups", backupHandler.CreateBackup)
			servers.GET("/:server/backups/:backup", backupHandler.GetBackup)
			servers.DELETE("/:server/backups/:backup", backupHandler.DeleteBackup)
			servers.POST("/:server/backups/:backup/restore", backupHandler.RestoreBackup)
			servers.GET("/:server/backups/:backup/download", backupHandler.GetDownloadLink)

			servers.GET("/:server/schedules", scheduleHandler.ListSchedules)
			servers.POST("/:server/schedules", scheduleHandler.CreateSchedule)
			servers.GET("/:server/schedules/:schedule", scheduleHandler.GetSchedule)
			servers.PUT("/:server/schedules/:schedule", scheduleHandler.UpdateSchedule)
			servers.DELETE("/:server/schedules/:schedule", scheduleHandler.DeleteSchedule)
			servers.GET("/:server/schedules/:schedule/tasks", scheduleHandler.ListTasks)
			servers.POST("/:server/schedules/:schedule/tasks", scheduleHandler.CreateTask)
			servers.POST("/:server/schedules/:schedule/tasks/:task/queue", scheduleHandler.QueueTask)
		}
	}

	// Daemon callback routes, shared-token authenticated
	remote := router.Group("/api/remote")
	remote.Use(middleware.RemoteAuth(cfg.Daemon.CallbackToken))
	{
		remote.POST("/backups/:backup", remoteHandler.BackupCompleted)
		remote.POST("/servers/:server/restore-complete", remoteHandler.RestoreCompleted)
	}

	return router
}
