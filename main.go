package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/config"
	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/routes"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("✅ Database connected successfully")

	if err := config.RunMigrations(ctx, db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	svc := routes.NewServices(db, cfg)
	defer svc.WS.Close()

	if err := svc.Scheduler.Start(ctx); err != nil {
		log.Printf("⚠️ Reminder scheduler not started: %v", err)
	}
	defer svc.Scheduler.Stop()

	go scheduleSessionCleaning(ctx, svc.Auth)

	router := gin.Default()

	log.Printf("🌍 CORS: Allowing origins:")
	for _, origin := range cfg.AllowedOrigins {
		log.Printf("   - %s", origin)
	}

	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.ClientTimezoneHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.LogAPIRequest(c.Request.Method, c.Request.URL.Path, middleware.GetUserID(c), c.Writer.Status(), time.Since(start).String())
	})

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit, time.Minute)
	router.Use(limiter.Middleware())

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, svc)
		routes.SetupWSRoutes(v1, svc)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(), middleware.LoadSession(svc.Users))
		{
			routes.SetupUserRoutes(protected, svc)
			routes.SetupCompanyRoutes(protected, svc)
			routes.SetupEventRoutes(protected, svc)
			routes.SetupTaskRoutes(protected, svc)
			routes.SetupInvitationRoutes(protected, svc)
			routes.SetupNotificationRoutes(protected, svc)
			routes.SetupAdminRoutes(protected, svc)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"version":   version,
			"time":      time.Now().Format(time.RFC3339),
			"scheduler": svc.Scheduler.Status(),
		})
	})

	utils.LogStartup("DayClap API", version, cfg.Port)
	go func() {
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("👋 Shutting down...")
}

func scheduleSessionCleaning(ctx context.Context, auth *services.AuthService) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	cleanExpiredSessions(ctx, auth)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanExpiredSessions(ctx, auth)
		}
	}
}

func cleanExpiredSessions(ctx context.Context, auth *services.AuthService) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	rows, err := auth.CleanExpiredSessions(ctx)
	if err != nil {
		log.Printf("❌ Session cleanup failed: %v", err)
		return
	}
	if rows > 0 {
		log.Printf("🧹 Cleaned %d expired sessions", rows)
	}
}
