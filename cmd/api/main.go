package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/config"
	"campusattend/internal/httpmiddleware"
	"campusattend/internal/logging"
	"campusattend/internal/metrics"
	"campusattend/internal/queue"
	"campusattend/internal/roster"
	"campusattend/internal/scanners"
	"campusattend/internal/store"
)

func main() {
	// Missing .env is fine in containers; env comes from the orchestrator.
	_ = godotenv.Load()
	cfg := config.Load()

	logg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logg.Closer()
	log := logg.Base

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	cache := store.NewCache(redisClient, cfg.StatsCacheTTL)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campusattend:scans")
	}

	catalog := roster.NewRepository(db.Client)
	records := attendance.NewRepository(db.Client)
	scannerRepo := scanners.NewRepository(db.Client)
	att := attendance.NewService(records, catalog, cache, cfg.StorePageLimit, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status, body := healthResponse(dbHealthy, redisHealthy)
		c.JSON(status, body)
	})

	r.POST("/v1/scanners/register", func(c *gin.Context) {
		var req struct {
			ScannerID string `json:"scanner_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := scannerRepo.Register(c.Request.Context(), req.ScannerID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scanner registration failed"})
			return
		}

		tokens, err := auth.Issue(req.ScannerID, auth.RoleScanner, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = scannerRepo.SaveRefreshToken(c.Request.Context(), req.ScannerID, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authed := r.Group("/v1", auth.TokenAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authed.POST("/events/:id/scans", auth.RequireRole(auth.RoleScanner), func(c *gin.Context) {
		var req struct {
			Barcode string `json:"barcode" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := att.RecordScan(c.Request.Context(), c.Param("id"), req.Barcode)
		if err != nil {
			writeError(c, log, err, "record scan", c.Param("id"))
			return
		}

		if err := q.Publish(c.Request.Context(), queue.ScanEvent{
			EventID:     c.Param("id"),
			StudentID:   res.StudentID,
			StudentName: res.StudentName,
			Action:      string(res.Action),
			Timestamp:   res.Timestamp,
		}); err != nil {
			// Fan-out is best effort; the scan itself already committed.
			log.Warn("scan publish failed", zap.Error(err))
		}

		c.JSON(http.StatusOK, res)
	})

	authed.GET("/events/:id/records", func(c *gin.Context) {
		recs, total, err := att.ListEventRecords(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, log, err, "list records", c.Param("id"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": recs, "total": total})
	})

	authed.GET("/events/:id/stats", func(c *gin.Context) {
		stats, err := att.ComputeEventStats(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, log, err, "compute stats", c.Param("id"))
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	authed.GET("/events/:id/absentees", func(c *gin.Context) {
		absent, err := att.ListAbsentees(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, log, err, "list absentees", c.Param("id"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": absent, "total": len(absent)})
	})

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))

	admin.PATCH("/events/:id/records/:recordID", func(c *gin.Context) {
		var patch attendance.RecordPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := att.UpdateRecord(c.Request.Context(), c.Param("id"), c.Param("recordID"), patch)
		if err != nil {
			writeError(c, log, err, "update record", c.Param("id"))
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	admin.DELETE("/events/:id/records/:recordID", func(c *gin.Context) {
		if err := att.SoftDeleteRecord(c.Request.Context(), c.Param("id"), c.Param("recordID")); err != nil {
			writeError(c, log, err, "delete record", c.Param("id"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}

// healthResponse reports degraded (and 503) when either backend is down.
func healthResponse(dbHealthy, redisHealthy bool) (int, gin.H) {
	status := http.StatusOK
	text := "ok"
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
		text = "degraded"
	}
	return status, gin.H{"status": text, "redis": redisHealthy, "db": dbHealthy}
}

// writeError maps service errors onto the HTTP taxonomy. Store internals
// never reach the caller; the 500 branch logs them with operation context.
func writeError(c *gin.Context, log *zap.Logger, err error, op, eventID string) {
	switch {
	case errors.Is(err, attendance.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
	case errors.Is(err, attendance.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
	case errors.Is(err, attendance.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, attendance.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent scan, retry"})
	case errors.Is(err, attendance.ErrInvalidPatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("internal error",
			zap.String("op", op), zap.String("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
