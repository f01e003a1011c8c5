package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkin/internal/auth"
	"checkin/internal/config"
	"checkin/internal/device"
	"checkin/internal/feedback"
	"checkin/internal/httpmiddleware"
	"checkin/internal/ledger"
	"checkin/internal/live"
	"checkin/internal/qrtoken"
	"checkin/internal/queue"
	"checkin/internal/scan"
	"checkin/internal/session"
	"checkin/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var db *store.DB
	if cfg.StoreBackend != "memory" {
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var (
		sessions session.Registry
		records  ledger.Ledger
		fbStore  feedback.Store
		devices  device.Repo
	)
	if cfg.StoreBackend == "memory" {
		sessions = session.NewMemory(cfg.SessionMaxAge, nil)
		records = ledger.NewMemory(nil)
		fbStore = feedback.NewMemoryStore()
		devices = device.NewMemory()
	} else {
		sessions = session.NewPostgres(db.Client, cfg.SessionMaxAge, nil)
		records = ledger.NewPostgres(db.Client, nil)
		fbStore = feedback.NewPostgresStore(db.Client)
		devices = device.NewPostgres(db.Client)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "checkin:marks")
	}

	coordinator := scan.New(sessions, records, cfg.TokenMaxAge, nil)
	feedbackSvc := feedback.NewService(sessions, fbStore, nil)
	hub := live.NewHub()
	ctx := context.Background()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	// The limiter keys on the bearer subject, so it must run after
	// auth.Bearer on the authenticated groups. The register route has no
	// claims and limits by IP.
	limit := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := cfg.StoreBackend == "memory" || db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/devices/register", limit, func(c *gin.Context) {
		var req struct {
			DeviceID string `json:"device_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := devices.Upsert(c.Request.Context(), req.DeviceID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(req.DeviceID, auth.RoleDevice, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		_ = devices.SaveRefreshToken(c.Request.Context(), req.DeviceID, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	// Faculty surface: session control, scanning, attendance lists.
	faculty := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleFaculty, auth.RoleAdmin, auth.RoleDevice), limit)

	faculty.POST("/devices/logout", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := devices.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"revoked": true})
	})

	registerSessionRoutes(faculty, "/attendance-sessions", sessions, session.Attendance)
	registerSessionRoutes(faculty, "/feedback-sessions", sessions, session.Feedback)

	faculty.POST("/attendance/mark", func(c *gin.Context) {
		var req struct {
			EventID string `json:"event_id" binding:"required"`
			QRData  string `json:"qr_data" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.FromContext(c)
		outcome, err := coordinator.HandleScan(c.Request.Context(), req.EventID, req.QRData, claims.Subject)
		if err != nil {
			// Outcome unknown; the scanner should pause and retry the
			// identical scan. The ledger makes the retry safe.
			log.Printf("scan storage failure: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry the scan"})
			return
		}

		if outcome.Accepted {
			payload, _ := json.Marshal(outcome.Record)
			if err := q.Publish(ctx, queue.Message{Type: "attendance_marked", Body: payload}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
			hub.Broadcast(req.EventID, "attendance_marked", outcome.Record)
			c.JSON(http.StatusCreated, outcome)
			return
		}
		c.JSON(http.StatusOK, outcome)
	})

	faculty.GET("/events/:eventID/attendance", func(c *gin.Context) {
		recs, err := records.ListForEvent(c.Request.Context(), c.Param("eventID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance": recs, "count": len(recs)})
	})

	faculty.GET("/events/:eventID/live", func(c *gin.Context) {
		if err := hub.Subscribe(c.Writer, c.Request, c.Param("eventID")); err != nil {
			log.Printf("live subscribe failed: %v", err)
		}
	})

	faculty.GET("/feedback/event/:eventID", func(c *gin.Context) {
		sum, err := feedbackSvc.ForEvent(c.Request.Context(), c.Param("eventID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sum)
	})

	// Student surface: QR generation and feedback submission.
	student := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStudent), limit)

	student.GET("/qr/token", func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"token":     qrtoken.Encode(claims.Subject, now),
			"issued_at": now.Unix(),
			"max_age_s": int(cfg.TokenMaxAge.Seconds()),
		})
	})

	student.POST("/feedback/event/:eventID", func(c *gin.Context) {
		var req struct {
			Rating  int    `json:"rating" binding:"required"`
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.FromContext(c)
		entry, err := feedbackSvc.Submit(c.Request.Context(), c.Param("eventID"), claims.Subject, req.Rating, req.Comment)
		switch {
		case errors.Is(err, feedback.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, feedback.ErrSessionClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "feedback session not started"})
		case errors.Is(err, feedback.ErrAlreadySubmitted):
			c.JSON(http.StatusConflict, gin.H{"error": "feedback already submitted"})
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		default:
			c.JSON(http.StatusCreated, entry)
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// registerSessionRoutes wires the start/end/active trio for one purpose.
// Attendance and feedback windows share the same state machine, so the
// handlers differ only in the purpose they pass through.
func registerSessionRoutes(g *gin.RouterGroup, base string, sessions session.Registry, purpose session.Purpose) {
	g.POST(base+"/start", func(c *gin.Context) {
		var req struct {
			EventID string `json:"event_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.FromContext(c)
		s, err := sessions.Open(c.Request.Context(), req.EventID, claims.Subject, purpose)
		switch {
		case errors.Is(err, session.ErrAlreadyOpen):
			c.JSON(http.StatusConflict, gin.H{"error": "session already open", "session": s})
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		default:
			c.JSON(http.StatusCreated, gin.H{"session": s})
		}
	})

	g.POST(base+"/end", func(c *gin.Context) {
		var req struct {
			EventID string `json:"event_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		active, err := sessions.Active(c.Request.Context(), req.EventID, purpose)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		if active == nil {
			// Ending a window that is not open is a no-op, same as a
			// double close.
			c.JSON(http.StatusOK, gin.H{"active": false})
			return
		}
		if err := sessions.Close(c.Request.Context(), active.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"active": false, "session": active})
	})

	g.GET(base+"/active/:eventID", func(c *gin.Context) {
		active, err := sessions.Active(c.Request.Context(), c.Param("eventID"), purpose)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		if active == nil {
			c.JSON(http.StatusOK, gin.H{"active": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"active": true, "session": active})
	})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
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
