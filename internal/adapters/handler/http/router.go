package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/comitanigiacomo/ferienplan-sync/docs"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/handler/http/middleware"
)

type RouterDependencies struct {
	OfferHandler *OfferHandler
	SyncHandler  *SyncHandler
	PingHandler  *PingHandler
	Sync         SyncView
	DB           *sqlx.DB
	Redis        *redis.Client
	StartTime    time.Time
	Logger       *slog.Logger

	AllowOrigins []string
	RateLimit    int
	RateWindow   time.Duration
	// MediaDir is served under /media when images are stored locally.
	MediaDir string
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	origins := deps.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", health(deps))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if deps.MediaDir != "" {
		router.Static("/media", deps.MediaDir)
	}

	apiV1 := router.Group("/api/v1")

	writes := apiV1.Group("")
	if deps.Redis != nil && deps.RateLimit > 0 {
		writes.Use(middleware.RateLimiterMiddleware(deps.Redis, middleware.RateLimit{
			Scope:  "writes",
			Limit:  deps.RateLimit,
			Window: deps.RateWindow,
		}, deps.Logger))
	}

	deps.SyncHandler.RegisterRoutes(apiV1)
	deps.OfferHandler.RegisterRoutes(apiV1, writes)
	deps.PingHandler.RegisterRoutes(apiV1)

	return router
}

func health(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		statusCode := http.StatusOK

		dbStatus := "disabled"
		if deps.DB != nil {
			dbStatus = "connected"
			if err := deps.DB.PingContext(ctx); err != nil {
				dbStatus = "unreachable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				redisStatus = "unreachable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		body := gin.H{
			"status":   "ok",
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		}
		if statusCode != http.StatusOK {
			body["status"] = "degraded"
		}
		if deps.Sync != nil {
			body["sync"] = deps.Sync.Status()
		}

		c.JSON(statusCode, body)
	}
}
