package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/followerscart/backend/internal/auth"
	"github.com/followerscart/backend/internal/cache"
	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/domain/user"
	"github.com/followerscart/backend/internal/http/handlers"
	"github.com/followerscart/backend/internal/http/middlewares"
	"github.com/followerscart/backend/internal/notifications"
	"github.com/followerscart/backend/internal/observability"
	"github.com/followerscart/backend/internal/passwordreset"
	"github.com/followerscart/backend/internal/ratelimit"
	"github.com/followerscart/backend/internal/repo/postgres"
	"github.com/followerscart/backend/internal/uploads"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Deps carries everything the router wires together. Presigner and Limiter
// may be nil (uploads disabled / throttling off), the rest must be set.
type Deps struct {
	Log       *slog.Logger
	Cfg       config.Config
	Pool      *pgxpool.Pool
	Prom      *observability.Prom
	Notifier  notifications.Notifier
	Presigner *uploads.Presigner
	Limiter   *ratelimit.Limiter
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(otelgin.Middleware("followerscart-api"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func(ctx context.Context) error {
		if d.Pool == nil {
			return nil
		}
		return d.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	postsRepo := postgres.NewPostsRepo(d.Pool, d.Prom)
	refundsRepo := postgres.NewRefundsRepo(d.Pool, d.Prom)
	refreshRepo := postgres.NewRefreshTokensRepo(d.Pool)
	jobsRepo := postgres.NewJobsRepo(d.Pool, d.Prom)

	jwtManager := auth.NewManager(
		d.Cfg.JWTSecret,
		time.Duration(d.Cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(d.Cfg.JWTRefreshTTLDays)*24*time.Hour,
	)

	authMW := middlewares.NewAuthMiddleware(jwtManager)

	limit := func(keyFn func(*gin.Context) string) gin.HandlerFunc {
		if d.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middlewares.RateLimit(d.Limiter.Allow, keyFn)
	}

	// handlers
	resetMgr := passwordreset.NewManager(
		usersRepo,
		d.Notifier,
		d.Log,
		d.Cfg.FrontendURL+"/resetpassword",
		time.Duration(d.Cfg.ResetTokenTTLMinutes)*time.Minute,
	)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshRepo, d.Cfg)
	resetHandler := handlers.NewPasswordResetHandler(resetMgr, d.Prom)
	postsHandler := handlers.NewPostsHandler(postsRepo, cache.New(30*time.Second))
	refundsHandler := handlers.NewRefundsHandler(refundsRepo, jobsRepo, d.Log)

	// auth
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", limit(middlewares.KeyByIP), authHandler.SignUp)
		authGroup.POST("/login", limit(middlewares.KeyByIP), authHandler.Login)
		authGroup.POST("/google", limit(middlewares.KeyByIP), authHandler.GoogleLogin)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)

		authGroup.POST("/forgotpassword", limit(middlewares.KeyByIP), resetHandler.ForgotPassword)
		authGroup.PATCH("/resetpassword/:token", limit(middlewares.KeyByIP), resetHandler.ResetPassword)
	}

	// public catalogue
	r.GET("/posts", postsHandler.List)
	r.GET("/posts/:id", postsHandler.GetByID)

	// storefront refund intake
	r.POST("/refunds", limit(middlewares.KeyByIP), refundsHandler.Create)

	// admin surface
	admin := r.Group("/admin")
	admin.Use(authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	{
		admin.POST("/posts", postsHandler.Create)
		admin.PUT("/posts/:id", postsHandler.Update)
		admin.DELETE("/posts/:id", postsHandler.Delete)

		admin.GET("/refunds", refundsHandler.List)
		admin.GET("/refunds/:id", refundsHandler.GetByID)
		admin.PATCH("/refunds/:id/status", refundsHandler.UpdateStatus)

		if d.Presigner != nil {
			uploadsHandler := handlers.NewUploadsHandler(d.Presigner)
			admin.POST("/uploads/presign", uploadsHandler.Presign)
		}
	}

	return r
}
