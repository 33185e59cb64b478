package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/firekit-dev/firekit/internal/api/http"
	apimw "github.com/firekit-dev/firekit/internal/api/http/middleware"
	authhttp "github.com/firekit-dev/firekit/internal/auth/http"
	authmw "github.com/firekit-dev/firekit/internal/auth/middleware"
	"github.com/firekit-dev/firekit/internal/functions"
	"github.com/firekit-dev/firekit/internal/live"
	"github.com/firekit-dev/firekit/internal/metrics"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	SessionCookie  string

	DB    *pgxpool.Pool
	Redis *redis.Client

	Verifier    authmw.TokenVerifier
	Sessions    authmw.SessionReader
	Refresher   authmw.SessionRefresher
	Auth        *authhttp.Handler
	Functions   *functions.Handler
	Live        *live.Handler
	RateLimiter *apimw.RateLimiter

	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	if dep.Metrics == nil {
		dep.Metrics = metrics.Nop{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apimw.RequestIDMiddleware())
	r.Use(apimw.Metrics(dep.Metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", apimw.HeaderRequestID},
		ExposeHeaders:    []string{apimw.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(dep.Gatherer)))
	}

	api := r.Group("/api/v1")
	api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier, dep.Sessions, dep.Refresher, dep.SessionCookie))
	requireUser := authmw.RequireUser()

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if dep.RateLimiter != nil {
		limit = dep.RateLimiter.Middleware()
	}

	if dep.Auth != nil {
		dep.Auth.Register(api.Group("/auth"), requireUser, limit)
	}

	if dep.Functions != nil {
		fn := api.Group("/functions")
		fn.Use(requireUser)
		dep.Functions.Register(fn)
	}

	if dep.Live != nil {
		lv := api.Group("/live")
		lv.Use(requireUser)
		dep.Live.Register(lv)
	}

	return r
}
