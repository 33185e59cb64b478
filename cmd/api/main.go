package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/firekit-dev/firekit/config"
	apimw "github.com/firekit-dev/firekit/internal/api/http/middleware"
	authhttp "github.com/firekit-dev/firekit/internal/auth/http"
	"github.com/firekit-dev/firekit/internal/auth/google"
	"github.com/firekit-dev/firekit/internal/auth/identity"
	"github.com/firekit-dev/firekit/internal/auth/repository"
	"github.com/firekit-dev/firekit/internal/auth/service"
	"github.com/firekit-dev/firekit/internal/auth/session"
	"github.com/firekit-dev/firekit/internal/avatars"
	"github.com/firekit-dev/firekit/internal/bootstrap"
	"github.com/firekit-dev/firekit/internal/functions"
	"github.com/firekit-dev/firekit/internal/jobs"
	"github.com/firekit-dev/firekit/internal/live"
	"github.com/firekit-dev/firekit/internal/metrics"
	"github.com/firekit-dev/firekit/internal/platform"
	"github.com/firekit-dev/firekit/internal/presence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	p, err := platform.Initialize(ctx, &cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}
	defer p.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(reg)

	events := repository.NewProfileEvents(rdb)
	profiles := repository.Fanout{
		repository.NewProfileRepository(p.Firestore),
		events,
	}

	deps := bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SessionCookie:  cfg.Session.CookieName,
		Redis:          rdb,
		Verifier:       p.Auth,
		Metrics:        recorder,
		Gatherer:       reg,
	}

	if cfg.Database.DSN != "" {
		pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
			DSN:       cfg.Database.DSN,
			ConnectTO: cfg.Database.ConnectTO,
		})
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()

		users := repository.NewUserRepository(pool)
		if err := users.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		profiles = append(profiles, users)
		deps.DB = pool
	}

	toolkit, err := identity.NewToolkit(ctx, cfg.Firebase.APIKey)
	if err != nil {
		log.Fatalf("identity toolkit: %v", err)
	}

	sessions := session.NewRedisStore(rdb, cfg.Session.TTL)
	deps.Sessions = sessions

	tracker := presence.NewTracker(p.Database)
	authService := service.NewAuthService(
		toolkit,
		p.Auth,
		profiles,
		sessions,
		tracker,
		recorder,
	)
	deps.Refresher = authService

	var googleFlow authhttp.GoogleFlow
	if cfg.Google.Enabled() {
		provider, err := google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		if err != nil {
			log.Fatalf("google oauth: %v", err)
		}
		googleFlow = provider
	} else {
		log.Println("[warn] GOOGLE_CLIENT_ID/SECRET/REDIRECT_URL not set, Google sign-in disabled")
	}

	var uploader authhttp.AvatarUploader
	if u, err := avatars.NewUploader(p.Storage); err == nil {
		uploader = u
	} else if !errors.Is(err, avatars.ErrStorageDisabled) {
		log.Fatalf("avatars: %v", err)
	}

	deps.Auth = authhttp.New(authService, googleFlow, sessions, uploader, authhttp.Options{
		Cookie: session.CookieOptions{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
		},
		Presence: tracker,
	})
	deps.Functions = functions.NewHandler(p.Functions)
	deps.Live = live.NewHandler(p.Firestore, live.NewAccess(cfg.Live.AllowedPrefixes), events, recorder)

	limiter := apimw.NewRateLimiter(apimw.PerMinute(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst))
	defer limiter.Stop()
	deps.RateLimiter = limiter

	scheduler := jobs.NewScheduler()
	if spec := cfg.Jobs.ProfileResyncSchedule; spec != "" {
		job := jobs.NewProfileResync(jobs.AdminUsers{Client: p.Auth}, authService, recorder)
		if err := scheduler.AddProfileResync(spec, job); err != nil {
			log.Fatalf("profile resync schedule %q: %v", spec, err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("%s %s listening on :%s", cfg.App.ServiceName, cfg.App.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] shutdown: %v", err)
	}
}
