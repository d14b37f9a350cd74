package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrportal/portal-client/internal/config"
	"hrportal/portal-client/internal/geo"
	"hrportal/portal-client/internal/httpapi"
	"hrportal/portal-client/internal/portal"
	"hrportal/portal-client/internal/portalapi"
	"hrportal/portal-client/internal/session"
	"hrportal/portal-client/internal/store"
	"hrportal/portal-client/internal/store/memory"
	"hrportal/portal-client/internal/store/postgres"
	"hrportal/portal-client/internal/telemetry"
	"hrportal/portal-client/internal/visualizer"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup(telemetry.Options{
		ServiceName:   "portal-client",
		Environment:   cfg.Environment,
		Endpoint:      cfg.OTLPEndpoint,
		Insecure:      cfg.OTLPInsecure,
		SamplePercent: cfg.TraceSamplePercent,
		PortalAPI:     cfg.PortalAPIBaseURL,
		Timezone:      cfg.Timezone.String(),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var sessionStore store.SessionStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		sessionStore = postgres.NewStore(pool)
	} else {
		log.Printf("DB_DSN not set, sessions are kept in memory")
		sessionStore = memory.NewStore()
	}

	api := portalapi.New(cfg.PortalAPIBaseURL, cfg.PortalAPITimeout)
	var geocoder geo.Geocoder
	if cfg.NominatimURL != "" {
		geocoder = geo.NewNominatimClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeTimeout)
	}

	registry := portal.NewRegistry(func(token string) portal.API {
		return api.WithToken(token)
	}, geocoder, portal.Options{
		StatusInterval:    cfg.StatusPollInterval,
		DashboardInterval: cfg.DashboardInterval,
		TickInterval:      cfg.TickInterval,
		ClearDelay:        cfg.LocationClearDelay,
		Visualizer: visualizer.Options{
			ExpectedMinutes:   cfg.ExpectedHours * 60,
			ShiftStartMinutes: cfg.ShiftStartMinutes,
			LateGraceMinutes:  cfg.LateGraceMinutes,
		},
		Location:      cfg.Timezone,
		IdleTimeout:   cfg.ScreenIdleTimeout,
		SweepInterval: cfg.ScreenSweepInterval,
	})
	sessions := session.NewState(sessionStore, cfg.SessionTTL)

	handler := httpapi.NewHandler(sessions, registry)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:      cfg.RateLimitPerMinute,
		IPBurst:          cfg.RateLimitBurst,
		SessionPerMinute: cfg.SessionRateLimitPerMinute,
		SessionBurst:     cfg.SessionRateLimitBurst,
		TrustProxy:       cfg.TrustProxy,
	})

	routes := httpapi.AuthMiddleware(sessions, registry, limiter.SessionMiddleware(handler.Routes()))
	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(routes)), "portal-client")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("portal-client listening on %s api=%s tz=%s", server.Addr, cfg.PortalAPIBaseURL, cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := registry.Close(ctx); err != nil {
		log.Printf("screen shutdown error: %v", err)
	}
}
