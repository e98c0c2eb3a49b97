package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/FleetPulse/internal/cache/rediscache"
	"github.com/BearBump/FleetPulse/internal/integrations/dispatch"
	"github.com/BearBump/FleetPulse/internal/models"
	"github.com/BearBump/FleetPulse/internal/services/broadcast"
	"github.com/BearBump/FleetPulse/internal/services/fleet"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type appOpts struct {
	httpAddr    string
	swaggerPath string
	staticDir   string

	webhookToken       string
	keepAlive          time.Duration
	rateLimitPerMinute int64

	onListen func(httpAddr string)

	svc      *fleet.Service
	sweeper  *fleet.Sweeper
	hub      *broadcast.Hub
	dispatch dispatch.Client
	limiter  *rediscache.RateLimiter
}

func runAppServer(ctx context.Context, opts appOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}
	if opts.keepAlive <= 0 {
		opts.keepAlive = 25 * time.Second
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newRouter(opts)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

func newRouter(opts appOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", handleStats(opts))

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(tokenAuth(opts.webhookToken))
		r.Use(webhookRateLimit(opts.limiter, opts.rateLimitPerMinute))
		r.Post("/locations", handleWebhook(opts.svc, models.EventKindPing))
		r.Post("/status", handleWebhook(opts.svc, models.EventKindStatus))
		r.Post("/shifts", handleWebhook(opts.svc, models.EventKindShift))
	})

	r.Get("/fleet/status", handleFleetStatus(opts.svc))
	r.Get("/fleet/stream", handleStream(opts))
	r.Get("/fleet/vehicles", handleVehicles(opts.dispatch))

	r.Post("/sweep", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.sweeper == nil {
			_, _ = w.Write([]byte(`{"error":"sweeper not wired"}`))
			return
		}
		opts.sweeper.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	if opts.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	if opts.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.staticDir)))
	}

	return r
}
