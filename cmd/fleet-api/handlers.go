package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/FleetPulse/internal/cache/rediscache"
	"github.com/BearBump/FleetPulse/internal/integrations/dispatch"
	"github.com/BearBump/FleetPulse/internal/models"
	"github.com/BearBump/FleetPulse/internal/services/fleet"
	"github.com/pkg/errors"
)

const maxWebhookBody = 1 << 20

// tokenAuth rejects the whole request before any processing when a shared
// secret is configured and the header does not match.
func tokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("X-Webhook-Token") != token {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid webhook token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// webhookRateLimit counts deliveries per source IP per minute. Redis being
// down fails open: dropping state updates is worse than missing a limit.
func webhookRateLimit(limiter *rediscache.RateLimiter, perMinute int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			key := fmt.Sprintf("rl:webhook:%s:%s", host, time.Now().UTC().Format("200601021504"))
			allowed, n, err := limiter.Allow(r.Context(), key, perMinute, 70*time.Second)
			if err != nil {
				slog.Warn("webhook rate limit check failed", "error", err.Error())
			} else if !allowed {
				slog.Warn("webhook rate limit exceeded", "source", host, "count", n)
				writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleWebhook(svc *fleet.Service, kind models.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "read body"})
			return
		}

		received, updated := svc.ProcessWebhook(r.Context(), kind, body, time.Now().UTC())
		writeJSON(w, http.StatusOK, map[string]any{
			"received": received,
			"updated":  updated,
		})
	}
}

func handleFleetStatus(svc *fleet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		views := svc.Views(now)
		writeJSON(w, http.StatusOK, map[string]any{
			"count":       len(views),
			"generatedAt": now,
			"vehicles":    views,
		})
	}
}

func handleStream(opts appOpts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ch := opts.hub.Subscribe()
		defer opts.hub.Unsubscribe(ch)

		// Subscribed before the snapshot is taken: a change racing the
		// snapshot is delivered twice, never lost.
		now := time.Now().UTC()
		views := opts.svc.Views(now)
		snap, err := json.Marshal(map[string]any{"count": len(views), "vehicles": views})
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", snap); err != nil {
			return
		}
		fl.Flush()

		interval := opts.keepAlive
		if interval <= 0 {
			interval = 25 * time.Second
		}
		keepAlive := time.NewTicker(interval)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-ch:
				if !open {
					return
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data); err != nil {
					return
				}
				fl.Flush()
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				fl.Flush()
			}
		}
	}
}

func handleVehicles(client dispatch.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "dispatch upstream not configured"})
			return
		}

		vehicles, err := client.ListVehicles(r.Context())
		if err != nil {
			var ue *dispatch.UpstreamError
			if errors.As(err, &ue) {
				writeJSON(w, http.StatusBadGateway, map[string]any{
					"error":          "dispatch upstream failed",
					"upstreamStatus": ue.Status,
					"upstreamBody":   ue.Body,
				})
				return
			}
			slog.Error("list vehicles", "error", err.Error())
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": "dispatch upstream failed"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(vehicles),
			"vehicles": vehicles,
		})
	}
}

func handleStats(opts appOpts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{
			"service":     opts.svc.Stats(),
			"subscribers": opts.hub.Subscribers(),
		}
		if opts.sweeper != nil {
			out["sweeper"] = opts.sweeper.Stats()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
