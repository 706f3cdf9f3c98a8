package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/hedge-engine/internal/config"
	"github.com/atmx/hedge-engine/internal/hedge"
	"github.com/atmx/hedge-engine/internal/metrics"
	"github.com/atmx/hedge-engine/internal/quote"
	"github.com/atmx/hedge-engine/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.Store.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			slog.Error("redis connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, func() { rdb.Close() })
		st = store.NewRedisStore(rdb, cfg.Store.QuoteTTL, cfg.Store.MaxRecent)
		slog.Info("connected to Redis", "quote_ttl", cfg.Store.QuoteTTL.String())
	} else {
		slog.Warn("REDIS_URL not set, using in-memory quote store")
		st = store.NewMemoryStore(cfg.Store.QuoteTTL, cfg.Store.MaxRecent)
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := quote.NewWSHub()
	go wsHub.Run(hubCtx)

	// --- Quote service ---
	hedger := hedge.New(cfg.Hedge)
	quoteSvc := quote.NewService(hedger, st, wsHub)

	hc := hedger.Config()
	slog.Info("hedger configured",
		"rebalance_bounds", fmt.Sprintf("%g-%g", hc.Rebalance.Bounds.Low, hc.Rebalance.Bounds.High),
		"rebalance_tolerance", hc.Rebalance.Tolerance,
		"premium_bounds", fmt.Sprintf("%g-%g", hc.PremiumMatch.Bounds.Low, hc.PremiumMatch.Bounds.High),
		"premium_tolerance", hc.PremiumMatch.Tolerance,
	)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"hedge-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for computed-quote events. Kept outside the
		// timeout group so long-lived connections are not cut.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

			// Pricing.
			r.Post("/greeks", quoteSvc.Greeks)
			r.Post("/strike/delta", quoteSvc.StrikeForDelta)
			r.Post("/strike/premium", quoteSvc.StrikeForPremium)

			// Hedging workflows.
			r.Post("/rebalance", quoteSvc.Rebalance)
			r.Post("/premium-match", quoteSvc.PremiumMatch)

			// Stored quotes.
			r.Get("/quotes", quoteSvc.ListQuotes)
			r.Get("/quotes/{quoteID}", quoteSvc.GetQuote)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("hedge-engine listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down hedge-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stopHub()
	fmt.Println("hedge-engine stopped")
}
