package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	src, closeSrc, err := source.Open(cfg)
	if err != nil {
		slog.Error("failed to open document source", "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	engine := indexer.NewEngine(cfg.Indexer, indexer.WithMetrics(m))
	corpus, report, err := engine.Build(ctx, src)
	if err != nil {
		slog.Error("initial corpus build failed", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus ready",
		"documents", report.Indexed,
		"terms", report.Terms,
		"skipped", report.SkippedNames(),
		"fingerprint", corpus.Fingerprint(),
	)
	exec := executor.New(corpus, cfg.Search, executor.WithMetrics(m))

	// SIGHUP rebuilds the corpus from the same source and swaps it in.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				rebuilt, rep, err := engine.Build(ctx, src)
				if err != nil {
					slog.Error("corpus rebuild failed, keeping current corpus", "error", err)
					continue
				}
				exec.SetCorpus(rebuilt)
				slog.Info("corpus rebuilt", "documents", rep.Indexed, "fingerprint", rebuilt.Fingerprint())
			}
		}
	}()

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	checker := health.NewChecker()
	checker.Register("corpus", func(ctx context.Context) health.ComponentHealth {
		c := exec.Corpus()
		// Verified at build time, so this reads the cached result.
		if err := c.Verify(); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents, %d terms", c.DocCount(), c.NumTerms())}
	})
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	} else if cfg.Redis.Enabled {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
		})
	}

	h := handler.New(exec, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.Metrics(m),
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		go limiter.Run(ctx)
		mws = append(mws, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "rps", cfg.Server.RateLimit, "burst", cfg.Server.RateBurst)
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout))
	chain := middleware.Chain(mux, mws...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
