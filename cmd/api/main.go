package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/familytree/internal/auth"
	"github.com/geocoder89/familytree/internal/cache"
	"github.com/geocoder89/familytree/internal/config"
	"github.com/geocoder89/familytree/internal/db"
	"github.com/geocoder89/familytree/internal/graph"
	httpx "github.com/geocoder89/familytree/internal/http"
	"github.com/geocoder89/familytree/internal/http/handlers"
	"github.com/geocoder89/familytree/internal/oauth"
	"github.com/geocoder89/familytree/internal/observability"
	"github.com/geocoder89/familytree/internal/redisclient"
	"github.com/geocoder89/familytree/internal/repo/postgres"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		// dev only; Validate rejects this elsewhere
		cfg.JWTSecret = uuid.NewString()
		log.Warn("JWT_SECRET not set, using an ephemeral secret")
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "familytree-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrateCtx, cancel := config.WithTimeout(30 * time.Second)
	err = db.Migrate(migrateCtx, pool)
	cancel()
	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	driver, err := graph.NewDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		log.Error("neo4j connect failed", "err", err)
		os.Exit(1)
	}
	defer driver.Close(context.Background())

	graphStore := graph.NewStore(driver, cfg.Neo4jDatabase, prom)

	schemaCtx, cancel := config.WithTimeout(10 * time.Second)
	err = graphStore.InitSchema(schemaCtx)
	cancel()
	if err != nil {
		log.Error("graph schema init failed", "err", err)
		os.Exit(1)
	}

	usersRepo := postgres.NewUsersRepo(pool, prom)

	pingers := map[string]handlers.Pinger{
		"postgres": usersRepo,
		"neo4j":    graphStore,
	}

	var personCache cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable at startup, cache calls will fall through", "err", err)
		}
		cancel()

		personCache = rdb
		pingers["redis"] = rdb
	}

	persons := cache.NewCachedPersons(graphStore, personCache, cfg.CacheTTL, log)

	router := httpx.NewRouter(httpx.Deps{
		Log:    log,
		Cfg:    cfg,
		Users:  usersRepo,
		Graph:  persons,
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.TokenTTL()),
		OAuth: oauth.NewGoogleClient(oauth.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}),
		Prom:    prom,
		Pingers: pingers,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
