package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telephony-bridge/internal/audit"
	"telephony-bridge/internal/auth"
	"telephony-bridge/internal/config"
	"telephony-bridge/internal/lifecycle"
	"telephony-bridge/internal/store"
	"telephony-bridge/internal/telephony"
	"telephony-bridge/pkg/logger"
	"telephony-bridge/pkg/utils"

	"github.com/dimiro1/banner"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const bannerTemplate = `{{ .Title "telephony-bridge" "" 0 }}
   env: %s  store: %s
`

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		banner.Init(os.Stdout, true, false, bytes.NewBufferString(fmt.Sprintf(bannerTemplate, cfg.App.Env, cfg.Store.Backend)))
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	backends, err := openBackends(rootCtx, cfg)
	if err != nil {
		log.Error("store init failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer backends.Close()

	session := telephony.NewSession(cfg.Telephony.HTTPTimeout)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("telephony session close failed", "err", err)
		}
	}()

	addr := telephony.NewAddresses(cfg.App.PublicBaseURL)
	events := audit.NewService(backends.events)
	coordinator := lifecycle.New(backends.configs, telephony.NewRegistry(session, addr, log), cfg, log,
		lifecycle.WithEvents(events))

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:         cfg,
		addr:        addr,
		coordinator: coordinator,
		audit:       events,
		authMW:      auth.RequireAccessToken(authManager),
		log:         log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Backend, "public_base", addr.Base)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// backends are the persistence handles selected by STORE_BACKEND.
type backends struct {
	configs store.ConfigStore
	events  audit.Repository
	closers []func() error
}

func (b backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config) (backends, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return backends{}, err
		}
		return backends{
			configs: store.NewRedisStore(rdb, cfg.Store.TTL),
			events:  audit.NewMemoryRepo(),
			closers: []func() error{rdb.Close},
		}, nil
	case config.BackendPostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return backends{}, err
		}
		if err := utils.Migrate(ctx, db, store.PostgresSchema, audit.PostgresSchema); err != nil {
			_ = db.Close()
			return backends{}, err
		}
		return backends{
			configs: store.NewPostgresStore(db),
			events:  audit.NewPostgresRepo(db),
			closers: []func() error{db.Close},
		}, nil
	default:
		return backends{configs: store.NewMemoryStore(), events: audit.NewMemoryRepo()}, nil
	}
}
