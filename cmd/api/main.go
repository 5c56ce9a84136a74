package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"orgcms.dev/cms/internal/audit"
	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/internal/config"
	"orgcms.dev/cms/internal/httpapi"
	"orgcms.dev/cms/internal/obs"
	"orgcms.dev/cms/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "none"
)

func main() {
	log := obs.Logger()

	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Fatal("load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.Version == "dev" {
		cfg.Version = version
	}
	if cfg.Commit == "none" {
		cfg.Commit = commit
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(cfg.Version, cfg.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.InitTracing(ctx, cfg.OTelEndpoint, "cms-api", cfg.Version)
	if err != nil {
		log.WithError(err).Fatal("init tracing")
	}

	if cfg.PostgresDSN == "" {
		log.Fatal("missing DSN: set CMS_PG_DSN")
	}
	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, auth.WithTokenIssuer(cfg.JWTIssuer), auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	recorder := audit.NewRecorder(store)
	gate, err := auth.NewGate(tokens, store)
	if err != nil {
		log.WithError(err).Fatal("auth gate")
	}
	users, err := auth.NewUserService(store, tokens, recorder)
	if err != nil {
		log.WithError(err).Fatal("user service")
	}
	var permOpts []auth.PermissionOption
	if cfg.StrictAudit {
		permOpts = append(permOpts, auth.WithStrictAudit())
	}
	perms, err := auth.NewPermissionService(store, store, recorder, permOpts...)
	if err != nil {
		log.WithError(err).Fatal("permission service")
	}

	opts := httpapi.Options{
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
	}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		// burst requests per the time the token bucket needs to refill
		window := time.Duration(float64(cfg.RateBurst) / cfg.RatePerSec * float64(time.Second))
		limiter := httpapi.NewRedisLimiter(rdb, cfg.RateBurst, window)
		opts.Limiter = limiter.Middleware
		log.WithField("redis", cfg.RedisAddr).Info("using shared rate limiter")
	}

	ready := httpapi.ReadyFunc(store.Ping)
	api, err := httpapi.New(httpapi.Deps{
		Gate:        gate,
		Users:       users,
		Permissions: perms,
		Ready:       ready,
		Version:     cfg.Version,
	}, opts)
	if err != nil {
		log.WithError(err).Fatal("build api")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewHealthServer(ready)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		health.Run(gctx, 10*time.Second)
		return nil
	})
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("listen grpc")
		}
		g.Go(func() error {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		log.WithFields(map[string]any{
			"version": cfg.Version,
			"http":    cfg.HTTPAddr,
			"grpc":    cfg.GRPCAddr,
		}).Info("starting cms-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	if os.Getenv("CMS_CONFIG_FILE") != "" {
		watcher, err := config.NewWatcher(os.Getenv, log)
		if err != nil {
			log.WithError(err).Warn("config hot reload disabled")
		} else {
			// only the log level is applied without a restart
			g.Go(func() error {
				watcher.Run(gctx, func(c config.Config) {
					obs.SetLevel(c.LogLevel)
					log.WithField("log_level", c.LogLevel).Info("config reloaded")
				})
				return nil
			})
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = store.Close()
	if err := shutdownTracing(flushCtx); err != nil {
		log.WithError(err).Warn("flush traces")
	}
	log.Info("stopped")
}
