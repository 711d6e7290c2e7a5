package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"lesson-quiz/internal/auth"
	"lesson-quiz/internal/config"
	"lesson-quiz/internal/httpapi"
	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/lesson/sqlite"
	"lesson-quiz/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	redisURL := flag.String("redis", cfg.RedisURL, "Redis URL for pending registrations (empty = in memory)")
	origins := flag.String("cors", strings.Join(cfg.CORSOrigins, ","), "comma-separated allowed CORS origins")
	logMode := flag.String("log", cfg.LogMode, "log mode: development or production")
	logBodies := flag.Int("log-bodies", 0, "log up to this many bytes of each response body")
	flag.Parse()

	log, err := logger.New(*logMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *addr, *dbPath, *redisURL, splitList(*origins), *logMode, *logBodies); err != nil {
		log.Error("lesson-service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, addr, dbPath, redisURL string, origins []string, logMode string, logBodies int) error {
	store, err := sqlite.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var otps auth.OTPStore = auth.NewMemoryOTPStore()
	if redisURL != "" {
		client, err := auth.NewRedisClient(ctx, redisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		otps = auth.NewRedisOTPStore(client)
		log.Info("pending registrations stored in redis")
	}

	notifier := auth.LogNotifier{Log: log, Reveal: !isProduction(logMode)}
	accounts := auth.NewService(store, otps, notifier, auth.Config{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.TokenTTL,
		OTPTTL:   cfg.OTPTTL,
	})
	lessons := lesson.NewService(store, store, store)

	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(httpapi.NewAPI(lessons, accounts, log), httpapi.Options{CORSOrigins: origins, LogBodies: logBodies}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("lesson-service listening", "addr", addr, "db", dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("lesson-service shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func isProduction(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
