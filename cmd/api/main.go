package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sponsorlink/marketplace/backend/internal/config"
	"github.com/sponsorlink/marketplace/backend/internal/handler"
	"github.com/sponsorlink/marketplace/backend/internal/logging"
	"github.com/sponsorlink/marketplace/backend/internal/middleware"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
	"github.com/sponsorlink/marketplace/backend/internal/service/chat"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

// run owns every deferred cleanup so main exits in one place.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	playbooks := playbook.Seed()
	if cfg.Chat.PlaybookFile != "" {
		extra, err := playbook.LoadFile(cfg.Chat.PlaybookFile)
		if err != nil {
			logger.Error("failed to load playbooks", zap.String("file", cfg.Chat.PlaybookFile), zap.Error(err))
			return err
		}
		playbooks = append(playbooks, extra...)
		logger.Info("loaded playbooks", zap.String("file", cfg.Chat.PlaybookFile), zap.Int("count", len(extra)))
	}
	store := playbook.NewMemoryStore(playbooks)

	if _, ok := store.FindByID(cfg.Chat.DefaultPlaybook); !ok {
		logger.Error("default playbook not found", zap.String("playbook", cfg.Chat.DefaultPlaybook))
		return fmt.Errorf("default playbook %q not found", cfg.Chat.DefaultPlaybook)
	}

	chatService := chat.NewService(store, chat.Options{
		ReplyDelay:      cfg.Chat.ReplyDelay,
		SessionTTL:      cfg.Chat.SessionTTL,
		DefaultPlaybook: cfg.Chat.DefaultPlaybook,
	}, logger)
	defer chatService.Close()

	limiter := middleware.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateBurst)

	router := handler.NewRouter(chatService, handler.RouterOptions{
		Logger:           logger,
		Limiter:          limiter,
		SubscriberBuffer: cfg.Chat.SubscriberBuffer,
	})

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Long-lived SSE requests end with the process context instead of holding Shutdown.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Info("SponsorLink chat backend listening", zap.String("addr", srv.Addr))
		return runServer(gctx, srv)
	})
	g.Go(func() error {
		return chatService.RunSweeper(gctx, cfg.Chat.SweepInterval)
	})
	g.Go(func() error {
		return limiter.RunPruner(gctx, cfg.Chat.SweepInterval, cfg.Chat.SessionTTL)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
