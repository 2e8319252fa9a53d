package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookbot/internal/chat"
	"bookbot/internal/config"
	"bookbot/internal/db"
	apihttp "bookbot/internal/http"
	"bookbot/internal/llm"
	"bookbot/internal/service"
	"bookbot/internal/store"
	"bookbot/internal/theme"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store open", zap.Error(err))
	}
	defer st.Close()

	llmClient, err := llm.NewFromConfig(ctx, cfg, service.BookReplySchema(), logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}
	responder := service.NewBookResponder(llmClient, cfg.ResponderHistory, logger)

	themeState := theme.New(ctx, st, func(dark bool) {
		logger.Info("theme applied", zap.Bool("dark", dark))
	}, logger)
	session := chat.NewSession(ctx, st, responder,
		chat.WithResponderTimeout(cfg.ResponderTimeout),
		chat.WithLogger(logger),
	)
	if _, err := session.Sync(ctx); err != nil {
		logger.Warn("chat history sync disabled", zap.Error(err))
	}
	if _, err := themeState.Sync(ctx); err != nil {
		logger.Warn("theme sync disabled", zap.Error(err))
	}

	submitLimiter := service.NewMemoryRateLimiter(time.Minute, cfg.SubmitRateLimit)
	if cfg.RedisAddr != "" {
		redisClient, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Warn("redis ping failed, using in-memory rate limit", zap.Error(err))
		} else {
			defer redisClient.Close()
			submitLimiter = service.NewRedisRateLimiter(redisClient, cfg.RedisPrefix, time.Minute, cfg.SubmitRateLimit)
		}
	}

	chatHandler := apihttp.NewChatHandler(logger, session)
	themeHandler := apihttp.NewThemeHandler(logger, themeState)
	router := apihttp.NewRouter(logger, chatHandler, themeHandler, submitLimiter)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("store", cfg.StoreDriver),
			zap.String("llm_provider", cfg.LLMProvider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}

	// Dejar que la respuesta en curso quede persistida antes de cerrar el store.
	settled := make(chan struct{})
	go func() {
		session.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-shutdownCtx.Done():
		logger.Warn("responder still in flight at shutdown")
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.LogDevelopment {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
