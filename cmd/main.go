package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NgigiN/paywallet/internal/api"
	"github.com/NgigiN/paywallet/internal/config"
	"github.com/NgigiN/paywallet/internal/discord"
	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/history"
	"github.com/NgigiN/paywallet/internal/idempotency"
	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/NgigiN/paywallet/internal/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("wallet stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := storage.NewDatabase(cfg.DatabasePath,
		storage.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))))
	if err != nil {
		return fmt.Errorf("failed to initialize the database: %w", err)
	}
	defer db.Close()

	var store idempotency.Store
	if cfg.Redis.Addr != "" {
		store, err = idempotency.NewRedisStore(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
	} else {
		store = idempotency.NewMemoryStore(5 * time.Minute)
	}
	defer store.Close()
	guard := idempotency.NewGuard(store, cfg.HTTP.IdempotencyTTL)

	opts := []engine.Option{
		engine.WithPolicy(cfg.Engine.Policy()),
		engine.WithLogger(log.Named("engine")),
	}

	var session *discordgo.Session
	if cfg.Discord.BotToken != "" {
		if session, err = discord.NewSession(cfg.Discord.BotToken); err != nil {
			return err
		}
		opts = append(opts, engine.WithNotifier(discord.NewReviewer(session, cfg.Discord.ReviewChannelID)))
	}
	eng := engine.New(db, opts...)

	var bot *discord.Bot
	if session != nil {
		bot = discord.NewBot(session, eng, history.New(db), guard, cfg.Discord.ChannelID, log)
	}
	return serve(cfg, log, db, eng, guard, bot)
}

func serve(cfg *config.Config, log *zap.Logger, db *storage.Database, eng *engine.Engine, guard *idempotency.Guard, bot *discord.Bot) error {
	if mismatches, err := eng.VerifyBalances(context.Background()); err != nil {
		return fmt.Errorf("failed to verify balances: %w", err)
	} else if len(mismatches) > 0 {
		log.Warn("ledger and balances disagree", zap.Int("accounts", len(mismatches)))
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(&api.Handler{
		Engine:  eng,
		History: history.New(db),
		Guard:   guard,
		DB:      db,
		Timeout: cfg.HTTP.RequestTimeout,
		Log:     log.Named("api"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if bot != nil {
		if err := bot.Start(); err != nil {
			return fmt.Errorf("failed to start bot: %w", err)
		}
		defer bot.Stop()
		log.Info("Bot is running...")
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
