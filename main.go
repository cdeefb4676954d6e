package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mvdham/bolwatch/config"
	"mvdham/bolwatch/helpers"
	"mvdham/bolwatch/internal/bot"
	"mvdham/bolwatch/internal/extractor"
	"mvdham/bolwatch/internal/store"
	"mvdham/bolwatch/internal/watcher"
	"mvdham/bolwatch/logger"
	"mvdham/bolwatch/services/cache"
	"mvdham/bolwatch/services/notifier"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("check_interval", cfg.CheckInterval).
		Str("store_backend", cfg.StoreBackend).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Build the extraction pipeline
	session := helpers.NewSession(cfg.FetchTimeout)
	source := extractor.New(session, services.Cache, extractor.Options{
		HomepageURL:    cfg.HomepageURL,
		BlockTime:      cfg.RateLimitBlock,
		WarmupDelayMin: cfg.WarmupDelayMin,
		WarmupDelayMax: cfg.WarmupDelayMax,
	})

	// Create the background watcher
	w := watcher.New(ctx, services.Store, source, services.Notifier, watcher.Options{
		Interval:  cfg.CheckInterval,
		JitterMin: cfg.SweepJitterMin,
		JitterMax: cfg.SweepJitterMax,
	})

	watcherDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting price watcher")
		watcherDone <- w.Start()
	}()

	// Create and start the command bot
	dispatcher := bot.NewDispatcher(services.Store, source, cfg.ProductURLPrefix)
	b := bot.NewBot(services.BotAPI, dispatcher)

	botDone := make(chan error, 1)
	go func() {
		botDone <- b.Run(ctx)
	}()

	// Wait for shutdown signal or a loop exiting
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	case err := <-watcherDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Watcher exited with error")
		}
	case err := <-botDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Bot exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache    cache.CacheService
	Store    store.Store
	BotAPI   *tgbotapi.BotAPI
	Notifier notifier.Notifier
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if rs, ok := s.Store.(*store.RedisStore); ok {
		rs.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize the rate-limit cache
	switch cfg.CacheBackend {
	case "memcache":
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	default:
		services.Cache = cache.NewMemoryCache()
	}

	// Initialize the product store
	switch cfg.StoreBackend {
	case "redis":
		services.Store = store.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
		logger.Info("Connected to Redis at %s (DB: %d, Key: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
	default:
		services.Store = store.NewFileStore(cfg.DataFile)
		logger.Info("Using state file %s", cfg.DataFile)
	}

	// Initialize the Telegram API client and notifier
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot api: %w", err)
	}
	services.BotAPI = api
	services.Notifier = notifier.NewTelegramNotifier(api)

	return services, nil
}
