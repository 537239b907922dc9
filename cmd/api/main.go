package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"balemuya/internal/api"
	"balemuya/internal/config"
	"balemuya/internal/database"
	"balemuya/internal/domain"
	"balemuya/internal/events"
	"balemuya/internal/exports"
	"balemuya/internal/google"
	"balemuya/internal/logging"
	"balemuya/internal/metrics"
	"balemuya/internal/models"
	"balemuya/internal/notify"
	"balemuya/internal/repository"
	"balemuya/internal/service"
	"balemuya/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	cache := initCache(redisClient, &logger)

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	eventBus := events.NewEventBus()
	subscribeEventLog(eventBus, &logger)

	// Воркер зеркалирования журнала получает проводки через шину событий
	if sheetsService != nil {
		ledgerWorker := worker.NewLedgerWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, nil)
		ledgerWorker.SubscribeEvents(eventBus)
		go ledgerWorker.Start(ctx)
	}

	notifier := initNotifier(ctx, cfg, &logger)

	walletService := service.NewWalletService(db, eventBus, &logger)
	bookingService := service.NewBookingService(db, eventBus, notifier, walletService, cfg.Frontend.BaseURL, &logger)
	dashboardService := service.NewDashboardService(db, cache, time.Duration(cfg.Dashboard.CacheTTL)*time.Second, &logger)
	userService := service.NewUserService(db, &logger)
	exporter := exports.NewLedgerExporter(db, cfg.Exports.Path, &logger)

	startMetrics(ctx, cfg, &logger)

	apiServer := api.NewServer(cfg.API, bookingService, walletService, dashboardService, userService, db, cache, exporter, &logger)
	return startServer(ctx, apiServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SyncServices(context.Background(), cfg.Services); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации каталога услуг")
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// subscribeEventLog пишет аудиторский след жизненного цикла бронирований.
func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	auditLogger := logger.With().Str("component", "events").Logger()
	handler := func(event *events.Event) error {
		auditLogger.Info().Str("event_type", event.Type).RawJSON("payload", event.Payload).Msg("domain event")
		return nil
	}
	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingStatusChanged, handler)
}

// initCache собирает кэш с деградацией: redis первичный, память запасная.
func initCache(redisClient *redis.Client, logger *zerolog.Logger) domain.Cache {
	fallback := repository.NewMemoryCache()
	if redisClient == nil {
		return fallback
	}
	return repository.NewFailoverCache(repository.NewRedisCache(redisClient), fallback, logger)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.LedgerSheets {
	if !cfg.Google.Enabled {
		return nil
	}

	sheetsService, err := google.NewLedgerSheets(cfg.Google.GoogleCredentialsFile, cfg.Google.LedgerSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func initNotifier(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Warn().Msg("telegram bot token is not set, notifications disabled")
		return nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, notifications disabled")
		return nil
	}
	botAPI.Debug = cfg.Telegram.Debug

	notifier := notify.NewTelegramNotifier(
		service.NewTelegramService(botAPI),
		models.NotifyWorkers,
		models.NotifyQueueSize,
		logger,
	)
	notifier.Start(ctx)
	return notifier
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, apiServer *api.Server, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			logger.Warn().Msg("HTTP API is disabled in config")
			return
		}
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = apiServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
