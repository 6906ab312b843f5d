package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/service"
	"github.com/webgradeuz/fuelbonus/internal/bot"
	"github.com/webgradeuz/fuelbonus/internal/config"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/external/qr"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/external/telegram"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/persistence/repository"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/persistence/sqlite"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/worker"
	httpserver "github.com/webgradeuz/fuelbonus/internal/interfaces/http"
	"github.com/webgradeuz/fuelbonus/pkg/database"
	"github.com/webgradeuz/fuelbonus/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting fuel bonus service", zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)
	checkRepo := repository.NewCheckRepository(db.DB, logger)
	customerRepo := repository.NewCustomerRepository(db.DB, logger)
	stationRepo := repository.NewStationRepository(db.DB, logger)

	telegramClient, err := telegram.NewClient(
		cfg.Telegram.Token, int(cfg.Telegram.PollTimeout.Seconds()), logger)
	if err != nil {
		logger.Fatal("Failed to initialize telegram client", zap.Error(err))
	}

	serviceLogger := sugarLogger{logger.Sugar()}
	customerService := service.NewCustomerService(customerRepo, checkRepo, serviceLogger)
	checkService := service.NewCheckService(
		checkRepo, customerRepo, customerService, txManager,
		qr.NewEncoder(256), cfg.Telegram.BotUsername, serviceLogger)
	stationService := service.NewStationService(stationRepo, serviceLogger)
	exportService := service.NewExportService(checkRepo, customerRepo, serviceLogger)
	notificationService := service.NewNotificationService(customerRepo, telegramClient, serviceLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := bot.NewSessionStore(cfg.Bot.SessionTTL)
	flow := bot.NewFlow(checkService, customerService, telegramClient, sessions, logger)
	go telegramClient.Poll(ctx, flow)

	workers := worker.NewManager(logger)
	workers.Register(worker.NewExpiryWorker(checkRepo, cfg.Worker.ExpiryInterval, logger))
	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		checkService, customerService, stationService,
		exportService, notificationService, serviceLogger,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}

	if err := workers.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}

	logger.Info("Server exited")
}

// sugarLogger adapts zap's sugared logger to the application Logger interface
type sugarLogger struct {
	s *zap.SugaredLogger
}

func (l sugarLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l sugarLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}
