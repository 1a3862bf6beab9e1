package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cabinet-calculator/internal/application"
	"github.com/eugenenazirov/cabinet-calculator/internal/config"
	"github.com/eugenenazirov/cabinet-calculator/internal/logging"
)

var signalNotify = signal.Notify

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func main() {
	kingpinApp := kingpin.New("cabinet-calculator", "Cabinet Calculator - estimates how many cabinets a list of equipment needs")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	locale := kingpinApp.Flag("locale", "Default display locale (ja, en)").String()
	cabinetWidth := kingpinApp.Flag("cabinet-width", "Cabinet inner width in mm").Float64()
	cabinetDepth := kingpinApp.Flag("cabinet-depth", "Cabinet inner depth in mm").Float64()
	cabinetHeight := kingpinApp.Flag("cabinet-height", "Cabinet inner height in mm").Float64()
	autosaveInterval := kingpinApp.Flag("autosave-interval", "How often the rows are snapshotted").Duration()
	storageBackend := kingpinApp.Flag("storage", "Snapshot storage backend").Enum(config.BackendMemory, config.BackendFile, config.BackendMongo)
	dataDir := kingpinApp.Flag("data-dir", "Directory for the file storage backend").String()
	mongoURI := kingpinApp.Flag("mongo-uri", "MongoDB connection URI for the mongo storage backend").String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:       *configFile,
		Port:             port,
		LogLevel:         logLevel,
		Locale:           locale,
		ContainerWidth:   cabinetWidth,
		ContainerDepth:   cabinetDepth,
		ContainerHeight:  cabinetHeight,
		AutosaveInterval: autosaveInterval,
		StorageBackend:   storageBackend,
		DataDir:          dataDir,
		MongoURI:         mongoURI,
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app, cfg.ShutdownGracePeriod, logger)
}

func shutdown(app shutdowner, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
