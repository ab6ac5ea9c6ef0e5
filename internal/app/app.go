// Package app wires configuration, storage, clients, and services into a
// single runnable core shared by the server entrypoint.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbhatta/kosha/internal/clients/gemini"
	"github.com/rbhatta/kosha/internal/clients/gmail"
	"github.com/rbhatta/kosha/internal/clients/yahoo"
	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/services/ingest"
	"github.com/rbhatta/kosha/internal/services/investment"
	"github.com/rbhatta/kosha/internal/services/ledger"
	"github.com/rbhatta/kosha/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config            *common.Config
	Logger            *common.Logger
	Storage           interfaces.StorageManager
	MailClient        interfaces.MailClient
	GeminiClient      interfaces.GeminiClient
	QuoteClient       interfaces.QuoteClient
	LedgerService     interfaces.LedgerService
	IngestService     interfaces.IngestService
	InvestmentService interfaces.InvestmentService
	StartupTime       time.Time

	watcherCancel   context.CancelFunc
	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes all services, clients, and storage.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, KOSHA_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("KOSHA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "kosha.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/kosha.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()
	internalStore := storageManager.InternalStore()

	geminiKey, err := common.ResolveAPIKey(ctx, internalStore, "gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - email import will be unavailable")
	}

	mailClient := gmail.NewClient(
		config.Clients.Gmail.ClientID,
		config.Clients.Gmail.ClientSecret,
		gmail.WithLogger(logger),
		gmail.WithRateLimit(config.Clients.Gmail.RateLimit),
		gmail.WithTimeout(config.Clients.Gmail.GetTimeout()),
	)

	var geminiClient interfaces.GeminiClient
	if geminiKey != "" {
		client, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			geminiClient = client
		}
	}

	quoteClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	ledgerService := ledger.NewService(storageManager, logger)
	ingestService := ingest.NewService(storageManager, ledgerService, mailClient, geminiClient, logger, config)
	investmentService := investment.NewService(storageManager, quoteClient, logger)

	a := &App{
		Config:            config,
		Logger:            logger,
		Storage:           storageManager,
		MailClient:        mailClient,
		GeminiClient:      geminiClient,
		QuoteClient:       quoteClient,
		LedgerService:     ledgerService,
		IngestService:     ingestService,
		InvestmentService: investmentService,
		StartupTime:       startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel watcher, cancel scheduler, close storage.
func (a *App) Close() {
	if a.watcherCancel != nil {
		a.watcherCancel()
		a.watcherCancel = nil
	}
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartTriggerWatcher launches the background sync trigger poller.
func (a *App) StartTriggerWatcher() {
	watcherCtx, watcherCancel := context.WithCancel(context.Background())
	a.watcherCancel = watcherCancel
	go startTriggerWatcher(watcherCtx, a.Storage, a.IngestService, a.Logger, a.Config.Ingest.GetPollInterval())
}

// StartPriceScheduler launches the background investment price updater.
func (a *App) StartPriceScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startPriceScheduler(schedulerCtx, a.InvestmentService, a.Logger, a.Config.Scheduler)
}
