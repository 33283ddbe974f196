// Package app wires Finfolio's services, clients, and storage together.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finfolio/finfolio/internal/clients/fmp"
	"github.com/finfolio/finfolio/internal/clients/sendgrid"
	"github.com/finfolio/finfolio/internal/clients/yahoo"
	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
	"github.com/finfolio/finfolio/internal/services/ledger"
	"github.com/finfolio/finfolio/internal/services/pricecache"
	"github.com/finfolio/finfolio/internal/services/quote"
	"github.com/finfolio/finfolio/internal/services/valuation"
	"github.com/finfolio/finfolio/internal/storage/surrealdb"
)

// App holds all initialized services, clients, and storage. It is built
// once at process start, owns the background refresh goroutine, and is
// torn down explicitly at shutdown.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Quotes      interfaces.QuoteService
	PriceCache  interfaces.PriceCache
	Ledger      interfaces.LedgerService
	Valuation   interfaces.ValuationService
	Mail        interfaces.MailClient // nil when SendGrid is not configured
	StartupTime time.Time

	schedulerCancel context.CancelFunc
	schedulerDone   chan struct{}
}

// NewApp initializes storage, clients, and services from configuration.
// configPath may be empty, in which case FINFOLIO_CONFIG and the default
// path are consulted.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	if configPath == "" {
		configPath = os.Getenv("FINFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = "config/finfolio.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Quote providers: FMP primary when a key is configured, Yahoo always
	// available as the fallback.
	var primary interfaces.QuoteClient
	if config.Clients.FMP.APIKey != "" {
		primary = fmp.NewClient(config.Clients.FMP.APIKey,
			fmp.WithBaseURL(config.Clients.FMP.BaseURL),
			fmp.WithLogger(logger),
			fmp.WithRateLimit(config.Clients.FMP.RateLimit),
			fmp.WithTimeout(config.Clients.FMP.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("FMP API key not configured - quotes will rely on the fallback provider")
	}

	fallback := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	var mail interfaces.MailClient
	if config.Notify.SendGridAPIKey != "" && config.Notify.FromEmail != "" {
		mail = sendgrid.NewClient(config.Notify.SendGridAPIKey, config.Notify.FromEmail,
			sendgrid.WithLogger(logger),
		)
	} else {
		logger.Info().Msg("SendGrid not configured - welcome emails disabled")
	}

	quoteService := quote.NewService(primary, fallback, logger)
	cacheService := pricecache.NewService(storageManager.PriceStore(), quoteService, logger)
	ledgerService := ledger.NewService(storageManager.HoldingStore(), storageManager.SaleStore(), cacheService, logger)
	valuationService := valuation.NewService(storageManager.HoldingStore(), storageManager.SaleStore(), cacheService, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Quotes:      quoteService,
		PriceCache:  cacheService,
		Ledger:      ledgerService,
		Valuation:   valuationService,
		Mail:        mail,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// StartPriceScheduler launches the background price refresh goroutine.
// Call once, after the request-serving layer is up.
func (a *App) StartPriceScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	a.schedulerDone = make(chan struct{})
	go func() {
		defer close(a.schedulerDone)
		startPriceScheduler(schedulerCtx, a.Storage.HoldingStore(), a.PriceCache, a.Quotes, a.Logger, a.Config.Refresh.GetInterval())
	}()
}

// WarmCache runs one synchronous warm pass over all held symbols. Failures
// are logged and swallowed: a cold cache never blocks startup.
func (a *App) WarmCache(ctx context.Context) {
	warmCache(ctx, a.Storage.HoldingStore(), a.PriceCache, a.Quotes, a.Logger)
}

// Close releases all resources held by the App. The scheduler is cancelled
// first and waited for, so an in-flight sweep finishes its current symbol
// instead of being killed mid-write.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
		if a.schedulerDone != nil {
			<-a.schedulerDone
		}
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
