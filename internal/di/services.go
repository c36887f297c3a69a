package di

import (
	"fmt"

	"github.com/aristath/sentinel-analytics/internal/clientdata"
	"github.com/aristath/sentinel-analytics/internal/clients/prices"
	"github.com/aristath/sentinel-analytics/internal/clients/yahoo"
	"github.com/aristath/sentinel-analytics/internal/config"
	"github.com/aristath/sentinel-analytics/internal/modules/historical"
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/report"
	"github.com/aristath/sentinel-analytics/internal/modules/returns"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
	"github.com/aristath/sentinel-analytics/internal/reliability"
	"github.com/aristath/sentinel-analytics/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the data access layer
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	container.TransactionRepo = ledger.NewTransactionRepository(container.LedgerDB.Conn(), log)
	container.PriceStore = historical.NewPriceStore(container.HistoryDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}

// InitializeServices creates clients and services. Order matters: the price
// provider needs the store and cache, and the report service needs every
// analytics engine.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Market data
	container.YahooClient = yahoo.NewClient(log)
	container.PriceFetcher = prices.NewBatchFetcher(
		container.YahooClient,
		cfg.Prices.FetchWorkers,
		cfg.Prices.RatePerMinute,
		log,
	)
	container.PriceProvider = prices.NewProvider(
		container.PriceFetcher,
		container.PriceStore,
		container.ClientDataRepo,
		log,
	)

	// Analytics
	rf := cfg.Analytics.RiskFreeRate
	container.PortfolioService = portfolio.NewPortfolioService(container.TransactionRepo, container.PriceProvider, log)
	container.ReturnCalculator = returns.NewCalculator(rf, log)
	container.RiskEngine = risk.NewEngine(rf, log)
	container.Simulator = montecarlo.NewSimulator(rf, cfg.Analytics.MaxSimulationDraws, log)
	container.ReportService = report.NewService(
		container.PortfolioService,
		container.ReturnCalculator,
		container.RiskEngine,
		container.Simulator,
		container.ClientDataRepo,
		log,
	)

	// Report archive (optional)
	if cfg.R2.Enabled() {
		r2, err := reliability.NewR2Client(
			cfg.R2.AccountID,
			cfg.R2.AccessKeyID,
			cfg.R2.SecretAccessKey,
			cfg.R2.BucketName,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to create r2 client: %w", err)
		}
		container.R2Client = r2
		container.ReportArchiver = reliability.NewReportArchiver(r2, log)
		log.Info().Str("bucket", cfg.R2.BucketName).Msg("Report archive enabled")
	} else {
		log.Info().Msg("R2 not configured, report archive disabled")
	}

	container.Scheduler = scheduler.New(log)

	log.Debug().Msg("Services initialized")
	return nil
}
