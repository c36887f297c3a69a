/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/sentinel-analytics/internal/clientdata"
	"github.com/aristath/sentinel-analytics/internal/clients/prices"
	"github.com/aristath/sentinel-analytics/internal/clients/yahoo"
	"github.com/aristath/sentinel-analytics/internal/database"
	"github.com/aristath/sentinel-analytics/internal/modules/historical"
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/report"
	"github.com/aristath/sentinel-analytics/internal/modules/returns"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
	"github.com/aristath/sentinel-analytics/internal/reliability"
	"github.com/aristath/sentinel-analytics/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: ledger (transactions), history (daily prices), cache (quotes, reports)
 * - Clients: Yahoo market data behind a rate-limited batch fetcher, optional R2
 * - Repositories: transaction log, price store, expiring cache
 * - Services: portfolio loading, returns, risk, simulation and report generation
 */
type Container struct {
	// Databases
	LedgerDB  *database.DB // Transaction log, maximum durability
	HistoryDB *database.DB // Daily closes, refetchable
	CacheDB   *database.DB // Current quotes and rendered reports

	// Clients
	YahooClient   *yahoo.Client
	PriceFetcher  *prices.BatchFetcher
	PriceProvider *prices.Provider
	R2Client      *reliability.R2Client // nil unless R2 is configured

	// Repositories
	TransactionRepo *ledger.TransactionRepository
	PriceStore      *historical.PriceStore
	ClientDataRepo  *clientdata.Repository

	// Services
	PortfolioService *portfolio.PortfolioService
	ReturnCalculator *returns.Calculator
	RiskEngine       *risk.Engine
	Simulator        *montecarlo.Simulator
	ReportService    *report.Service
	ReportArchiver   *reliability.ReportArchiver // nil unless R2 is configured

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered background jobs
type JobInstances struct {
	PriceRefresh    scheduler.Job
	CacheCleanup    scheduler.Job
	WALCheckpoint   scheduler.Job
	IntegrityCheck  scheduler.Job
	DiskSpace       scheduler.Job
	Vacuum          scheduler.Job
	ArchiveRotation scheduler.Job // nil unless R2 is configured
}

// All returns the registered jobs keyed by name
func (j *JobInstances) All() map[string]scheduler.Job {
	out := make(map[string]scheduler.Job)
	for _, job := range []scheduler.Job{
		j.PriceRefresh, j.CacheCleanup, j.WALCheckpoint,
		j.IntegrityCheck, j.DiskSpace, j.Vacuum, j.ArchiveRotation,
	} {
		if job != nil {
			out[job.Name()] = job
		}
	}
	return out
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"ledger":  c.LedgerDB,
		"history": c.HistoryDB,
		"cache":   c.CacheDB,
	}
}

// Close closes every open database
func (c *Container) Close() {
	for _, db := range []*database.DB{c.LedgerDB, c.HistoryDB, c.CacheDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}
