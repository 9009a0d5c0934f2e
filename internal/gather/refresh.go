package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"tidder/internal/config"
	"tidder/internal/domain"
	"tidder/internal/store"
	"tidder/internal/util"
)

// Gatherer is the interface for long-running data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run starts the data gathering process. It blocks until ctx is cancelled.
	Run(ctx context.Context) error
}

var _ Gatherer = (*Refresher)(nil)

// RefreshStats summarises one refresh pass.
type RefreshStats struct {
	Quotes  int64
	Bars    int64
	Failed  int64
	Elapsed time.Duration
}

// Refresher pulls quotes for the indices and every listed company, and
// appends new daily bars for the companies, on a cron schedule.
type Refresher struct {
	provider  Provider
	companies store.CompanyStore
	quotes    store.QuoteStore
	bars      store.BarStore

	csvPath     string
	indices     []config.Index
	schedule    string
	onStart     bool
	historyDays int
	maxWorkers  int
	maxRetries  int
	retryDelay  time.Duration
	limiter     *util.RateLimiter

	// AfterRun, when set, is called after every pass that refreshed at
	// least one quote.
	AfterRun func(RefreshStats)

	now func() time.Time
	log *slog.Logger
}

// NewRefresher creates a Refresher writing to the given stores.
func NewRefresher(p Provider, cs store.CompanyStore, qs store.QuoteStore, bs store.BarStore, cfg *config.Config) *Refresher {
	return &Refresher{
		provider:    p,
		companies:   cs,
		quotes:      qs,
		bars:        bs,
		csvPath:     cfg.Source.CompaniesCSV,
		indices:     cfg.Source.Indices,
		schedule:    cfg.Refresh.Schedule,
		onStart:     cfg.Refresh.OnStart,
		historyDays: cfg.Source.HistoryDays,
		maxWorkers:  cfg.Refresh.MaxWorkers,
		maxRetries:  cfg.Refresh.MaxRetries,
		retryDelay:  time.Second,
		limiter:     util.NewRateLimiter(cfg.Refresh.RateLimitPerMin, cfg.Refresh.RateBurst),
		now:         time.Now,
		log:         slog.Default().With("gatherer", "refresh", "provider", p.Name()),
	}
}

// Name returns the gatherer identifier.
func (r *Refresher) Name() string { return "refresh" }

// SyncCompanies loads the companies CSV into the company store.
func (r *Refresher) SyncCompanies(ctx context.Context) (int, error) {
	companies, err := LoadCompanies(r.csvPath)
	if err != nil {
		return 0, err
	}
	if err := r.companies.UpsertCompanies(ctx, companies); err != nil {
		return 0, fmt.Errorf("storing companies: %w", err)
	}
	r.log.Info("companies synced", "count", len(companies), "path", r.csvPath)
	return len(companies), nil
}

// Run refreshes on the configured cron schedule until ctx is cancelled.
// Overlapping passes are skipped.
func (r *Refresher) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.schedule, func() { r.runLogged(ctx) }); err != nil {
		return fmt.Errorf("register refresh schedule %q: %w", r.schedule, err)
	}
	c.Start()
	r.log.Info("refresh scheduled", "schedule", r.schedule)

	if r.onStart {
		go r.runLogged(ctx)
	}

	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info("refresh stopped")
	return nil
}

func (r *Refresher) runLogged(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		r.log.Error("refresh failed", "error", err)
	}
}

// RunOnce performs one refresh pass. Per-symbol failures are logged and
// counted; the error is non-nil only when the pass could not start or ctx
// was cancelled.
func (r *Refresher) RunOnce(ctx context.Context) (RefreshStats, error) {
	start := r.now()
	companies, err := r.companies.ListCompanies(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("listing companies: %w", err)
	}

	var quotes, bars, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.maxWorkers, 1))

	for _, idx := range r.indices {
		sym := idx.Symbol
		g.Go(func() error {
			if err := r.refreshQuote(gctx, sym); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				r.log.Warn("index quote failed", "symbol", sym, "error", err)
				return nil
			}
			quotes.Add(1)
			return nil
		})
	}

	for _, c := range companies {
		sym := c.Symbol
		g.Go(func() error {
			if err := r.refreshQuote(gctx, sym); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				r.log.Warn("quote failed", "symbol", sym, "error", err)
				return nil
			}
			quotes.Add(1)

			n, err := r.refreshBars(gctx, sym)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				r.log.Warn("bars failed", "symbol", sym, "error", err)
				return nil
			}
			bars.Add(int64(n))
			return nil
		})
	}

	err = g.Wait()
	stats := RefreshStats{
		Quotes:  quotes.Load(),
		Bars:    bars.Load(),
		Failed:  failed.Load(),
		Elapsed: r.now().Sub(start),
	}
	if err != nil {
		return stats, err
	}

	r.log.Info("refresh complete",
		"quotes", stats.Quotes,
		"bars", stats.Bars,
		"failed", stats.Failed,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
	)
	if r.AfterRun != nil && stats.Quotes > 0 {
		r.AfterRun(stats)
	}
	return stats, nil
}

func (r *Refresher) refreshQuote(ctx context.Context, symbol string) error {
	var q domain.QuoteRecord
	err := util.Retry(ctx, max(r.maxRetries, 1), r.retryDelay, func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		q, err = r.provider.Quote(ctx, symbol)
		if errors.Is(err, ErrNoData) {
			return util.Permanent(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	q.Symbol = symbol
	return r.quotes.UpsertQuote(ctx, q)
}

// refreshBars fetches bars after the newest stored one, or the configured
// history window for a symbol with none.
func (r *Refresher) refreshBars(ctx context.Context, symbol string) (int, error) {
	now := r.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	start := end.AddDate(0, 0, -r.historyDays)
	last, err := r.bars.LastBarTime(ctx, symbol)
	switch {
	case err == nil:
		start = last.AddDate(0, 0, 1)
	case !errors.Is(err, store.ErrNotFound):
		return 0, fmt.Errorf("last bar: %w", err)
	}
	if start.After(end) {
		return 0, nil
	}

	var bars []domain.Bar
	err = util.Retry(ctx, max(r.maxRetries, 1), r.retryDelay, func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		bars, err = r.provider.DailyBars(ctx, symbol, DateRange{Start: start, End: end.Add(24*time.Hour - time.Second)})
		if errors.Is(err, ErrNoData) {
			return util.Permanent(err)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := r.bars.WriteBars(ctx, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}
