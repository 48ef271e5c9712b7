package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	aggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingo_aggregations_total",
		Help: "Total history aggregations by game and outcome",
	}, []string{"game", "outcome"})

	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wingo_aggregation_duration_seconds",
		Help:    "Wall-clock duration of one history aggregation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"game"})

	aggregatedRecords = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wingo_aggregated_records",
		Help:    "Number of records in the merged window before truncation",
		Buckets: []float64{0, 10, 50, 100, 250, 500, 1000},
	}, []string{"game"})
)

// Config holds aggregation limits.
type Config struct {
	// PageCount is the number of pages requested, always pages 1..PageCount.
	PageCount int
	// WindowSize caps the merged history.
	WindowSize int
	// MinRequired is the smallest window handed to the analysis engine.
	MinRequired int
}

// DefaultConfig returns the standard limits: 10 pages, 500 records, at least 50.
func DefaultConfig() Config {
	return Config{
		PageCount:   10,
		WindowSize:  500,
		MinRequired: 50,
	}
}

// Validate checks that the limits are consistent.
func (c Config) Validate() error {
	if c.PageCount < 1 {
		return fmt.Errorf("page count must be >= 1 (got %d)", c.PageCount)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be >= 1 (got %d)", c.WindowSize)
	}
	if c.MinRequired < 0 || c.MinRequired > c.WindowSize {
		return fmt.Errorf("min required must be between 0 and window size %d (got %d)", c.WindowSize, c.MinRequired)
	}
	return nil
}

// PageFetcher fetches a single page of history. The upstream client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, g game.Type, page int) (game.Page, error)
}

// History is the merged, truncated and validated window, newest first.
type History struct {
	Game    game.Type
	Records []game.Record
}

// Aggregator fans out page fetches and merges the results.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(fetcher PageFetcher, config Config) (*Aggregator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "aggregator").Logger(),
	}, nil
}

// Config returns the aggregation limits.
func (a *Aggregator) Config() Config {
	return a.config
}

// Aggregate fetches pages 1..PageCount of g concurrently and returns the merged window.
// Failures are *AggregationError: KindInvalidGame before any request, KindUpstream when
// any page fails, KindInsufficient when the window is below MinRequired.
func (a *Aggregator) Aggregate(ctx context.Context, g game.Type) (*History, error) {
	if !g.Valid() {
		aggregationsTotal.WithLabelValues("invalid", string(KindInvalidGame)).Inc()
		return nil, &AggregationError{
			Kind: KindInvalidGame,
			Err:  fmt.Errorf("%w: %q", ErrInvalidGame, string(g)),
		}
	}

	start := time.Now()
	defer func() {
		aggregationDuration.WithLabelValues(string(g)).Observe(time.Since(start).Seconds())
	}()

	pages, err := a.fetchAll(ctx, g)
	if err != nil {
		aggregationsTotal.WithLabelValues(string(g), string(KindUpstream)).Inc()
		a.logger.Error().
			Err(err).
			Str("game", string(g)).
			Int("pages", a.config.PageCount).
			Dur("duration", time.Since(start)).
			Msg("History aggregation failed")
		return nil, &AggregationError{Kind: KindUpstream, Err: err}
	}

	merged := merge(pages)
	aggregatedRecords.WithLabelValues(string(g)).Observe(float64(len(merged)))
	window := truncate(merged, a.config.WindowSize)

	if len(window) < a.config.MinRequired {
		aggregationsTotal.WithLabelValues(string(g), string(KindInsufficient)).Inc()
		a.logger.Warn().
			Str("game", string(g)).
			Int("records", len(window)).
			Int("min_required", a.config.MinRequired).
			Msg("Insufficient history for prediction")
		return nil, &AggregationError{
			Kind: KindInsufficient,
			Err: fmt.Errorf("%w: got %d records, need %d",
				ErrInsufficientHistory, len(window), a.config.MinRequired),
		}
	}

	aggregationsTotal.WithLabelValues(string(g), "success").Inc()
	a.logger.Info().
		Str("game", string(g)).
		Int("pages", len(pages)).
		Int("records", len(window)).
		Dur("duration", time.Since(start)).
		Msg("History aggregated")

	return &History{Game: g, Records: window}, nil
}

// fetchAll requests every page at once. The first failure wins; siblings see a
// cancelled context and their results are dropped. Each goroutine owns one slot
// of pages, so no locking is needed.
func (a *Aggregator) fetchAll(ctx context.Context, g game.Type) ([]game.Page, error) {
	pages := make([]game.Page, a.config.PageCount)
	group, groupCtx := errgroup.WithContext(ctx)

	for i := range pages {
		pageNum := i + 1
		group.Go(func() error {
			page, err := a.fetcher.FetchPage(groupCtx, g, pageNum)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNum, err)
			}
			pages[pageNum-1] = page
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// merge concatenates pages in ascending page-index order, preserving intra-page order.
func merge(pages []game.Page) []game.Record {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	merged := make([]game.Record, 0, total)
	for _, p := range pages {
		merged = append(merged, p...)
	}
	return merged
}

// truncate keeps the first size records.
func truncate(records []game.Record, size int) []game.Record {
	if len(records) > size {
		return records[:size:size]
	}
	return records
}
