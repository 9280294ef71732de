// Package orchestrator runs the end-to-end scrape pipeline for an
// organization: source selection, batched fetching and extraction,
// metrics bookkeeping, and gated persistence.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kindredpress/event-scraper/internal/metrics"
	"github.com/kindredpress/event-scraper/internal/scraper"
)

const (
	defaultBatchSize        = 5
	defaultMaxSources       = 10
	defaultRecencyWindow    = 12 * time.Hour
	defaultBatchDelay       = time.Second
	defaultPersistThreshold = 8
)

// Config tunes run shape. Zero values take the defaults above.
type Config struct {
	BatchSize        int
	MaxSources       int
	RecencyWindow    time.Duration
	BatchDelay       time.Duration
	PersistThreshold int
	CompletionTopic  string
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxSources <= 0 {
		c.MaxSources = defaultMaxSources
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = defaultRecencyWindow
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = defaultBatchDelay
	}
	if c.PersistThreshold <= 0 {
		c.PersistThreshold = defaultPersistThreshold
	}
	return c
}

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps carries the orchestrator's collaborators. Publisher and Archive are
// optional; everything else is required.
type Deps struct {
	Sources   scraper.SourceStore
	Events    scraper.EventStore
	Cache     scraper.CacheStore
	Settings  scraper.SettingsStore
	Fetcher   scraper.Fetcher
	Extractor scraper.Extractor
	Publisher scraper.Publisher
	Archive   scraper.BlobStore
	Clock     scraper.Clock
	IDs       IDGenerator
	Logger    *zap.Logger
}

// Orchestrator coordinates one scrape run at a time per call; concurrent
// runs share nothing but the stores.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	limiter *rate.Limiter
}

// New validates deps and builds an orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Sources == nil:
		return nil, fmt.Errorf("source store is required")
	case deps.Events == nil:
		return nil, fmt.Errorf("event store is required")
	case deps.Cache == nil:
		return nil, fmt.Errorf("cache store is required")
	case deps.Settings == nil:
		return nil, fmt.Errorf("settings store is required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	case deps.IDs == nil:
		return nil, fmt.Errorf("id generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		limiter: rate.NewLimiter(rate.Every(cfg.BatchDelay), 1),
	}, nil
}

// sourceResult is one source's outcome inside a batch.
type sourceResult struct {
	source    scraper.EventSource
	events    []scraper.ScrapedEvent
	method    string
	duration  time.Duration
	fromCache bool
	err       error
}

// Run executes the pipeline and returns a summary. The returned error is
// non-nil only for source-load failures; all per-source degradation is
// reflected in the summary counts.
func (o *Orchestrator) Run(ctx context.Context, req scraper.ScrapeRequest) (scraper.ScrapeSummary, error) {
	runID, err := o.deps.IDs.NewID()
	if err != nil {
		runID = fmt.Sprintf("run-%d", o.deps.Clock.Now().UnixNano())
	}
	logger := o.deps.Logger.With(
		zap.String("run_id", runID),
		zap.String("organization_id", req.OrganizationID.String()),
	)
	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	summary := scraper.ScrapeSummary{RunID: runID}

	filterEnabled := o.loadFilterSetting(ctx, req, logger)

	sources, err := o.deps.Sources.ListActiveSources(ctx, req.OrganizationID, req.SourceIDs)
	if err != nil {
		logger.Error("source load failed", zap.Error(err))
		metrics.ObserveRun("source_load_error")
		summary.Message = "failed to load sources"
		return summary, err
	}
	if len(sources) == 0 {
		summary.Success = true
		summary.Message = "no active sources"
		metrics.ObserveRun("empty")
		return summary, nil
	}

	now := o.deps.Clock.Now()
	selected, skipped := o.selectSources(sources, req, now)
	if len(skipped) > 0 {
		logger.Info("skipping recently scraped sources", zap.Int("count", len(skipped)))
	}

	results := o.processAll(ctx, selected, filterEnabled, req.ForceRefresh, logger)

	var allEvents []scraper.ScrapedEvent
	for _, res := range results {
		allEvents = append(allEvents, res.events...)
		if len(res.events) > 0 {
			summary.SourcesProcessed++
		} else {
			summary.SourcesFailed++
		}
	}
	summary.TotalEvents = len(allEvents)
	summary.Success = true
	if req.TestMode {
		summary.Events = allEvents
	}

	persisted := o.persist(ctx, req, allEvents, summary, logger)
	summary.Message = buildMessage(summary, len(skipped), persisted)
	o.notify(ctx, req, summary, logger)

	metrics.ObserveRun("success")
	metrics.ObserveEvents(summary.TotalEvents, persisted)
	logger.Info("run complete",
		zap.Int("total_events", summary.TotalEvents),
		zap.Int("sources_processed", summary.SourcesProcessed),
		zap.Int("sources_failed", summary.SourcesFailed),
		zap.Int("persisted", persisted),
	)
	return summary, nil
}

// loadFilterSetting reads the org toggle, falling back to permissive on any
// error: a broken settings row must not block scraping.
func (o *Orchestrator) loadFilterSetting(ctx context.Context, req scraper.ScrapeRequest, logger *zap.Logger) bool {
	settings, err := o.deps.Settings.FilterSettings(ctx, req.OrganizationID)
	if err != nil {
		logger.Warn("filter settings unavailable, defaulting to permissive", zap.Error(err))
		return false
	}
	return settings.FilterEnabled
}

// selectSources applies the recency skip and the priority triage.
func (o *Orchestrator) selectSources(
	sources []scraper.EventSource,
	req scraper.ScrapeRequest,
	now time.Time,
) (selected, skipped []scraper.EventSource) {
	if req.ForceRefresh {
		selected = sources
	} else {
		for _, src := range sources {
			if src.LastScrapedAt != nil && now.Sub(*src.LastScrapedAt) < o.cfg.RecencyWindow {
				skipped = append(skipped, src)
				continue
			}
			selected = append(selected, src)
		}
	}

	// Time-boxed callers get the most reliable sources first.
	if len(selected) > o.cfg.MaxSources && !req.ForceRefresh {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Metrics.SuccessRate > selected[j].Metrics.SuccessRate
		})
		selected = selected[:o.cfg.MaxSources]
	}
	return selected, skipped
}

// processAll walks the selected sources in fixed-size batches. Sources in a
// batch run concurrently; batches are paced to bound outbound request rate.
func (o *Orchestrator) processAll(
	ctx context.Context,
	sources []scraper.EventSource,
	filterEnabled bool,
	force bool,
	logger *zap.Logger,
) []sourceResult {
	// The limiter starts with a stored token; draining it here makes the
	// first batch transition wait the full interval like every other.
	o.limiter.Allow()

	results := make([]sourceResult, 0, len(sources))
	for start := 0; start < len(sources); start += o.cfg.BatchSize {
		if start > 0 {
			if err := o.limiter.Wait(ctx); err != nil {
				logger.Warn("batch pacing interrupted", zap.Error(err))
			}
		}
		end := start + o.cfg.BatchSize
		if end > len(sources) {
			end = len(sources)
		}
		batch := sources[start:end]

		batchResults := make([]sourceResult, len(batch))
		var wg sync.WaitGroup
		for i, src := range batch {
			wg.Add(1)
			go func(i int, src scraper.EventSource) {
				defer wg.Done()
				batchResults[i] = o.processSource(ctx, src, filterEnabled, force)
			}(i, src)
		}
		wg.Wait()

		for _, res := range batchResults {
			o.recordOutcome(ctx, res, logger)
			results = append(results, res)
		}
	}
	return results
}

// processSource runs fetch → extract → cache for one source. A panic in any
// stage is converted into a per-source error so siblings are untouched.
func (o *Orchestrator) processSource(
	ctx context.Context,
	src scraper.EventSource,
	filterEnabled bool,
	force bool,
) (res sourceResult) {
	res.source = src
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("source %s panicked: %v", src.Name, r)
			res.events = nil
		}
	}()

	now := o.deps.Clock.Now()
	day := scraper.CacheDay(now)
	start := time.Now()
	defer func() { res.duration = time.Since(start) }()

	if !force {
		entry, found, err := o.deps.Cache.Get(ctx, src.ID, day)
		if err != nil {
			o.deps.Logger.Warn("cache lookup failed",
				zap.String("source", src.Name), zap.Error(err))
		} else if found && entry.IsValid(now) {
			res.events = entry.Events
			res.method = "cache"
			res.fromCache = true
			return res
		}
	}

	fetched, err := o.deps.Fetcher.Fetch(ctx, src.URL)
	if err != nil {
		res.err = err
		return res
	}
	res.method = fetched.Method

	o.archiveHTML(ctx, src, day, fetched)

	res.events = o.deps.Extractor.Extract(fetched.HTML, src, filterEnabled)

	// An empty extraction is not worth remembering: caching it would feed
	// the same nothing to every later run that day and suppress retries.
	if len(res.events) == 0 {
		return res
	}

	if err := o.deps.Cache.Put(ctx, scraper.CacheEntry{
		SourceID:  src.ID,
		Day:       day,
		Events:    res.events,
		Method:    fetched.Method,
		CreatedAt: now,
	}); err != nil {
		o.deps.Logger.Warn("cache write failed",
			zap.String("source", src.Name), zap.Error(err))
	}
	return res
}

// recordOutcome folds a result into the source's rolling metrics. Cache hits
// are not scrape attempts and leave the metrics untouched.
func (o *Orchestrator) recordOutcome(ctx context.Context, res sourceResult, logger *zap.Logger) {
	switch {
	case res.err != nil:
		logger.Warn("source scrape failed",
			zap.String("source", res.source.Name), zap.Error(res.err))
		metrics.ObserveSource("error", res.duration)
	case res.fromCache:
		metrics.ObserveSource("cached", res.duration)
	case len(res.events) == 0:
		metrics.ObserveSource("empty", res.duration)
	default:
		metrics.ObserveSource("ok", res.duration)
	}
	if res.fromCache {
		return
	}

	now := o.deps.Clock.Now()
	m := res.source.Metrics
	switch {
	case res.err != nil:
		m.RecordFailure(res.err.Error(), now)
	case len(res.events) == 0:
		// Extraction that yields nothing counts against reliability the
		// same way an exhausted fetch does.
		m.RecordFailure("no events extracted", now)
	default:
		m.RecordSuccess(len(res.events), res.duration, now)
	}
	if err := o.deps.Sources.UpdateMetrics(ctx, res.source.ID, m, now); err != nil {
		logger.Warn("metrics update failed",
			zap.String("source", res.source.Name), zap.Error(err))
	}
}

// archiveHTML snapshots the raw page when an archive sink is configured.
func (o *Orchestrator) archiveHTML(ctx context.Context, src scraper.EventSource, day string, fetched scraper.FetchResult) {
	if o.deps.Archive == nil || fetched.HTML == "" {
		return
	}
	path := fmt.Sprintf("sources/%s/%s.html", src.ID, day)
	if _, err := o.deps.Archive.PutObject(ctx, path, "text/html", []byte(fetched.HTML)); err != nil {
		o.deps.Logger.Warn("archive write failed",
			zap.String("source", src.Name), zap.Error(err))
	}
}

// persist applies the partial-success gate and upserts. Returns how many
// rows were inserted; persistence failures never fail the run.
func (o *Orchestrator) persist(
	ctx context.Context,
	req scraper.ScrapeRequest,
	events []scraper.ScrapedEvent,
	summary scraper.ScrapeSummary,
	logger *zap.Logger,
) int {
	if req.TestMode {
		return 0
	}
	if summary.SourcesProcessed < o.cfg.PersistThreshold && summary.TotalEvents == 0 {
		return 0
	}
	inserted, err := o.deps.Events.UpsertEvents(ctx, events)
	if err != nil {
		logger.Error("event persistence failed", zap.Error(err))
		return inserted
	}
	return inserted
}

// notify publishes the run summary for downstream consumers.
func (o *Orchestrator) notify(ctx context.Context, req scraper.ScrapeRequest, summary scraper.ScrapeSummary, logger *zap.Logger) {
	if o.deps.Publisher == nil || o.cfg.CompletionTopic == "" || req.TestMode {
		return
	}
	payload := map[string]any{
		"run_id":            summary.RunID,
		"organization_id":   req.OrganizationID.String(),
		"total_events":      summary.TotalEvents,
		"sources_processed": summary.SourcesProcessed,
		"sources_failed":    summary.SourcesFailed,
	}
	if _, err := o.deps.Publisher.Publish(ctx, o.cfg.CompletionTopic, payload); err != nil {
		logger.Warn("run notification failed", zap.Error(err))
	}
}

func buildMessage(summary scraper.ScrapeSummary, skipped, persisted int) string {
	msg := fmt.Sprintf("scraped %d events from %d sources (%d failed)",
		summary.TotalEvents, summary.SourcesProcessed, summary.SourcesFailed)
	if skipped > 0 {
		msg += fmt.Sprintf(", %d skipped as recently scraped", skipped)
	}
	if persisted > 0 {
		msg += fmt.Sprintf(", %d new events persisted", persisted)
	}
	return msg
}
