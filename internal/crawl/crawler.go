// Package crawl drives profile extraction over ordered title lists, with
// idempotent skip-if-stored semantics and per-outcome accounting.
package crawl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollydata/filmcrawl/internal/profile"
	"github.com/hollydata/filmcrawl/internal/progress"
	"github.com/hollydata/filmcrawl/internal/sources"
	"github.com/hollydata/filmcrawl/internal/store"
)

// TitleLister generates the ordered film-title list for a year. The wiki
// source implements it; the crawler caches its output per year.
type TitleLister interface {
	TitlesForYear(ctx context.Context, year int) ([]string, error)
}

// Results accumulates counts per outcome kind for one batch. The three
// counters always sum to the number of input titles.
type Results struct {
	Succeeded     int
	Failed        int
	AlreadyExists int
}

// Add increments the counter for the outcome.
func (r *Results) Add(o progress.Outcome) {
	switch o {
	case progress.OutcomeSucceeded:
		r.Succeeded++
	case progress.OutcomeFailed:
		r.Failed++
	case progress.OutcomeAlreadyExists:
		r.AlreadyExists++
	}
}

// Merge adds other's counts into r.
func (r *Results) Merge(other Results) {
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.AlreadyExists += other.AlreadyExists
}

// Total returns the number of attempts accounted for.
func (r Results) Total() int {
	return r.Succeeded + r.Failed + r.AlreadyExists
}

func (r Results) String() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d already exist",
		r.Succeeded, r.Failed, r.AlreadyExists)
}

// Config controls crawler behavior.
type Config struct {
	// Concurrency bounds the number of titles extracted in parallel.
	// The default of 1 preserves strictly sequential processing.
	Concurrency int
}

// Crawler orchestrates extraction for one source: check the store, invoke
// the extractor, persist, classify. Entities are independent, so a single
// title's failure never aborts a batch.
type Crawler struct {
	store     *store.Store
	extractor sources.Extractor
	lister    TitleLister
	sink      progress.Sink
	logger    *zap.Logger
	cfg       Config
	runID     uuid.UUID
}

// New constructs a Crawler. The sink may be nil; the lister is only needed
// for year-indexed crawls.
func New(
	st *store.Store,
	extractor sources.Extractor,
	lister TitleLister,
	sink progress.Sink,
	logger *zap.Logger,
	cfg Config,
) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Crawler{
		store:     st,
		extractor: extractor,
		lister:    lister,
		sink:      sink,
		logger:    logger,
		cfg:       cfg,
		runID:     uuid.New(),
	}
}

// CrawlTitle processes a single title: skip when stored, otherwise extract
// and persist. year 0 means no disambiguation hint.
func (c *Crawler) CrawlTitle(ctx context.Context, title string, year int) progress.Outcome {
	start := time.Now()
	outcome, note := c.crawlOne(ctx, title, year)
	c.emit(ctx, progress.Event{
		RunID:   c.runID,
		TS:      time.Now().UTC(),
		Stage:   progress.StageTitleDone,
		Source:  c.extractor.Name(),
		Title:   title,
		Outcome: outcome,
		Dur:     time.Since(start),
		Note:    note,
	})
	return outcome
}

func (c *Crawler) crawlOne(ctx context.Context, title string, year int) (progress.Outcome, string) {
	key := profile.NormalizeKey(title)
	exists, err := c.store.Exists(c.extractor.Name(), key)
	if err != nil {
		c.logger.Error("store lookup failed",
			zap.String("source", c.extractor.Name()),
			zap.String("key", key),
			zap.Error(err))
		return progress.OutcomeFailed, err.Error()
	}
	if exists {
		return progress.OutcomeAlreadyExists, ""
	}

	prof, err := c.extractor.Extract(ctx, title, year)
	if err != nil {
		c.logger.Warn("extraction failed",
			zap.String("source", c.extractor.Name()),
			zap.String("title", title),
			zap.Error(err))
		return progress.OutcomeFailed, err.Error()
	}

	// PutIfAbsent keeps the check-then-act pair effectively atomic per key
	// when titles are crawled in parallel: the loser of a race classifies as
	// already-exists rather than overwriting.
	if err := c.store.PutIfAbsent(c.extractor.Name(), key, prof); err != nil {
		if errors.Is(err, store.ErrExists) {
			return progress.OutcomeAlreadyExists, ""
		}
		c.logger.Error("persist failed",
			zap.String("source", c.extractor.Name()),
			zap.String("key", key),
			zap.Error(err))
		return progress.OutcomeFailed, err.Error()
	}
	return progress.OutcomeSucceeded, ""
}

// CrawlTitles processes an ordered title list (no deduplication; that is the
// caller's responsibility) and returns per-outcome totals.
func (c *Crawler) CrawlTitles(ctx context.Context, titles []string, year int) Results {
	c.emit(ctx, progress.Event{
		RunID:  c.runID,
		TS:     time.Now().UTC(),
		Stage:  progress.StageRunStart,
		Source: c.extractor.Name(),
		Note:   fmt.Sprintf("%d titles", len(titles)),
	})

	var results Results
	if c.cfg.Concurrency == 1 {
		for _, title := range titles {
			results.Add(c.CrawlTitle(ctx, title, year))
		}
	} else {
		results = c.crawlParallel(ctx, titles, year)
	}

	c.emit(ctx, progress.Event{
		RunID:  c.runID,
		TS:     time.Now().UTC(),
		Stage:  progress.StageRunDone,
		Source: c.extractor.Name(),
		Note:   results.String(),
	})
	return results
}

func (c *Crawler) crawlParallel(ctx context.Context, titles []string, year int) Results {
	var (
		mu      sync.Mutex
		results Results
		wg      sync.WaitGroup
	)
	work := make(chan string)
	for i := 0; i < c.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for title := range work {
				outcome := c.CrawlTitle(ctx, title, year)
				mu.Lock()
				results.Add(outcome)
				mu.Unlock()
			}
		}()
	}
	for _, title := range titles {
		work <- title
	}
	close(work)
	wg.Wait()
	return results
}

// CrawlFile processes the newline-delimited title list in the given file.
func (c *Crawler) CrawlFile(ctx context.Context, path string, year int) (Results, error) {
	titles, err := TitlesFromFile(path)
	if err != nil {
		return Results{}, err
	}
	return c.CrawlTitles(ctx, titles, year), nil
}

// CrawlYear obtains the title list for a year (generating and caching the
// artifact when missing) and crawls it with the year as disambiguation hint.
func (c *Crawler) CrawlYear(ctx context.Context, year int) (Results, error) {
	titles, err := c.titlesForYear(ctx, year)
	if err != nil {
		return Results{}, err
	}
	return c.CrawlTitles(ctx, titles, year), nil
}

// CrawlYears crawls every year in the inclusive range.
func (c *Crawler) CrawlYears(ctx context.Context, from, to int) (Results, error) {
	var total Results
	for year := from; year <= to; year++ {
		results, err := c.CrawlYear(ctx, year)
		if err != nil {
			return total, err
		}
		total.Merge(results)
	}
	return total, nil
}

// titlesForYear reads the cached year artifact, regenerating it via the
// lister when absent.
func (c *Crawler) titlesForYear(ctx context.Context, year int) ([]string, error) {
	path := TitleListPath(c.store.Root(), year)
	if _, err := os.Stat(path); err == nil {
		return TitlesFromFile(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat title list: %w", err)
	}

	if c.lister == nil {
		return nil, fmt.Errorf("no title lister configured for year crawls")
	}
	titles, err := c.lister.TitlesForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("generate title list for %d: %w", year, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create title list directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(titles, "\n")), 0o600); err != nil {
		return nil, fmt.Errorf("cache title list: %w", err)
	}
	c.logger.Info("generated title list",
		zap.Int("year", year),
		zap.Int("titles", len(titles)),
		zap.String("path", path))
	return titles, nil
}

func (c *Crawler) emit(ctx context.Context, evt progress.Event) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Consume(ctx, []progress.Event{evt}); err != nil {
		c.logger.Warn("progress sink failed", zap.Error(err))
	}
}

// TitleListPath returns the deterministic year-keyed artifact location under
// the data root.
func TitleListPath(root string, year int) string {
	return filepath.Join(root, "wiki_lists", fmt.Sprintf("%d_titles.txt", year))
}

// TitlesFromFile reads a newline-delimited ordered title list, skipping
// blank lines.
func TitlesFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open title list: %w", err)
	}
	defer f.Close()

	var titles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			titles = append(titles, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read title list: %w", err)
	}
	return titles, nil
}
