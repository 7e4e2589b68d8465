package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studio-insights/config"
	"studio-insights/models"
	"studio-insights/utils"
)

// ErrCrawlFailed wraps every top-level crawl failure. Failures of a single
// (page, location) pair do not surface as errors; see PageError.
var ErrCrawlFailed = errors.New("data crawl failed")

// PageError records a (page, location) pair whose aggregation failed. The
// pair is skipped and the crawl continues.
type PageError struct {
	Page     string
	Location string
	Err      error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s @ %s: %v", e.Page, e.Location, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// CrawlOptions selects what Crawl extracts. The zero value crawls every page
// for the default studio locations with tables and metrics.
type CrawlOptions struct {
	Pages     []Page
	Locations []string
	// IncludeTables and IncludeMetrics default to true when nil.
	IncludeTables   *bool
	IncludeMetrics  *bool
	MaxRowsPerTable int
}

// Bool returns a pointer to b, for CrawlOptions flags.
func Bool(b bool) *bool { return &b }

func (o CrawlOptions) withDefaults() CrawlOptions {
	if len(o.Pages) == 0 {
		o.Pages = AllPages()
	}
	if len(o.Locations) == 0 {
		o.Locations = append([]string(nil), config.DefaultLocations...)
	}
	if o.IncludeTables == nil {
		o.IncludeTables = Bool(true)
	}
	if o.IncludeMetrics == nil {
		o.IncludeMetrics = Bool(true)
	}
	if o.MaxRowsPerTable <= 0 {
		o.MaxRowsPerTable = config.DefaultMaxRowsPerTable
	}
	return o
}

// Crawler runs the page aggregators over a set of datasets.
type Crawler struct {
	logger      *utils.Logger
	concurrency int
}

// NewCrawler creates a Crawler that evaluates up to concurrency (page,
// location) pairs at once.
func NewCrawler(logger *utils.Logger, concurrency int) *Crawler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Crawler{logger: logger, concurrency: concurrency}
}

type crawlJob struct {
	page     Page
	location string
}

type pageResult struct {
	tables  []models.ExtractedTable
	metrics []models.ExtractedMetric
	err     error
}

// Crawl evaluates every configured page for every configured location and
// collects the results. Output order is page order, then location order,
// regardless of concurrency. sources is only read.
func (c *Crawler) Crawl(ctx context.Context, sources models.DataSources, opts CrawlOptions) (*models.ExtractedData, error) {
	opts = opts.withDefaults()
	for _, p := range opts.Pages {
		if p.IsZero() {
			return nil, fmt.Errorf("%w: unregistered page in options", ErrCrawlFailed)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrawlFailed, err)
	}

	c.logger.Info("[crawler] Starting crawl | pages: %d | locations: %d | records: %d | concurrency: %d",
		len(opts.Pages), len(opts.Locations), sources.Count(), c.concurrency)
	c.warnMissing(sources, opts.Pages)

	jobs := make([]crawlJob, 0, len(opts.Pages)*len(opts.Locations))
	for _, p := range opts.Pages {
		for _, loc := range opts.Locations {
			jobs = append(jobs, crawlJob{page: p, location: loc})
		}
	}

	results := make([]pageResult, len(jobs))
	pool := utils.NewWorkerPool(c.concurrency, 0)
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func() {
			results[i] = c.runPage(job, sources, opts)
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrawlFailed, err)
	}

	data := &models.ExtractedData{
		Tables:  []models.ExtractedTable{},
		Metrics: []models.ExtractedMetric{},
	}
	for _, res := range results {
		if res.err != nil {
			c.logger.Error("[crawler] %v", res.err)
			data.Summary.Failures = append(data.Summary.Failures, res.err.Error())
			continue
		}
		data.Tables = append(data.Tables, res.tables...)
		data.Metrics = append(data.Metrics, res.metrics...)
	}

	pageNames := make([]string, 0, len(opts.Pages))
	for _, p := range opts.Pages {
		pageNames = append(pageNames, p.name)
	}
	data.Summary.CrawlID = uuid.NewString()
	data.Summary.TotalTables = len(data.Tables)
	data.Summary.TotalMetrics = len(data.Metrics)
	data.Summary.Pages = pageNames
	data.Summary.Locations = append([]string(nil), opts.Locations...)
	data.Summary.Timestamp = time.Now()

	c.logger.Info("[crawler] Crawl complete | tables: %d | metrics: %d | failed pairs: %d",
		data.Summary.TotalTables, data.Summary.TotalMetrics, len(data.Summary.Failures))
	return data, nil
}

// runPage evaluates one (page, location) pair. A panicking aggregator or a
// malformed table is reported as a PageError.
func (c *Crawler) runPage(job crawlJob, sources models.DataSources, opts CrawlOptions) (res pageResult) {
	start := time.Now()
	pc := &pageContext{
		page:     job.page,
		location: job.location,
		opts:     opts,
		sources:  sources,
	}

	defer func() {
		if r := recover(); r != nil {
			res = pageResult{err: &PageError{
				Page:     job.page.name,
				Location: job.location,
				Err:      fmt.Errorf("aggregation panicked: %v", r),
			}}
		}
	}()

	job.page.run(pc)

	for _, t := range pc.tables {
		if !t.Valid() {
			return pageResult{err: &PageError{
				Page:     job.page.name,
				Location: job.location,
				Err:      fmt.Errorf("table %q has rows that do not match its %d headers", t.Title, len(t.Headers)),
			}}
		}
	}

	c.logger.Debug("[crawler] %s @ %s | tables: %d | metrics: %d | %v",
		job.page.name, job.location, len(pc.tables), len(pc.metrics), time.Since(start).Round(time.Millisecond))
	return pageResult{tables: pc.tables, metrics: pc.metrics}
}

func (c *Crawler) warnMissing(sources models.DataSources, pages []Page) {
	seen := utils.NewStringSet()
	for _, p := range pages {
		for _, ds := range p.datasets {
			if _, ok := sources[ds]; !ok && seen.Add(string(ds)) {
				c.logger.Warn("[crawler] Dataset %q not supplied, pages using it will be empty", ds)
			}
		}
	}
}
