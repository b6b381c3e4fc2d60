package collector

import (
	"context"
	"time"

	"worldclock/datasource"
	"worldclock/logger"
	"worldclock/models"

	"golang.org/x/sync/errgroup"
)

var log = logger.New("collector")

// Result is the outcome of fetching a single zone: a record or an error
type Result struct {
	Zone     string
	Record   models.TimezoneRecord
	Err      error
	Duration time.Duration
}

// OK reports whether the fetch succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Collector fetches many zones from one source concurrently
type Collector struct {
	source      datasource.TimezoneSource
	concurrency int
}

// NewCollector creates a collector. A concurrency of zero or less means one
// in-flight request per zone.
func NewCollector(source datasource.TimezoneSource, concurrency int) *Collector {
	return &Collector{
		source:      source,
		concurrency: concurrency,
	}
}

// Stream starts fetching all zones and emits one Result per zone in
// completion order. The channel is closed once every fetch has finished.
// A failed fetch never cancels the others; only ctx does.
func (c *Collector) Stream(ctx context.Context, zones []string) <-chan Result {
	results := make(chan Result, len(zones))

	limit := c.concurrency
	if limit <= 0 || limit > len(zones) {
		limit = len(zones)
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	go func() {
		for _, zone := range zones {
			zone := zone
			g.Go(func() error {
				results <- c.fetchOnce(ctx, zone)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	return results
}

// Collect fetches all zones and returns the results in completion order
func (c *Collector) Collect(ctx context.Context, zones []string) []Result {
	collected := make([]Result, 0, len(zones))
	for result := range c.Stream(ctx, zones) {
		collected = append(collected, result)
	}
	return collected
}

// fetchOnce performs a single fetch from the source
func (c *Collector) fetchOnce(ctx context.Context, zone string) Result {
	started := time.Now()
	record, err := c.source.FetchTimezone(ctx, zone)
	elapsed := time.Since(started)

	if err != nil {
		log.Debug().
			Err(err).
			Str("zone", zone).
			Str("source", c.source.Name()).
			Dur("elapsed", elapsed).
			Msg("fetch failed")
		return Result{Zone: zone, Err: err, Duration: elapsed}
	}

	log.Debug().
		Str("zone", zone).
		Str("source", c.source.Name()).
		Int8("offset", record.OffsetHours).
		Dur("elapsed", elapsed).
		Msg("fetched")
	return Result{Zone: zone, Record: record, Duration: elapsed}
}
