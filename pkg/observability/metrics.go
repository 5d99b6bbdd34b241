package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricReposTotal      = "loctrack.repos.total"
	metricDaysMeasured    = "loctrack.days.measured"
	metricMeasureFailures = "loctrack.measure.failures"
	metricRecordsAppended = "loctrack.records.appended"
	metricRepoDuration    = "loctrack.repo.duration.seconds"

	attrStatus = "status"
)

// Repository outcome statuses.
const (
	StatusUpdated   = "updated"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

// durationBucketBoundaries covers 100ms to one hour: a repository run ranges
// from a shallow clone with nothing to backfill to years of daily checkouts.
var durationBucketBoundaries = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}

// RunMetrics holds the OTel instruments of a tracking run.
type RunMetrics struct {
	reposTotal      metric.Int64Counter
	daysMeasured    metric.Int64Counter
	measureFailures metric.Int64Counter
	recordsAppended metric.Int64Counter
	repoDuration    metric.Float64Histogram
}

// RepoStats is the outcome of one repository.
type RepoStats struct {
	Status   string
	Days     int
	Failures int
	Appended int
	Duration time.Duration
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	repos, err := mt.Int64Counter(metricReposTotal,
		metric.WithDescription("Repositories processed by outcome"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReposTotal, err)
	}

	days, err := mt.Int64Counter(metricDaysMeasured,
		metric.WithDescription("Commit days checked out and counted"),
		metric.WithUnit("{day}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDaysMeasured, err)
	}

	failures, err := mt.Int64Counter(metricMeasureFailures,
		metric.WithDescription("Measurements that failed and were recorded as zero"),
		metric.WithUnit("{measurement}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMeasureFailures, err)
	}

	appended, err := mt.Int64Counter(metricRecordsAppended,
		metric.WithDescription("History records appended"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsAppended, err)
	}

	duration, err := mt.Float64Histogram(metricRepoDuration,
		metric.WithDescription("Per-repository processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRepoDuration, err)
	}

	return &RunMetrics{
		reposTotal:      repos,
		daysMeasured:    days,
		measureFailures: failures,
		recordsAppended: appended,
		repoDuration:    duration,
	}, nil
}

// RecordRepo records the outcome of one repository.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRepo(ctx context.Context, stats RepoStats) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, stats.Status))

	rm.reposTotal.Add(ctx, 1, attrs)
	rm.repoDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	rm.daysMeasured.Add(ctx, int64(stats.Days))
	rm.measureFailures.Add(ctx, int64(stats.Failures))
	rm.recordsAppended.Add(ctx, int64(stats.Appended))
}
