package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/observability"
)

// ErrSnapshotNotReady is returned before the first successful build.
var ErrSnapshotNotReady = errors.New("snapshot has not been built yet")

// Loader fetches one workbook.
type Loader interface {
	Load(ctx context.Context) (domain.Workbook, error)
}

// Transformer turns the accident and media workbooks into a snapshot.
type Transformer interface {
	Transform(accidents, media domain.Workbook) Snapshot
}

// Publisher exports a finished snapshot. It is optional.
type Publisher interface {
	Publish(ctx context.Context, s Snapshot) error
}

// Options tunes build and refresh behavior.
type Options struct {
	LoadTimeout     time.Duration // per dataset; 0 disables the timeout
	RefreshInterval time.Duration // 0 builds once and then idles
	Publisher       Publisher
}

// Pipeline orchestrates the load-transform-publish cycle and holds the
// current snapshot.
type Pipeline struct {
	accidents   Loader
	media       Loader
	transformer Transformer
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	current     atomic.Pointer[Snapshot]

	loadTimeout     time.Duration
	refreshInterval time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(accidents, media Loader, t Transformer, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		accidents:       accidents,
		media:           media,
		transformer:     t,
		publisher:       opts.Publisher,
		logger:          logger,
		metrics:         metrics,
		loadTimeout:     opts.LoadTimeout,
		refreshInterval: opts.RefreshInterval,
	}
}

// CheckReadiness returns nil once a snapshot has been built.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.current.Load() == nil {
		return ErrSnapshotNotReady
	}
	return nil
}

// Snapshot returns the most recent successful build.
func (p *Pipeline) Snapshot() (Snapshot, bool) {
	s := p.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Build loads both datasets and replaces the current snapshot. On error the
// previous snapshot, if any, stays in place.
func (p *Pipeline) Build(ctx context.Context) (Snapshot, error) {
	start := time.Now()

	accidents, err := p.load(ctx, observability.DatasetAccident, p.accidents)
	if err != nil {
		return Snapshot{}, err
	}
	media, err := p.load(ctx, observability.DatasetMedia, p.media)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := p.transformer.Transform(accidents, media)
	p.current.Store(&snapshot)

	p.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	p.metrics.SnapshotTimestamp.Set(float64(snapshot.BuiltAt.Unix()))
	p.logger.Info("snapshot built",
		"snapshot_id", snapshot.ID,
		"accidents", len(snapshot.Accidents),
		"articles", snapshot.Coverage.TotalArticles,
		"duration", time.Since(start),
	)

	p.publish(ctx, snapshot)
	return snapshot, nil
}

func (p *Pipeline) load(ctx context.Context, dataset string, l Loader) (domain.Workbook, error) {
	if p.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.loadTimeout)
		defer cancel()
	}

	wb, err := l.Load(ctx)
	if err != nil {
		p.metrics.LoadErrors.WithLabelValues(dataset).Inc()
		return nil, fmt.Errorf("load %s data: %w", dataset, err)
	}
	return wb, nil
}

// publish exports the snapshot. Export failures are logged and counted but
// do not invalidate the snapshot.
func (p *Pipeline) publish(ctx context.Context, s Snapshot) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, s); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish snapshot failed", "error", err, "snapshot_id", s.ID)
	}
}

// Run builds the snapshot and rebuilds it every refresh interval until the
// context is cancelled. Failed builds are retried with backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.refreshInterval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	const initialBackoff = 200 * time.Millisecond
	backoff := initialBackoff
	maxBackoff := 5 * time.Second

	for {
		if _, err := p.Build(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("snapshot build failed", "error", err, "retry_in", backoff)
			if !sleepWithContext(ctx, backoff) {
				break
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if p.refreshInterval <= 0 {
			<-ctx.Done()
			break
		}
		if !sleepWithContext(ctx, p.refreshInterval) {
			break
		}
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
