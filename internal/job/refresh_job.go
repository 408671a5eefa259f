package job

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/metrics"

	"go.opentelemetry.io/otel/trace"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshJob drives the analytics refresh cycle. At most one cycle runs at a
// time; ticks that arrive while one is running are skipped.
type RefreshJob struct {
	tracer   trace.Tracer
	runner   Refresher
	interval time.Duration
	enabled  func() bool
	schedule func() time.Duration

	running  atomic.Bool
	trigger  chan struct{}
	finished chan struct{}
	wg       sync.WaitGroup
}

func NewRefreshJob(tracer trace.Tracer, runner Refresher, intervalSecs int) *RefreshJob {
	if intervalSecs <= 0 {
		intervalSecs = 60
	}
	return &RefreshJob{
		tracer:   tracer,
		runner:   runner,
		interval: time.Duration(intervalSecs) * time.Second,
		trigger:  make(chan struct{}, 1),
		finished: make(chan struct{}, 1),
	}
}

// SetEnabled installs a check consulted on every tick. Ticks are skipped while
// it returns false; the initial cycle and manual triggers still run.
func (j *RefreshJob) SetEnabled(fn func() bool) { j.enabled = fn }

// SetSchedule installs the interval source read after every cycle. When it
// returns a different positive interval the ticker is reset to it.
func (j *RefreshJob) SetSchedule(fn func() time.Duration) { j.schedule = fn }

// Start runs one cycle immediately and then one per interval. Blocks until
// ctx is cancelled and the in-flight cycle has returned.
func (j *RefreshJob) Start(ctx context.Context) {
	log.Printf("Refresh job starting (interval %s)...", j.interval)

	j.launch(ctx, "initial")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.wg.Wait()
			log.Println("Refresh job stopped")
			return
		case <-ticker.C:
			if j.enabled != nil && !j.enabled() {
				continue
			}
			j.launch(ctx, "tick")
		case <-j.trigger:
			j.launch(ctx, "manual")
		case <-j.finished:
			j.reschedule(ticker)
		}
	}
}

func (j *RefreshJob) reschedule(ticker *time.Ticker) {
	if j.schedule == nil {
		return
	}
	next := j.schedule()
	if next <= 0 || next == j.interval {
		return
	}
	log.Printf("Refresh interval changed from %s to %s", j.interval, next)
	j.interval = next
	ticker.Reset(next)
}

// TriggerNow asks the running job for an extra cycle. It returns false when a
// cycle is already running or a request is already queued.
func (j *RefreshJob) TriggerNow() bool {
	if j.running.Load() {
		return false
	}
	select {
	case j.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (j *RefreshJob) Running() bool {
	return j.running.Load()
}

func (j *RefreshJob) launch(ctx context.Context, reason string) bool {
	if !j.running.CompareAndSwap(false, true) {
		metrics.SkippedTick()
		log.Printf("refresh %s skipped: previous cycle still running", reason)
		return false
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.running.Store(false)

		ctx, span := j.tracer.Start(ctx, "refresh-job.cycle")
		defer span.End()

		if err := j.runner.Refresh(ctx); err != nil {
			log.Printf("refresh %s error: %v", reason, err)
		}
		select {
		case j.finished <- struct{}{}:
		default:
		}
	}()
	return true
}
